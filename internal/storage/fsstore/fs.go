package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

const backendName = "fs"

// DefaultExtension is the page file extension used by DefaultConfig.
const DefaultExtension = "md"

// Config describes where and how pages are stored on disk.
type Config struct {
	// Path is the root directory holding the pages.
	Path string
	// IgnoreHidden excludes every entry whose base name starts with ".".
	IgnoreHidden bool
	// Extension is appended to page names to build file names. Empty means
	// page names map to file names verbatim.
	Extension string
}

// DefaultConfig returns the configuration used by the wiki: hidden entries
// ignored and ".md" files.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		IgnoreHidden: true,
		Extension:    DefaultExtension,
	}
}

// Option customises an Fs.
type Option func(*Fs)

// WithMetadataExtractor derives page metadata from the file source. Without
// it pages carry storage.DefaultMetadata.
func WithMetadataExtractor(extract storage.MetadataExtractor) Option {
	return func(f *Fs) {
		f.extract = extract
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger interfaces.Logger) Option {
	return func(f *Fs) {
		f.logger = logging.Ensure(logger)
	}
}

// Fs is a storage backend rooted at a directory. The configuration is fixed
// at construction.
type Fs struct {
	cfg     Config
	extract storage.MetadataExtractor
	logger  interfaces.Logger
}

var _ storage.Iterable = (*Fs)(nil)

// New returns an Fs for cfg. The root is not checked; a missing root surfaces
// as an error on the first read or iteration step.
func New(cfg Config, opts ...Option) *Fs {
	cfg.Path = filepath.Clean(cfg.Path)
	cfg.Extension = strings.TrimPrefix(strings.TrimSpace(cfg.Extension), ".")

	f := &Fs{
		cfg:    cfg,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.WithFields(f.logger, map[string]any{
		"backend": backendName,
		"root":    cfg.Path,
	})
	return f
}

// Open is New plus a check that the root exists and is a directory.
func Open(cfg Config, opts ...Option) (*Fs, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStorageDirNotFound, cfg.Path)
		}
		return nil, fmt.Errorf("fsstore: stat %s: %w", cfg.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStorageDirNotFound, cfg.Path)
	}
	return New(cfg, opts...), nil
}

// Config returns a copy of the backend configuration.
func (f *Fs) Config() Config {
	return f.cfg
}

// Read loads the page stored under name.
func (f *Fs) Read(ctx context.Context, name string) (*storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.pathFor(name)
	if err != nil {
		return nil, storage.WrapImpl(backendName, "read", name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NotFound(name)
		}
		return nil, storage.WrapImpl(backendName, "read", name, err)
	}

	source := string(data)
	meta, err := storage.ExtractMetadata(f.extract, source)
	if err != nil {
		return nil, storage.WrapImpl(backendName, "parse", name, err)
	}

	return &storage.Page{
		Name:     name,
		Source:   source,
		Metadata: meta,
	}, nil
}

// Write accepts data for name without touching the filesystem. Persisting
// pages to disk is not supported by this backend yet.
func (f *Fs) Write(ctx context.Context, name string, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.WithPageContext(f.logger, name, "").Debug("storage.fs.write.skipped", "bytes", len(data))
	return nil
}

// Iter starts a new walk over the root.
func (f *Fs) Iter() storage.Iterator {
	return NewIter(f)
}

// pathFor maps a page name to its file path: root/name plus ".<extension>".
// The extension is appended, never substituted, so names containing dots
// keep them.
func (f *Fs) pathFor(name string) (string, error) {
	if name == "" || strings.HasSuffix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if f.cfg.IgnoreHidden && hasHiddenSegment(name) {
		return "", fmt.Errorf("%w: %q", ErrIgnoringHiddenName, name)
	}

	path := filepath.Join(f.cfg.Path, local)
	if f.cfg.Extension != "" {
		path += "." + f.cfg.Extension
	}
	return path, nil
}

func hasHiddenSegment(name string) bool {
	for _, segment := range strings.Split(name, "/") {
		if segment == "." || segment == ".." {
			continue
		}
		if isHidden(segment) {
			return true
		}
	}
	return false
}

func isHidden(baseName string) bool {
	return strings.HasPrefix(baseName, ".")
}
