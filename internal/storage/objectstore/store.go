package objectstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path"
	"strings"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

const backendName = "object"

var (
	// ErrBucketRequired is returned when a Store has no bucket.
	ErrBucketRequired = errors.New("objectstore: bucket is required")
	// ErrInvalidName is returned for empty names or names with empty, "." or ".." segments.
	ErrInvalidName = errors.New("objectstore: invalid page name")
	// ErrIgnoringHiddenName is returned when a hidden name is used while hidden entries are ignored.
	ErrIgnoringHiddenName = errors.New("objectstore: name refers to a hidden entry")
)

// Config describes how page names map to object keys.
type Config struct {
	// Prefix is prepended to every key, e.g. "wiki".
	Prefix string
	// Extension is appended to page names. Empty stores names verbatim.
	Extension string
	// IgnoreHidden skips keys with a segment starting with ".".
	IgnoreHidden bool
}

// DefaultConfig stores ".md" objects at the bucket root and ignores hidden keys.
func DefaultConfig() Config {
	return Config{
		Extension:    "md",
		IgnoreHidden: true,
	}
}

// Option customises a Store.
type Option func(*Store)

// WithMetadataExtractor derives page metadata from the object content.
func WithMetadataExtractor(extract storage.MetadataExtractor) Option {
	return func(s *Store) {
		s.extract = extract
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Store) {
		s.logger = logging.Ensure(logger)
	}
}

// Store reads and writes pages as bucket objects.
type Store struct {
	bucket  Bucket
	cfg     Config
	extract storage.MetadataExtractor
	logger  interfaces.Logger
}

var _ storage.Iterable = (*Store)(nil)

// New returns a Store over bucket.
func New(bucket Bucket, cfg Config, opts ...Option) *Store {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.Extension = strings.TrimPrefix(strings.TrimSpace(cfg.Extension), ".")

	s := &Store{
		bucket: bucket,
		cfg:    cfg,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithFields(s.logger, map[string]any{"backend": backendName})
	return s
}

// Config returns a copy of the store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Read loads the object backing name.
func (s *Store) Read(ctx context.Context, name string) (*storage.Page, error) {
	if s.bucket == nil {
		return nil, storage.WrapImpl(backendName, "read", name, ErrBucketRequired)
	}
	key, err := s.keyFor(name)
	if err != nil {
		return nil, storage.WrapImpl(backendName, "read", name, err)
	}

	data, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, storage.NotFound(name)
		}
		return nil, storage.WrapImpl(backendName, "read", name, err)
	}

	source := string(data)
	meta, err := storage.ExtractMetadata(s.extract, source)
	if err != nil {
		return nil, storage.WrapImpl(backendName, "parse", name, err)
	}
	return &storage.Page{
		Name:     name,
		Source:   source,
		Metadata: meta,
	}, nil
}

// Write uploads data as the object backing name.
func (s *Store) Write(ctx context.Context, name string, data string) error {
	if s.bucket == nil {
		return storage.WrapImpl(backendName, "write", name, ErrBucketRequired)
	}
	key, err := s.keyFor(name)
	if err != nil {
		return storage.WrapImpl(backendName, "write", name, err)
	}
	if err := s.bucket.Put(ctx, key, []byte(data)); err != nil {
		return storage.WrapImpl(backendName, "write", name, err)
	}
	logging.WithPageContext(s.logger, name, "").Debug("storage.object.write", "key", key, "bytes", len(data))
	return nil
}

// Iter lists the bucket lazily. The listing is bound to the context passed
// to the first Next call.
func (s *Store) Iter() storage.Iterator {
	return &iterator{store: s}
}

func (s *Store) keyFor(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		if s.cfg.IgnoreHidden && strings.HasPrefix(segment, ".") {
			return "", fmt.Errorf("%w: %q", ErrIgnoringHiddenName, name)
		}
	}

	key := name
	if s.cfg.Extension != "" {
		key += "." + s.cfg.Extension
	}
	if s.cfg.Prefix != "" {
		key = s.cfg.Prefix + "/" + key
	}
	return key, nil
}

func (s *Store) listPrefix() string {
	if s.cfg.Prefix == "" {
		return ""
	}
	return s.cfg.Prefix + "/"
}

// nameFor converts a listed key back to a page name. ok is false for keys
// that are not pages.
func (s *Store) nameFor(key string) (string, bool) {
	rel, found := strings.CutPrefix(key, s.listPrefix())
	if !found || rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	if s.cfg.IgnoreHidden {
		for _, segment := range strings.Split(rel, "/") {
			if strings.HasPrefix(segment, ".") {
				return "", false
			}
		}
	}
	if s.cfg.Extension == "" {
		return rel, true
	}
	suffix := "." + s.cfg.Extension
	if path.Ext(rel) != suffix || path.Base(rel) == suffix {
		return "", false
	}
	return strings.TrimSuffix(rel, suffix), true
}

type iterator struct {
	store *Store
	next  func() (string, error, bool)
	stop  func()
	done  bool
}

func (it *iterator) Next(ctx context.Context) (*storage.Page, error) {
	if it.done {
		return nil, storage.Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.store.bucket == nil {
		it.finish()
		return nil, storage.WrapImpl(backendName, "iter", "", ErrBucketRequired)
	}
	if it.next == nil {
		it.next, it.stop = iter.Pull2(it.store.bucket.List(ctx, it.store.listPrefix()))
	}

	for {
		key, err, ok := it.next()
		if !ok {
			it.finish()
			return nil, storage.Done
		}
		if err != nil {
			return nil, storage.WrapImpl(backendName, "list", "", err)
		}
		name, isPage := it.store.nameFor(key)
		if !isPage {
			it.store.logger.Trace("storage.object.iter.skip", "key", key)
			continue
		}
		return it.store.Read(ctx, name)
	}
}

func (it *iterator) Close() error {
	it.finish()
	return nil
}

func (it *iterator) finish() {
	it.done = true
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
}
