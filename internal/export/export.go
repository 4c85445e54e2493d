// Package export renders every page of a storage backend into a directory of
// HTML files, next to a verbatim copy of the static assets.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-kuebico/internal/fsutil"
	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/internal/render"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

// OutputExtension is the extension of every written page.
const OutputExtension = ".html"

var (
	// ErrIteratorRequired is returned by New without a page iterator.
	ErrIteratorRequired = errors.New("export: page iterator is required")
	// ErrUnsafePageName is returned for page names that would be written outside the export directory.
	ErrUnsafePageName = errors.New("export: page name escapes the export directory")
)

// Renderer writes the output document for a page.
type Renderer interface {
	Render(ctx context.Context, page *storage.Page, w io.Writer) error
}

// Settings controls where output goes and how failures are handled.
type Settings struct {
	// ExportDir receives the rendered pages. Required.
	ExportDir string
	// StaticDir, when set, is copied into ExportDir before pages are written.
	StaticDir string
	// FailFast stops the export at the first failing page. By default every
	// page is attempted and the failures are returned together.
	FailFast bool
}

// Validate ensures the export directory is usable.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ExportDir, validation.Required.Error("export directory is required")),
		validation.Field(&s.StaticDir, validation.By(func(any) error {
			if s.StaticDir != "" && s.ExportDir != "" && fsutil.Within(s.StaticDir, s.ExportDir) {
				return errors.New("export directory must not be the static directory or lie inside it")
			}
			return nil
		})),
	)
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithRenderer replaces the default HTML renderer.
func WithRenderer(r Renderer) Option {
	return func(e *Exporter) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithLogger sets the logger used for progress output.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Exporter) {
		e.logger = logging.Ensure(logger)
	}
}

// Result summarises an export run.
type Result struct {
	// Pages counts the pages read from the iterator.
	Pages int
	// Written lists the output files, relative to the export directory.
	Written []string
	// StaticFiles counts the files copied from the static directory.
	StaticFiles int
	// Errors holds every failure, in the order they occurred.
	Errors   []error
	Duration time.Duration
}

// Exporter drains a page iterator into an export directory.
type Exporter struct {
	pages    storage.Iterator
	settings Settings
	renderer Renderer
	logger   interfaces.Logger
}

// New validates settings and returns an Exporter over pages.
func New(pages storage.Iterator, settings Settings, opts ...Option) (*Exporter, error) {
	if pages == nil {
		return nil, ErrIteratorRequired
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("export: invalid settings: %w", err)
	}

	e := &Exporter{
		pages:    pages,
		settings: settings,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = render.New()
	}
	return e, nil
}

// Export copies the static directory, then renders each page to
// <ExportDir>/<name>.html. The iterator is closed when Export returns.
// The returned error aggregates every failure; Result is always populated.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	var merr *multierror.Error

	fail := func(err error) {
		result.Errors = append(result.Errors, err)
		merr = multierror.Append(merr, err)
	}
	done := func() (*Result, error) {
		result.Duration = time.Since(start)
		e.logger.WithContext(ctx).Info("export.finished",
			"pages", result.Pages,
			"written", len(result.Written),
			"static_files", result.StaticFiles,
			"errors", len(result.Errors),
			"duration", result.Duration,
		)
		return result, merr.ErrorOrNil()
	}

	defer e.pages.Close()

	if err := fsutil.MkdirAll(e.settings.ExportDir); err != nil {
		fail(fmt.Errorf("export: create %s: %w", e.settings.ExportDir, err))
		return done()
	}

	copied, err := e.copyStatic()
	result.StaticFiles = copied
	if err != nil {
		fail(err)
		if e.settings.FailFast {
			return done()
		}
	}

	for page, err := range storage.All(ctx, e.pages) {
		if err != nil {
			e.logger.Warn("export.page.failed", "error", err)
			fail(err)
			if e.settings.FailFast || ctx.Err() != nil {
				break
			}
			continue
		}

		result.Pages++
		rel, err := e.writePage(ctx, page)
		if err != nil {
			logging.WithPageContext(e.logger, page.Name, "").Warn("export.page.failed", "error", err)
			fail(err)
			if e.settings.FailFast {
				break
			}
			continue
		}
		result.Written = append(result.Written, rel)
	}

	return done()
}

func (e *Exporter) copyStatic() (int, error) {
	dir := e.settings.StaticDir
	if dir == "" {
		return 0, nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		e.logger.Warn("export.static.skipped", "dir", dir, "reason", "not a directory")
		return 0, nil
	}

	copied, err := fsutil.CopyTree(dir, e.settings.ExportDir)
	if err != nil {
		return copied, fmt.Errorf("export: copy static files: %w", err)
	}
	e.logger.Debug("export.static.copied", "dir", dir, "files", copied)
	return copied, nil
}

func (e *Exporter) writePage(ctx context.Context, page *storage.Page) (string, error) {
	rel, err := outputPath(page.Name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := e.renderer.Render(ctx, page, &buf); err != nil {
		return "", fmt.Errorf("export: render %s: %w", page.Name, err)
	}

	target := filepath.Join(e.settings.ExportDir, rel)
	if err := fsutil.WriteFile(target, buf.Bytes()); err != nil {
		return "", fmt.Errorf("export: write %s: %w", target, err)
	}

	logging.WithPageContext(e.logger, page.Name, "").Debug("export.page.written", "path", target, "bytes", buf.Len())
	return filepath.ToSlash(rel), nil
}

// outputPath maps a page name to its file path relative to the export directory.
func outputPath(name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || strings.HasSuffix(name, "/") || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePageName, name)
	}
	return local + OutputExtension, nil
}
