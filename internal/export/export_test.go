package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-kuebico/internal/storage/fsstore"
	"github.com/goliatone/go-kuebico/internal/storage/memory"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

type stubRenderer struct {
	fail map[string]error
}

func (s stubRenderer) Render(_ context.Context, page *storage.Page, w io.Writer) error {
	if err := s.fail[page.Name]; err != nil {
		return err
	}
	_, err := io.WriteString(w, "<p>"+page.Source+"</p>")
	return err
}

type scriptedIterator struct {
	items  []any
	pos    int
	closed bool
}

func (s *scriptedIterator) Next(context.Context) (*storage.Page, error) {
	if s.closed || s.pos >= len(s.items) {
		return nil, storage.Done
	}
	item := s.items[s.pos]
	s.pos++
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(*storage.Page), nil
}

func (s *scriptedIterator) Close() error {
	s.closed = true
	return nil
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSettingsValidate(t *testing.T) {
	if err := (Settings{}).Validate(); err == nil {
		t.Fatal("expected missing export dir to fail validation")
	}
	if err := (Settings{ExportDir: "out", StaticDir: "out/"}).Validate(); err == nil {
		t.Fatal("expected static dir equal to export dir to fail validation")
	}
	if err := (Settings{ExportDir: "public", StaticDir: "."}).Validate(); err == nil {
		t.Fatal("expected export dir nested in the static dir to fail validation")
	}
	if err := (Settings{ExportDir: "out", StaticDir: "static"}).Validate(); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
	if err := (Settings{ExportDir: "site", StaticDir: "site/static"}).Validate(); err != nil {
		t.Fatalf("expected static dir inside the export dir to be allowed, got %v", err)
	}
}

func TestNewRequiresIterator(t *testing.T) {
	if _, err := New(nil, Settings{ExportDir: t.TempDir()}); !errors.Is(err, ErrIteratorRequired) {
		t.Fatalf("expected ErrIteratorRequired, got %v", err)
	}
}

func TestExportWritesNestedPages(t *testing.T) {
	store := memory.New(memory.WithPages(map[string]string{
		"a":               "Hello",
		"faq/long-answer": "42",
	}))
	out := filepath.Join(t.TempDir(), "export")

	exporter, err := New(store.Iter(), Settings{ExportDir: out}, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if result.Pages != 2 || len(result.Written) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Written[0] != "a.html" || result.Written[1] != "faq/long-answer.html" {
		t.Fatalf("unexpected written paths: %v", result.Written)
	}
	if got := readOutput(t, filepath.Join(out, "a.html")); got != "<p>Hello</p>" {
		t.Fatalf("unexpected a.html: %q", got)
	}
	if got := readOutput(t, filepath.Join(out, "faq", "long-answer.html")); got != "<p>42</p>" {
		t.Fatalf("unexpected long-answer.html: %q", got)
	}
}

func TestExportCopiesStaticFiles(t *testing.T) {
	static := t.TempDir()
	if err := os.MkdirAll(filepath.Join(static, "css"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(static, "css", "site.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()

	exporter, err := New(memory.New().Iter(), Settings{ExportDir: out, StaticDir: static}, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.StaticFiles != 1 {
		t.Fatalf("expected 1 static file, got %d", result.StaticFiles)
	}
	if got := readOutput(t, filepath.Join(out, "css", "site.css")); got != "body{}" {
		t.Fatalf("unexpected static copy: %q", got)
	}
}

func TestExportSkipsMissingStaticDir(t *testing.T) {
	out := t.TempDir()
	settings := Settings{ExportDir: out, StaticDir: filepath.Join(out, "..", "no-such-static")}

	exporter, err := New(memory.New().Iter(), settings, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())
	if err != nil {
		t.Fatalf("expected missing static dir to be skipped, got %v", err)
	}
	if result.StaticFiles != 0 {
		t.Fatalf("expected no static files, got %d", result.StaticFiles)
	}
}

func TestExportCollectsErrorsAndContinues(t *testing.T) {
	walkErr := errors.New("walk failed")
	renderErr := errors.New("template exploded")
	it := &scriptedIterator{items: []any{
		&storage.Page{Name: "a", Source: "A"},
		walkErr,
		&storage.Page{Name: "b", Source: "B"},
		&storage.Page{Name: "c", Source: "C"},
	}}
	out := t.TempDir()

	exporter, err := New(it, Settings{ExportDir: out}, WithRenderer(stubRenderer{
		fail: map[string]error{"b": renderErr},
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())

	if !errors.Is(err, walkErr) || !errors.Is(err, renderErr) {
		t.Fatalf("expected aggregated error with both causes, got %v", err)
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("expected multierror with 2 entries, got %#v", err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 result errors, got %v", result.Errors)
	}
	if result.Pages != 3 || strings.Join(result.Written, ",") != "a.html,c.html" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !it.closed {
		t.Fatal("expected iterator to be closed")
	}
}

func TestExportFailFast(t *testing.T) {
	walkErr := errors.New("walk failed")
	it := &scriptedIterator{items: []any{
		&storage.Page{Name: "a", Source: "A"},
		walkErr,
		&storage.Page{Name: "b", Source: "B"},
	}}
	out := t.TempDir()

	exporter, err := New(it, Settings{ExportDir: out, FailFast: true}, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())

	if !errors.Is(err, walkErr) {
		t.Fatalf("expected walk error, got %v", err)
	}
	if len(result.Written) != 1 || result.Written[0] != "a.html" {
		t.Fatalf("expected export to stop after the first error, got %v", result.Written)
	}
	if _, statErr := os.Stat(filepath.Join(out, "b.html")); !os.IsNotExist(statErr) {
		t.Fatalf("expected b.html to be absent, got %v", statErr)
	}
}

func TestExportRejectsUnsafeNames(t *testing.T) {
	it := &scriptedIterator{items: []any{&storage.Page{Name: "../escape", Source: "x"}}}

	exporter, err := New(it, Settings{ExportDir: t.TempDir()}, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = exporter.Export(context.Background())
	if !errors.Is(err, ErrUnsafePageName) {
		t.Fatalf("expected ErrUnsafePageName, got %v", err)
	}
}

func TestExportFromFilesystemWithDefaultRenderer(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.md":       "# Hello",
		"b/c.md":     "World",
		".hidden.md": "secret",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out := t.TempDir()

	exporter, err := New(fsstore.New(fsstore.DefaultConfig(root)).Iter(), Settings{ExportDir: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Join(result.Written, ",") != "a.html,b/c.html" {
		t.Fatalf("unexpected written pages: %v", result.Written)
	}
	if got := readOutput(t, filepath.Join(out, "a.html")); !strings.Contains(got, "Hello</h1>") {
		t.Fatalf("expected rendered heading, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, ".hidden.html")); !os.IsNotExist(err) {
		t.Fatalf("hidden page must not be exported, got %v", err)
	}
}

func TestExportCancelledContext(t *testing.T) {
	store := memory.New(memory.WithPages(map[string]string{"a": "A", "b": "B"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exporter, err := New(store.Iter(), Settings{ExportDir: t.TempDir()}, WithRenderer(stubRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := exporter.Export(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Written) != 0 || len(result.Errors) != 1 {
		t.Fatalf("expected a single cancellation error, got %+v", result)
	}
}
