package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

func TestStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Read(ctx, "faq/long-answer"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found before write, got %v", err)
	}

	if err := s.Write(ctx, "faq/long-answer", "42"); err != nil {
		t.Fatalf("write: %v", err)
	}
	page, err := s.Read(ctx, "faq/long-answer")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if page.Name != "faq/long-answer" || page.Source != "42" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Metadata.Template != storage.DefaultTemplate {
		t.Fatalf("expected default template, got %q", page.Metadata.Template)
	}

	if err := s.Write(ctx, "faq/long-answer", "43"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	page, err = s.Read(ctx, "faq/long-answer")
	if err != nil {
		t.Fatalf("read after overwrite: %v", err)
	}
	if page.Source != "43" {
		t.Fatalf("expected overwritten source, got %q", page.Source)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 page, got %d", s.Len())
	}
}

func TestStoreRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Write(ctx, "", "x")
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	var impl *storage.ImplError
	if !errors.As(err, &impl) || impl.Backend != "memory" {
		t.Fatalf("expected memory ImplError, got %v", err)
	}

	if _, err = s.Read(ctx, ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName on read, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New(WithPages(map[string]string{"a": "A"}))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestStoreIterSnapshotInNameOrder(t *testing.T) {
	ctx := context.Background()
	s := New(WithPages(map[string]string{
		"b/c": "World",
		"a":   "Hello",
	}))

	it := s.Iter()
	if err := s.Write(ctx, "z", "late"); err != nil {
		t.Fatalf("write: %v", err)
	}

	pages, err := storage.Collect(ctx, it)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected the 2 snapshotted pages, got %d", len(pages))
	}
	if pages[0].Name != "a" || pages[0].Source != "Hello" || pages[1].Name != "b/c" {
		t.Fatalf("unexpected order %q, %q", pages[0].Name, pages[1].Name)
	}

	if _, err = it.Next(ctx); !errors.Is(err, storage.Done) {
		t.Fatalf("expected Done, got %v", err)
	}
}

func TestStoreIterExtractorFailureIsItem(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("bad frontmatter")
	s := New(
		WithPages(map[string]string{"a": "ok", "b": "broken", "c": "ok"}),
		WithMetadataExtractor(func(source string) (storage.Metadata, error) {
			if source == "broken" {
				return storage.Metadata{}, boom
			}
			return storage.Metadata{Title: source}, nil
		}),
	)

	pages, err := storage.Collect(ctx, s.Iter())

	if !errors.Is(err, boom) {
		t.Fatalf("expected extractor error, got %v", err)
	}
	if len(pages) != 2 || pages[0].Name != "a" || pages[1].Name != "c" {
		t.Fatalf("expected pages a and c, got %+v", pages)
	}
	if pages[0].Metadata.Title != "ok" {
		t.Fatalf("expected extracted title, got %q", pages[0].Metadata.Title)
	}
}

func TestStoreIterClose(t *testing.T) {
	it := New(WithPages(map[string]string{"a": "A", "b": "B"})).Iter()

	if err := it.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := it.Next(context.Background()); !errors.Is(err, storage.Done) {
		t.Fatalf("expected Done after close, got %v", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := string(rune('a' + n))
			errs <- s.Write(ctx, name, name)
			_, err := s.Read(ctx, name)
			errs <- err
			_, _ = storage.Collect(ctx, s.Iter())
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent access: %v", err)
		}
	}
	if s.Len() != 8 {
		t.Fatalf("expected 8 pages, got %d", s.Len())
	}
}
