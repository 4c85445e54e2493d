package objectstore

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
	getErr  error
	stopped bool
}

func newFakeBucket(objects map[string]string) *fakeBucket {
	b := &fakeBucket{objects: map[string][]byte{}}
	for key, value := range objects {
		b.objects[key] = []byte(value)
	}
	return b
}

func (b *fakeBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return slices.Clone(data), nil
}

func (b *fakeBucket) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = slices.Clone(data)
	return nil
}

func (b *fakeBucket) List(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		b.mu.Lock()
		var keys []string
		for key := range b.objects {
			if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
				keys = append(keys, key)
			}
		}
		b.mu.Unlock()
		slices.Sort(keys)

		for _, key := range keys {
			if !yield(key, nil) {
				b.stopped = true
				return
			}
		}
		if b.listErr != nil {
			yield("", b.listErr)
		}
	}
}

func TestStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket(nil)
	store := New(bucket, Config{Prefix: "/wiki/", Extension: ".md", IgnoreHidden: true})

	if _, err := store.Read(ctx, "faq/long-answer"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found before write, got %v", err)
	}

	if err := store.Write(ctx, "faq/long-answer", "42"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := bucket.objects["wiki/faq/long-answer.md"]; !ok {
		t.Fatalf("expected object under the prefix, got keys %v", slices.Sorted(maps.Keys(bucket.objects)))
	}

	page, err := store.Read(ctx, "faq/long-answer")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if page.Name != "faq/long-answer" || page.Source != "42" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Metadata.Template != storage.DefaultTemplate {
		t.Fatalf("expected default template, got %q", page.Metadata.Template)
	}
}

func TestStoreKeepsDotsInName(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket(nil)
	store := New(bucket, DefaultConfig())

	if err := store.Write(ctx, "v1.2", "release"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := bucket.objects["v1.2.md"]; !ok {
		t.Fatalf("expected v1.2.md, got keys %v", slices.Sorted(maps.Keys(bucket.objects)))
	}

	pages, err := storage.Collect(ctx, store.Iter())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(pages) != 1 || pages[0].Name != "v1.2" {
		t.Fatalf("expected page v1.2, got %+v", pages)
	}
}

func TestStoreRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	store := New(newFakeBucket(nil), DefaultConfig())

	for _, name := range []string{"", "a//b", "../x", "a/./b"} {
		if err := store.Write(ctx, name, "x"); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, err := store.Read(ctx, ".secret"); !errors.Is(err, ErrIgnoringHiddenName) {
		t.Fatalf("expected ErrIgnoringHiddenName, got %v", err)
	}
}

func TestStoreReadBackendFailure(t *testing.T) {
	bucket := newFakeBucket(map[string]string{"a.md": "A"})
	bucket.getErr = errors.New("connection reset")
	store := New(bucket, DefaultConfig())

	_, err := store.Read(context.Background(), "a")

	var impl *storage.ImplError
	if !errors.As(err, &impl) || impl.Backend != "object" {
		t.Fatalf("expected object ImplError, got %v", err)
	}
	if storage.IsNotFound(err) {
		t.Fatalf("a backend failure must not read as not found: %v", err)
	}
}

func TestStoreIterFiltersKeys(t *testing.T) {
	bucket := newFakeBucket(map[string]string{
		"wiki/a.md":           "Hello",
		"wiki/b/c.md":         "World",
		"wiki/.hidden.md":     "secret",
		"wiki/.git/config.md": "git",
		"wiki/notes.txt":      "text",
		"wiki/dir/":           "",
		"other/x.md":          "outside",
	})
	store := New(bucket, Config{Prefix: "wiki", Extension: "md", IgnoreHidden: true})

	pages, err := storage.Collect(context.Background(), store.Iter())

	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %+v", pages)
	}
	if pages[0].Name != "a" || pages[0].Source != "Hello" {
		t.Fatalf("unexpected first page %+v", pages[0])
	}
	if pages[1].Name != "b/c" || pages[1].Source != "World" {
		t.Fatalf("unexpected second page %+v", pages[1])
	}
}

func TestStoreIterIncludesHiddenWhenConfigured(t *testing.T) {
	bucket := newFakeBucket(map[string]string{
		"a.md":       "Hello",
		".secret.md": "secret",
	})
	store := New(bucket, Config{Extension: "md"})

	pages, err := storage.Collect(context.Background(), store.Iter())

	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(pages) != 2 || pages[0].Name != ".secret" {
		t.Fatalf("expected the hidden page first, got %+v", pages)
	}
}

func TestStoreIterListErrorIsItem(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket(map[string]string{"a.md": "A"})
	bucket.listErr = errors.New("listing interrupted")
	it := New(bucket, DefaultConfig()).Iter()

	page, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if page.Name != "a" {
		t.Fatalf("expected page a, got %q", page.Name)
	}

	_, err = it.Next(ctx)
	if !errors.Is(err, bucket.listErr) {
		t.Fatalf("expected listing error, got %v", err)
	}
	var impl *storage.ImplError
	if !errors.As(err, &impl) || impl.Op != "list" {
		t.Fatalf("expected list ImplError, got %v", err)
	}

	if _, err = it.Next(ctx); !errors.Is(err, storage.Done) {
		t.Fatalf("expected Done, got %v", err)
	}
}

func TestStoreIterCloseStopsListing(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket(map[string]string{"a.md": "A", "b.md": "B"})
	it := New(bucket, DefaultConfig()).Iter()

	if _, err := it.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !bucket.stopped {
		t.Fatal("expected close to stop the listing")
	}
	if _, err := it.Next(ctx); !errors.Is(err, storage.Done) {
		t.Fatalf("expected Done after close, got %v", err)
	}
}

func TestStoreIterEmptyBucket(t *testing.T) {
	it := New(newFakeBucket(nil), DefaultConfig()).Iter()

	for i := 0; i < 2; i++ {
		if _, err := it.Next(context.Background()); !errors.Is(err, storage.Done) {
			t.Fatalf("call %d: expected Done, got %v", i, err)
		}
	}
}

func TestStoreWithoutBucket(t *testing.T) {
	store := New(nil, DefaultConfig())
	ctx := context.Background()

	if _, err := store.Read(ctx, "a"); !errors.Is(err, ErrBucketRequired) {
		t.Fatalf("read: expected ErrBucketRequired, got %v", err)
	}
	if err := store.Write(ctx, "a", "x"); !errors.Is(err, ErrBucketRequired) {
		t.Fatalf("write: expected ErrBucketRequired, got %v", err)
	}

	it := store.Iter()
	if _, err := it.Next(ctx); !errors.Is(err, ErrBucketRequired) {
		t.Fatalf("next: expected ErrBucketRequired, got %v", err)
	}
	if _, err := it.Next(ctx); !errors.Is(err, storage.Done) {
		t.Fatalf("expected Done after the failure, got %v", err)
	}
}

func TestNewMinioClientRequiresEndpoint(t *testing.T) {
	if _, err := NewMinioClient(ClientConfig{}); err == nil {
		t.Fatal("expected an error without an endpoint")
	}
}
