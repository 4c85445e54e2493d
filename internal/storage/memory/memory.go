// Package memory provides a map backed page store. It holds page sources in
// memory and is safe for concurrent use.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

const backendName = "memory"

// ErrEmptyName is returned when a page is read or written without a name.
var ErrEmptyName = errors.New("memory: page name is required")

// Option customises a Store.
type Option func(*Store)

// WithMetadataExtractor derives page metadata from the stored source on read.
func WithMetadataExtractor(extract storage.MetadataExtractor) Option {
	return func(s *Store) {
		s.extract = extract
	}
}

// WithPages seeds the store with name to source pairs.
func WithPages(pages map[string]string) Option {
	return func(s *Store) {
		for name, source := range pages {
			s.data[name] = source
		}
	}
}

// Store keeps page sources keyed by page name.
type Store struct {
	mu      sync.RWMutex
	data    map[string]string
	extract storage.MetadataExtractor
}

var _ storage.Iterable = (*Store)(nil)

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the page stored under name.
func (s *Store) Read(ctx context.Context, name string) (*storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, storage.WrapImpl(backendName, "read", name, ErrEmptyName)
	}

	s.mu.RLock()
	source, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.NotFound(name)
	}
	return s.page(name, source)
}

// Write stores data under name, replacing any previous source.
func (s *Store) Write(ctx context.Context, name string, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return storage.WrapImpl(backendName, "write", name, ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = data
	return nil
}

// Delete removes name. Deleting a missing page returns a not-found error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return storage.NotFound(name)
	}
	delete(s.data, name)
	return nil
}

// Len reports how many pages are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Iter returns an iterator over a snapshot of the store taken now, ordered by
// page name. Writes made after Iter returns are not observed.
func (s *Store) Iter() storage.Iterator {
	s.mu.RLock()
	snapshot := maps.Clone(s.data)
	s.mu.RUnlock()

	return &iterator{
		store:    s,
		names:    slices.Sorted(maps.Keys(snapshot)),
		snapshot: snapshot,
	}
}

func (s *Store) page(name, source string) (*storage.Page, error) {
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

type iterator struct {
	store    *Store
	names    []string
	snapshot map[string]string
	pos      int
	closed   bool
}

func (it *iterator) Next(ctx context.Context) (*storage.Page, error) {
	if it.closed || it.pos >= len(it.names) {
		return nil, storage.Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := it.names[it.pos]
	it.pos++
	return it.store.page(name, it.snapshot[name])
}

func (it *iterator) Close() error {
	it.closed = true
	it.names = nil
	it.snapshot = nil
	return nil
}
