// Package storage defines the page model and the contracts every wiki storage
// backend satisfies. Backends live under internal/storage; callers depend on
// the interfaces declared here.
package storage

import "context"

// Storage is the backend used for basic page operations.
type Storage interface {
	// Read resolves name to the backend resource and returns the page.
	// It returns an error matching ErrPageNotFound when nothing exists under
	// name, or an *ImplError for backend specific faults.
	Read(ctx context.Context, name string) (*Page, error)
	// Write persists data under name.
	Write(ctx context.Context, name string, data string) error
}

// Iterator is a single-pass, non-restartable sequence of pages. Next returns
// the next page, an error item, or Done once the sequence is exhausted. An
// error item does not end the sequence; callers decide whether to call Next
// again.
type Iterator interface {
	Next(ctx context.Context) (*Page, error)
	Close() error
}

// Iterable is a Storage that can be walked, reading every page it holds.
type Iterable interface {
	Storage
	// Iter returns a fresh iterator. Each call starts a new walk.
	Iter() Iterator
}
