package storage

import (
	"context"
	"errors"
	"iter"
)

// All adapts it into a range-over-func sequence. Error items are yielded with
// a nil page. Once ctx is done the sequence ends after yielding that error,
// since iterators do not advance on a cancelled context. The iterator is
// closed when the loop ends or breaks.
func All(ctx context.Context, it Iterator) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		defer it.Close()
		for {
			page, err := it.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if !yield(page, err) {
				return
			}
			if err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

// Collect drains it, returning every page and the joined error items.
func Collect(ctx context.Context, it Iterator) ([]*Page, error) {
	var (
		pages []*Page
		errs  []error
	)
	for page, err := range All(ctx, it) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pages = append(pages, page)
	}
	return pages, errors.Join(errs...)
}

// SliceIterator iterates over a fixed list of pages. Backends that load their
// listing eagerly use it to satisfy Iterator.
type SliceIterator struct {
	pages  []*Page
	pos    int
	closed bool
}

// NewSliceIterator returns an iterator over pages. The slice is not copied.
func NewSliceIterator(pages []*Page) *SliceIterator {
	return &SliceIterator{pages: pages}
}

// Next returns the next page or Done.
func (s *SliceIterator) Next(ctx context.Context) (*Page, error) {
	if s.closed || s.pos >= len(s.pages) {
		return nil, Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := s.pages[s.pos]
	s.pos++
	return page, nil
}

// Close ends the iteration.
func (s *SliceIterator) Close() error {
	s.closed = true
	s.pages = nil
	return nil
}
