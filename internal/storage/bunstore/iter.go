package bunstore

import (
	"context"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

// iterator pages through the table with keyset pagination on name, so rows
// written behind the cursor during a walk are not revisited. A failed query
// is reported once and ends the iteration.
type iterator struct {
	store   *Store
	buf     []pageModel
	pos     int
	after   string
	started bool
	last    bool
	done    bool
}

func (it *iterator) Next(ctx context.Context) (*storage.Page, error) {
	if it.done {
		return nil, storage.Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if it.pos >= len(it.buf) {
		if it.last {
			it.done = true
			it.buf = nil
			return nil, storage.Done
		}
		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
		if len(it.buf) == 0 {
			it.done = true
			return nil, storage.Done
		}
	}

	model := it.buf[it.pos]
	it.pos++
	return model.page(), nil
}

func (it *iterator) Close() error {
	it.done = true
	it.buf = nil
	return nil
}

func (it *iterator) fetch(ctx context.Context) error {
	s := it.store
	if s.db == nil {
		it.done = true
		return storage.WrapImpl(backendName, "iter", "", ErrDatabaseRequired)
	}

	var batch []pageModel
	q := s.db.NewSelect().Model(&batch).Order("name ASC").Limit(s.batchSize)
	if it.started {
		q = q.Where("name > ?", it.after)
	}
	if err := q.Scan(ctx); err != nil {
		it.done = true
		return storage.WrapImpl(backendName, "iter", "", err)
	}

	it.started = true
	it.buf = batch
	it.pos = 0
	it.last = len(batch) < s.batchSize
	if len(batch) > 0 {
		it.after = batch[len(batch)-1].Name
	}
	s.logger.Trace("storage.bun.iter.batch", "rows", len(batch))
	return nil
}
