// Package bunstore keeps pages in a SQL table through bun. SQLite and
// Postgres are supported.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

const backendName = "bun"

// DefaultBatchSize is the number of rows an iterator loads per query.
const DefaultBatchSize = 100

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	// ErrDatabaseRequired is returned when a Store has no database handle.
	ErrDatabaseRequired = errors.New("bunstore: database is required")
	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite3 and postgres.
	ErrUnsupportedDriver = errors.New("bunstore: unsupported driver")
	// ErrEmptyName is returned when a page is read or written without a name.
	ErrEmptyName = errors.New("bunstore: page name is required")
)

// Option customises a Store.
type Option func(*Store)

// WithMetadataExtractor derives the stored metadata columns from the page
// source on Write.
func WithMetadataExtractor(extract storage.MetadataExtractor) Option {
	return func(s *Store) {
		s.extract = extract
	}
}

// WithBatchSize sets how many rows an iterator fetches per query.
func WithBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Store) {
		s.logger = logging.Ensure(logger)
	}
}

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store persists pages in the "pages" table.
type Store struct {
	db        *bun.DB
	extract   storage.MetadataExtractor
	batchSize int
	logger    interfaces.Logger
	now       func() time.Time
}

var _ storage.Iterable = (*Store)(nil)

// New wraps an existing bun database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		batchSize: DefaultBatchSize,
		logger:    logging.NoOp(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithFields(s.logger, map[string]any{"backend": backendName})
	return s
}

// Open connects to dsn with driver and returns a Store over it. The caller
// owns the returned Store and must Close it.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	db, err := OpenDB(driver, dsn)
	if err != nil {
		return nil, err
	}
	return New(db, opts...), nil
}

// OpenDB opens a bun database using the dialect matching driver.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("bunstore: open %s: %w", driver, err)
	}
	if driver == DriverPostgres {
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the pages table when it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseRequired
	}
	if _, err := s.db.NewCreateTable().Model((*pageModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read loads the row named name.
func (s *Store) Read(ctx context.Context, name string) (*storage.Page, error) {
	if s.db == nil {
		return nil, storage.WrapImpl(backendName, "read", name, ErrDatabaseRequired)
	}
	if name == "" {
		return nil, storage.WrapImpl(backendName, "read", name, ErrEmptyName)
	}

	var model pageModel
	err := s.db.NewSelect().Model(&model).Where("?TableAlias.name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NotFound(name)
		}
		return nil, storage.WrapImpl(backendName, "read", name, err)
	}
	return model.page(), nil
}

// Write inserts or replaces the row named name.
func (s *Store) Write(ctx context.Context, name string, data string) error {
	if s.db == nil {
		return storage.WrapImpl(backendName, "write", name, ErrDatabaseRequired)
	}
	if name == "" {
		return storage.WrapImpl(backendName, "write", name, ErrEmptyName)
	}

	meta, err := storage.ExtractMetadata(s.extract, data)
	if err != nil {
		return storage.WrapImpl(backendName, "parse", name, err)
	}

	model := modelFromPage(name, data, meta, s.now())
	_, err = s.db.NewInsert().
		Model(model).
		On("CONFLICT (name) DO UPDATE").
		Set("source = EXCLUDED.source").
		Set("title = EXCLUDED.title").
		Set("template = EXCLUDED.template").
		Set("custom = EXCLUDED.custom").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return storage.WrapImpl(backendName, "write", name, err)
	}
	logging.WithPageContext(s.logger, name, "").Debug("storage.bun.write", "bytes", len(data))
	return nil
}

// Delete removes the row named name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if s.db == nil {
		return storage.WrapImpl(backendName, "delete", name, ErrDatabaseRequired)
	}
	res, err := s.db.NewDelete().Model((*pageModel)(nil)).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return storage.WrapImpl(backendName, "delete", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.NotFound(name)
	}
	return nil
}

// Iter returns an iterator over every row ordered by name. Rows are loaded
// in batches as the iterator advances.
func (s *Store) Iter() storage.Iterator {
	return &iterator{store: s}
}
