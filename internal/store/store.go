package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/thunderluca/mementofx-sqlite/internal/schema"
	"github.com/thunderluca/mementofx-sqlite/internal/typemap"
)

const driverName = "sqlite3"

// Store saves and queries domain events.
// A Store is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	schema  *schema.Manager
	mapper  typemap.Mapper
	opts    options
	logger  *slog.Logger
}

type options struct {
	dateAsTicks bool
	autoMigrate bool
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithDateTimeAsTicks selects INTEGER tick storage (true, the default) or
// ISO-8601 TEXT storage (false) for date/time fields. The setting applies to
// the whole database and must not change once events are stored.
func WithDateTimeAsTicks(enabled bool) Option {
	return func(o *options) { o.dateAsTicks = enabled }
}

// WithAutoMigrations enables (the default) or disables adding columns to
// existing tables when a kind gains fields.
func WithAutoMigrations(enabled bool) Option {
	return func(o *options) { o.autoMigrate = enabled }
}

// WithLogger sets the logger for schema changes and SQL tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return New(db, opts...), nil
}

// New wraps an already configured database handle.
func New(db *sql.DB, opts ...Option) *Store {
	o := options{dateAsTicks: true, autoMigrate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	xdb := sqlx.NewDb(db, driverName)
	return &Store{
		db:      xdb,
		dialect: goqu.Dialect(driverName),
		schema:  schema.NewManager(xdb, schema.Config{AutoMigrate: o.autoMigrate, Logger: o.logger}),
		mapper:  typemap.Mapper{DateAsTicks: o.dateAsTicks},
		opts:    o,
		logger:  o.logger,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// DateTimeAsTicks reports the configured date/time storage mode.
func (s *Store) DateTimeAsTicks() bool {
	return s.opts.dateAsTicks
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	if err := s.db.GetContext(ctx, &value, fmt.Sprintf("PRAGMA %s", name)); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
