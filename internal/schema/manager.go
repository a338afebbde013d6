package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/querysql"
	"github.com/thunderluca/mementofx-sqlite/internal/rowcodec"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
	"github.com/thunderluca/mementofx-sqlite/internal/typemap"
)

// indexedColumns get a secondary index on every event table.
var indexedColumns = []string{event.ColumnID, event.ColumnTimelineID, event.ColumnTimeStamp}

// Column is one row of PRAGMA table_info.
type Column struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull bool           `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

// Kind returns the storage kind implied by the declared column type.
func (c Column) Kind() typemap.Kind {
	return typemap.ParseColumnType(c.Type)
}

// Config controls table creation and migration.
type Config struct {
	// AutoMigrate adds columns for fields that an existing table lacks.
	AutoMigrate bool

	// Logger receives table create and migrate events. Nil discards.
	Logger *slog.Logger
}

// Manager creates and migrates one table per event kind.
//
// Schema changes are serialized per table, so concurrent first saves of the
// same kind create the table exactly once. Tables already brought up to date
// for a descriptor are remembered and not introspected again.
type Manager struct {
	db     *sqlx.DB
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	locks   map[string]*sync.Mutex // folded table name -> lock
	current sync.Map               // *rowcodec.Descriptor -> struct{}
}

// NewManager returns a Manager operating on db.
func NewManager(db *sqlx.DB, cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		db:     db,
		cfg:    cfg,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *Manager) tableLock(name string) *sync.Mutex {
	key := rowcodec.Fold(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// EnsureTable makes sure the table for desc exists and, when auto-migration
// is enabled, has a column for every value in sample.
//
// sample is the encoded row about to be written; its Info decides each new
// column's type and nullability. Existing columns are never dropped,
// renamed or retyped. Columns added to an existing table are nullable, as
// SQLite cannot add a NOT NULL column without a default; older rows read
// back as the field's zero value.
//
// This function is idempotent.
func (m *Manager) EnsureTable(ctx context.Context, desc *rowcodec.Descriptor, sample []rowcodec.Value) error {
	if desc == nil || strings.TrimSpace(desc.Name) == "" {
		return storeerr.Argument("table", "table name must not be blank")
	}
	if _, ok := m.current.Load(desc); ok {
		return nil
	}

	lock := m.tableLock(desc.Name)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.current.Load(desc); ok {
		return nil
	}

	exists, err := m.TableExists(ctx, desc.Name)
	if err != nil {
		return err
	}

	if !exists {
		if err := m.create(ctx, desc.Name, sample); err != nil {
			return err
		}
	} else if m.cfg.AutoMigrate {
		if err := m.migrate(ctx, desc.Name, sample); err != nil {
			return err
		}
	}

	m.current.Store(desc, struct{}{})
	return nil
}

// create issues CREATE TABLE and the secondary indexes in one transaction.
func (m *Manager) create(ctx context.Context, table string, sample []rowcodec.Value) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	defer tx.Rollback()

	stmts := []string{CreateTableSQL(table, sample)}
	for _, col := range indexedColumns {
		if hasColumn(sample, col) {
			stmts = append(stmts, CreateIndexSQL(table, col))
		}
	}

	for _, stmt := range stmts {
		m.logger.Debug("schema statement", "sql", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	m.logger.Info("created table", "table", table, "columns", len(sample))
	return nil
}

// migrate adds the columns of sample missing from table.
func (m *Manager) migrate(ctx context.Context, table string, sample []rowcodec.Value) error {
	existing, err := m.Columns(ctx, table)
	if err != nil {
		return err
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[rowcodec.Fold(c.Name)] = true
	}

	var missing []rowcodec.Value
	for _, v := range sample {
		if !have[rowcodec.Fold(v.Column)] {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate table %s: %w", table, err)
	}
	defer tx.Rollback()

	for _, v := range missing {
		stmt := AddColumnSQL(table, v)
		m.logger.Debug("schema statement", "sql", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate table %s: add column %s: %w", table, v.Column, err)
		}
		m.logger.Info("added column", "table", table, "column", v.Column, "type", typemap.ColumnType(v.Info.Kind))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate table %s: %w", table, err)
	}
	return nil
}

// TableExists reports whether a table with the given name exists, ignoring case.
func (m *Manager) TableExists(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, storeerr.Argument("table", "table name must not be blank")
	}

	var count int
	err := m.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, name)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

// Columns returns the columns of table in declaration order.
// A missing table yields an empty slice.
func (m *Manager) Columns(ctx context.Context, table string) ([]Column, error) {
	if strings.TrimSpace(table) == "" {
		return nil, storeerr.Argument("table", "table name must not be blank")
	}

	cols := []Column{}
	if err := m.db.SelectContext(ctx, &cols, "PRAGMA table_info("+querysql.QuoteIdent(table)+")"); err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	return cols, nil
}

// Tables lists user tables in name order.
func (m *Manager) Tables(ctx context.Context) ([]string, error) {
	names := []string{}
	err := m.db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

func hasColumn(values []rowcodec.Value, column string) bool {
	want := rowcodec.Fold(column)
	for _, v := range values {
		if rowcodec.Fold(v.Column) == want {
			return true
		}
	}
	return false
}
