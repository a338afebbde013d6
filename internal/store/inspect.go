package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/thunderluca/mementofx-sqlite/internal/schema"
)

// Tables lists the event tables in name order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	return s.schema.Tables(ctx)
}

// Columns returns the stored columns of table.
// A missing table yields an empty slice.
func (s *Store) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	return s.schema.Columns(ctx, table)
}

// RawRows returns up to limit rows of table as column -> driver value maps,
// in insertion order. A limit of zero or less means no limit.
// A missing table yields an empty slice.
func (s *Store) RawRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	exists, err := s.schema.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []map[string]any{}, nil
	}

	ds := s.dialect.From(goqu.T(table)).Prepared(true).Order(goqu.L("rowid").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: build select: %w", table, err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", table, err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		raw := map[string]any{}
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("read rows of %s: %w", table, err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", table, err)
	}
	return out, nil
}
