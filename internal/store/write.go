package store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/rowcodec"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

// Save inserts ev into the table of its kind, creating or migrating the
// table first. One INSERT per call; there is no multi-event transaction.
//
// A nil event is an argument error, as is an event without an Id.
// Saving the same Id twice fails with the engine's constraint error.
func (s *Store) Save(ctx context.Context, ev event.Event) error {
	if isNilEvent(ev) {
		return storeerr.Argument("event", "must not be nil")
	}
	if ev.Domain().ID == uuid.Nil {
		return storeerr.Argument("event.Id", "must be assigned")
	}

	desc, err := rowcodec.DescribeValue(ev)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}

	values, err := rowcodec.EncodeRow(desc, ev, s.opts.dateAsTicks)
	if err != nil {
		return fmt.Errorf("save %s: %w", desc.Name, err)
	}

	if err := s.schema.EnsureTable(ctx, desc, values); err != nil {
		return fmt.Errorf("save %s: %w", desc.Name, err)
	}

	record := make(goqu.Record, len(values))
	for _, v := range values {
		record[v.Column] = v.Value
	}

	query, args, err := s.dialect.Insert(goqu.T(desc.Name)).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return fmt.Errorf("save %s: build insert: %w", desc.Name, err)
	}

	s.logger.Debug("save event", "kind", desc.Name, "id", ev.Domain().ID, "sql", query)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s: %w", desc.Name, err)
	}

	return nil
}

func isNilEvent(ev event.Event) bool {
	if ev == nil {
		return true
	}
	v := reflect.ValueOf(ev)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
