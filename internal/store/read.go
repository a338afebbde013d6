package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/predicate"
	"github.com/thunderluca/mementofx-sqlite/internal/querysql"
	"github.com/thunderluca/mementofx-sqlite/internal/rowcodec"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

// Find returns every stored event of kind T matching filter.
// A nil filter matches every row. Results are in insertion order.
//
// Returns an empty slice (not nil) if the kind has never been saved.
func Find[T any, PT event.Pointer[T]](ctx context.Context, s *Store, filter predicate.Expr) ([]PT, error) {
	desc, err := rowcodec.Describe(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	rows, err := s.find(ctx, desc, filter)
	if err != nil {
		return nil, err
	}

	out := make([]PT, 0, len(rows))
	for _, raw := range rows {
		v, err := rowcodec.DecodeRow(desc, raw, s.opts.dateAsTicks)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", desc.Name, err)
		}
		out = append(out, v.Interface().(PT))
	}
	return out, nil
}

// FindKind is Find for a kind known only at run time.
func (s *Store) FindKind(ctx context.Context, kind reflect.Type, filter predicate.Expr) ([]event.Event, error) {
	desc, err := rowcodec.Describe(kind)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return s.findEvents(ctx, desc, filter)
}

// RetrieveEvents reconstructs the history of one aggregate as of pointInTime.
//
// For each distinct kind in mappings it selects the events whose aggregate
// field equals aggregateID (several fields of one kind are ORed), whose
// TimeStamp is at or before pointInTime, and which belong to the main
// timeline or to timelineID when non-nil. Kinds with no table are skipped.
// The union is sorted by TimeStamp; events with equal timestamps keep
// kind-then-insertion order.
func (s *Store) RetrieveEvents(
	ctx context.Context,
	aggregateID uuid.UUID,
	pointInTime time.Time,
	mappings []event.EventMapping,
	timelineID *uuid.UUID,
) ([]event.Event, error) {
	groups, err := groupMappings(mappings)
	if err != nil {
		return nil, err
	}

	timeline := predicate.Expr(predicate.Field(event.ColumnTimelineID).IsNull())
	if timelineID != nil {
		timeline = predicate.Or(timeline, predicate.Field(event.ColumnTimelineID).Eq(*timelineID))
	}

	result := []event.Event{}
	for _, g := range groups {
		desc, err := rowcodec.Describe(g.kind)
		if err != nil {
			return nil, fmt.Errorf("retrieve events: %w", err)
		}

		aggregate := make([]predicate.Expr, 0, len(g.fields))
		for _, field := range g.fields {
			aggregate = append(aggregate, predicate.Field(field).Eq(aggregateID))
		}

		filter := predicate.And(
			predicate.Or(aggregate...),
			predicate.Field(event.ColumnTimeStamp).Le(pointInTime),
			timeline,
		)

		events, err := s.findEvents(ctx, desc, filter)
		if err != nil {
			return nil, err
		}
		result = append(result, events...)
	}

	slices.SortStableFunc(result, func(a, b event.Event) int {
		return a.Domain().TimeStamp.Compare(b.Domain().TimeStamp)
	})
	return result, nil
}

type mappingGroup struct {
	kind   reflect.Type
	fields []string
}

// groupMappings groups mappings by kind in first-seen order, dropping
// repeated fields.
func groupMappings(mappings []event.EventMapping) ([]mappingGroup, error) {
	var groups []mappingGroup
	index := map[reflect.Type]int{}

	for i, m := range mappings {
		if m.Kind == nil {
			return nil, storeerr.Argument(fmt.Sprintf("mappings[%d].Kind", i), "must not be nil")
		}
		if m.AggregateIDField == "" {
			return nil, storeerr.Argument(fmt.Sprintf("mappings[%d].AggregateIDField", i), "must not be empty")
		}

		kind := m.Kind
		for kind.Kind() == reflect.Pointer {
			kind = kind.Elem()
		}

		gi, ok := index[kind]
		if !ok {
			gi = len(groups)
			index[kind] = gi
			groups = append(groups, mappingGroup{kind: kind})
		}
		if !slices.Contains(groups[gi].fields, m.AggregateIDField) {
			groups[gi].fields = append(groups[gi].fields, m.AggregateIDField)
		}
	}
	return groups, nil
}

func (s *Store) findEvents(ctx context.Context, desc *rowcodec.Descriptor, filter predicate.Expr) ([]event.Event, error) {
	rows, err := s.find(ctx, desc, filter)
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(rows))
	for _, raw := range rows {
		ev, err := rowcodec.DecodeEvent(desc, raw, s.opts.dateAsTicks)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", desc.Name, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// find runs the filtered SELECT for one kind and returns the raw rows.
func (s *Store) find(ctx context.Context, desc *rowcodec.Descriptor, filter predicate.Expr) ([]map[string]any, error) {
	exists, err := s.schema.TableExists(ctx, desc.Name)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", desc.Name, err)
	}
	if !exists {
		return []map[string]any{}, nil
	}

	if err := predicate.Validate(filter, desc.HasColumn); err != nil {
		return nil, fmt.Errorf("find %s: %w", desc.Name, err)
	}

	compiled, err := querysql.Compile(filter, s.mapper.EncodeValue)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", desc.Name, err)
	}

	ds := s.dialect.From(goqu.T(desc.Name)).Prepared(true)
	if !compiled.Empty() {
		ds = ds.Where(goqu.L(compiled.SQL, compiled.Params...))
	}
	query, args, err := ds.Order(goqu.L("rowid").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("find %s: build select: %w", desc.Name, err)
	}

	s.logger.Debug("find events", "kind", desc.Name, "sql", query, "params", len(args))

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", desc.Name, err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		raw := map[string]any{}
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", desc.Name, err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: iterate: %w", desc.Name, err)
	}
	return out, nil
}
