package event

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Column names of the inherited DomainEvent fields.
const (
	ColumnID         = "Id"
	ColumnTimeStamp  = "TimeStamp"
	ColumnTimelineID = "TimelineId"
)

// TickResolution is the smallest timestamp step that survives storage.
// Timestamps are persisted as 100ns ticks (or ISO-8601 text with 7 fractional digits).
const TickResolution = 100 * time.Nanosecond

// DomainEvent carries the fields every event kind inherits.
//
// Event kinds embed DomainEvent by value:
//
//	type PlainEvent struct {
//	    event.DomainEvent
//	    AggregateID uuid.UUID
//	    Title       string
//	}
//
// ID and TimeStamp are assigned once by NewDomainEvent and never reassigned.
// A nil TimelineID denotes the main timeline.
type DomainEvent struct {
	ID         uuid.UUID  `event:"Id"`
	TimeStamp  time.Time  `event:"TimeStamp"`
	TimelineID *uuid.UUID `event:"TimelineId"`
}

// NewDomainEvent returns a DomainEvent with a fresh UUIDv7 and the current UTC time.
func NewDomainEvent() DomainEvent {
	return DomainEvent{
		ID:        uuid.Must(uuid.NewV7()),
		TimeStamp: time.Now().UTC().Truncate(TickResolution),
	}
}

// NewDomainEventAt returns a DomainEvent stamped with the given instant.
func NewDomainEventAt(at time.Time) DomainEvent {
	e := NewDomainEvent()
	e.TimeStamp = at.UTC().Truncate(TickResolution)
	return e
}

// OnTimeline returns a copy of e attached to the given timeline branch.
func (e DomainEvent) OnTimeline(timelineID uuid.UUID) DomainEvent {
	id := timelineID
	e.TimelineID = &id
	return e
}

// Domain returns the embedded base so every kind satisfies Event through a pointer.
func (e *DomainEvent) Domain() *DomainEvent {
	return e
}

// Event is implemented by pointers to structs embedding DomainEvent.
type Event interface {
	Domain() *DomainEvent
}

// Pointer constrains a type parameter T so that *T is an Event.
// Used by generic readers: Find[T, PT Pointer[T]].
type Pointer[T any] interface {
	*T
	Event
}

// EventMapping pairs an event kind with the field holding its aggregate id.
// Supplied by the surrounding framework to drive point-in-time retrieval.
type EventMapping struct {
	Kind             reflect.Type
	AggregateIDField string
}

// MappingFor builds an EventMapping for kind T.
func MappingFor[T any](aggregateIDField string) EventMapping {
	return EventMapping{
		Kind:             reflect.TypeFor[T](),
		AggregateIDField: aggregateIDField,
	}
}

// Dispatcher delivers saved events to subscribers.
// The store never calls it; the writer package invokes it after a successful save.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, ev Event) error

// Dispatch calls f(ctx, ev).
func (f DispatcherFunc) Dispatch(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
