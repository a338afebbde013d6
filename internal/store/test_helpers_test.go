package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
)

// PlainEvent is the reference kind: one field per common category.
type PlainEvent struct {
	event.DomainEvent
	AggregateID uuid.UUID `event:"AggregateId"`
	Title       string
	Date        time.Time
	Number      float64
}

type Genre int

const (
	GenreDrama Genre = iota + 1
	GenreSciFi
)

type Cast struct {
	Lead    string   `json:"lead"`
	Support []string `json:"support"`
}

// ComplexEvent covers the remaining field categories.
type ComplexEvent struct {
	event.DomainEvent
	MovieID  uuid.UUID
	Related  *uuid.UUID
	Genre    Genre
	Rating   int8
	Views    uint64
	Released bool
	Runtime  time.Duration
	Poster   []byte
	Cast     Cast
	Tags     []string
	Extra    map[string]int
	Note     *string `event:",optional"`
}

// RenamedEvent is a second kind sharing aggregate ids with PlainEvent.
type RenamedEvent struct {
	event.DomainEvent
	MovieID  uuid.UUID
	OldTitle string
	NewTitle string
}

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func plainEvent(at time.Time, aggregateID uuid.UUID, title string, number float64) *PlainEvent {
	return &PlainEvent{
		DomainEvent: event.NewDomainEventAt(at),
		AggregateID: aggregateID,
		Title:       title,
		Date:        at,
		Number:      number,
	}
}

var (
	testEpoch     = time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)
	testAggregate = uuid.MustParse("0190f5a4-7d1e-7c3a-9b2f-3c4d5e6f7a8b")
)

var plainMapping = []event.EventMapping{event.MappingFor[PlainEvent]("AggregateId")}

func timestamps(events []event.Event) []time.Time {
	out := make([]time.Time, len(events))
	for i, ev := range events {
		out[i] = ev.Domain().TimeStamp
	}
	return out
}

func ids(events []event.Event) []uuid.UUID {
	out := make([]uuid.UUID, len(events))
	for i, ev := range events {
		out[i] = ev.Domain().ID
	}
	return out
}
