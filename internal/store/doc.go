// Package store persists domain events in an embedded SQLite database.
//
// Every event kind gets its own table, named after the Go type, with one
// column per field. Tables are created on the first save of a kind and,
// with auto-migration enabled, widened when the kind gains fields:
//
//	s, err := store.Open("events.db")
//	err = s.Save(ctx, &PlainEvent{DomainEvent: event.NewDomainEvent(), Title: "Star Wars"})
//	movies, err := store.Find[PlainEvent](ctx, s, predicate.Field("Title").Eq("Star Wars"))
//
// # Storage rules
//
//   - Id is the primary key; Id, TimelineId and TimeStamp are indexed
//   - Date/time values are stored as INTEGER ticks (100ns since 0001-01-01 UTC)
//     or, with WithDateTimeAsTicks(false), as fixed-width ISO-8601 TEXT
//   - Struct, map, slice and interface fields are stored as JSON text
//   - Columns are only ever added, never dropped, renamed or retyped
//
// # Point-in-time retrieval
//
// RetrieveEvents returns every event of the mapped kinds for one aggregate
// with TimeStamp <= pointInTime, inclusive, on the main timeline and
// optionally one named branch, sorted by TimeStamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
package store
