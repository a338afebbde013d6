// Package event defines the shapes shared by the store and its callers:
// the DomainEvent base embedded by every event kind, EventMapping records
// used for aggregate reconstruction, and the Dispatcher contract.
//
// An event kind is any struct embedding DomainEvent. Its table is named after
// the Go type, and each exported field becomes a column. Field tags tune the
// mapping:
//
//	Title   string `event:"Caption"`    // column name override
//	Cache   []byte `event:"-"`          // not persisted
//	Comment string `event:",optional"`  // late-bound, may be absent from older rows
package event
