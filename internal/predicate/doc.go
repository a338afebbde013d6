// Package predicate provides the filter expression tree used to query event
// tables.
//
// An expression is a typed boolean tree over one event kind's fields. Callers
// build it with the helpers in this package and hand it to the store, which
// compiles it to parameterized SQL:
//
//	filter := predicate.And(
//	    predicate.Field("AggregateId").Eq(id),
//	    predicate.Field("Number").Mod(2).Eq(0),
//	)
//	events, err := store.Find[PlainEvent](ctx, s, filter)
//
// SEALED INTERFACE:
//
// Expr is sealed with a marker method. Only the node types in this package
// implement it, so compilers can switch over every variant:
//
//	FieldRef     column reference
//	Constant     literal or captured value, always bound as a parameter
//	Comparison   = <> < <= > >=
//	Logical      AND OR
//	Not          NOT
//	Arithmetic   + - * / % & | ^
//	Negate       unary minus
//	IsNull       IS NULL
//
// Field names are matched against the kind's columns case-insensitively.
// Validate reports references to columns the kind does not have.
package predicate
