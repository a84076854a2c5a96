// Package selector turns a column selection into a concrete, ordered list
// of column names for a given table schema and metadata.
//
// Selector is a sealed interface: only the types in this package implement
// it, so Resolve can switch over every variant exhaustively.
//
//	Names          explicit names, in the order given; missing names fail
//	TypePredicate  numeric(), nominal(), temporal(), everything(), has_type(...)
//	RolePredicate  role("outcome")
//	NamePattern    contains/startswith/endswith/matches on the column name
//	Union          a | b        first-seen order
//	Intersection   a & b        order of the first operand
//	Negation       ~a           schema order
//
// Predicate selectors resolve in schema order and may resolve to nothing;
// only an explicit name that is absent from the schema is an error.
package selector
