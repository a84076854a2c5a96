// Package queryir provides the abstract aggregate request a fit hands to a
// table engine.
//
// QueryIR is the boundary between the fit core and the engines that run
// its statistics:
//
//	[step rules] -> [Aggregate] -> [querysql: SQLite, PostgreSQL]
//	                            -> [arrowtable: in-memory]
//
// An Aggregate names one source table and a list of Measures. Each Measure
// is one statistic over one column, labelled by an alias. Every engine
// evaluates all measures over the full table and returns exactly one row
// keyed by alias. Nulls never contribute to a statistic; a column with no
// non-null values yields null.
//
// SEALED INTERFACES:
//
// Query is a sealed interface using the marker method pattern. Only types
// in this package implement it, so engines can switch exhaustively:
//
//	switch q := query.(type) {
//	case Aggregate:
//	    // Handle aggregate
//	default:
//	    // Impossible - compiler knows all Query types
//	}
//
// PORTABLE FRAGMENT:
//
// Mean maps to the standard AVG aggregate on every SQL backend. Median and
// mode have no standard spelling: PostgreSQL has ordered-set aggregates,
// SQLite needs an ordered subquery. Validate reports those measures as
// backend-specific so callers can tell which queries depend on dialect
// support.
package queryir
