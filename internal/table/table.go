// Package table defines the contract between the fit core and the engines
// that hold training data.
package table

import (
	"context"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
)

// Table is a schema-bearing dataset that can evaluate aggregates.
//
// Execute runs every measure of agg over the full table as ONE query and
// returns one row keyed by measure alias. Nulls are ignored by every
// statistic; a measure over a column with no non-null values is ir.Null.
// Mean and median results are ir.Float; mode results keep the column's
// native kind.
//
// Implementations own their connections. The fit core never opens, closes
// or retries anything.
type Table interface {
	Name() string
	Schema() meta.Schema
	Execute(ctx context.Context, agg queryir.Aggregate) (ir.Row, error)
}
