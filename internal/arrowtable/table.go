// Package arrowtable is the in-memory engine: fit training data held in an
// Apache Arrow table, loaded from CSV or Parquet or built from Go rows.
//
// Statistics are computed in Go over the column chunks. Nulls are skipped;
// floating-point NaN is treated as missing as well.
package arrowtable

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
)

// Table wraps an arrow.Table as a fit training table.
type Table struct {
	name   string
	data   arrow.Table
	schema meta.Schema
}

// New wraps data under the given name. The table is retained; call Release
// when done.
func New(name string, data arrow.Table) *Table {
	data.Retain()

	fields := data.Schema().Fields()
	schema := make(meta.Schema, len(fields))
	for i, f := range fields {
		schema[i] = meta.Column{Name: f.Name, Type: typeOf(f.Type)}
	}
	return &Table{name: name, data: data, schema: schema}
}

// Release drops the reference taken by New.
func (t *Table) Release() {
	t.data.Release()
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the columns in field order.
func (t *Table) Schema() meta.Schema { return t.schema }

// Arrow returns the underlying table. The caller must not release it.
func (t *Table) Arrow() arrow.Table { return t.data }

// NumRows returns the number of rows.
func (t *Table) NumRows() int64 { return t.data.NumRows() }

// Execute computes every measure in one pass per column.
func (t *Table) Execute(ctx context.Context, agg queryir.Aggregate) (ir.Row, error) {
	if agg.From != t.name {
		return nil, fmt.Errorf("aggregate over %q sent to table %q", agg.From, t.name)
	}
	if err := agg.Check(); err != nil {
		return nil, err
	}

	row := make(ir.Row, len(agg.Measures))
	for _, m := range agg.Measures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values, err := t.columnValues(m.Column)
		if err != nil {
			return nil, err
		}

		var v ir.Value
		switch m.Stat {
		case queryir.StatMean:
			v, err = mean(values)
		case queryir.StatMedian:
			v, err = median(values)
		case queryir.StatMode:
			v = mode(values)
		default:
			err = fmt.Errorf("unsupported statistic: %s", m.Stat)
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", m.Column, err)
		}
		row[m.Alias] = v
	}
	return row, nil
}

// columnValues returns the non-null values of a column in row order.
func (t *Table) columnValues(name string) ([]ir.Value, error) {
	idx := t.data.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("column %q not in table %s", name, t.name)
	}

	col := t.data.Column(idx[0])
	out := make([]ir.Value, 0, col.Len()-col.NullN())
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				continue
			}
			v, err := valueAt(chunk, i)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			if ir.IsNull(v) {
				continue
			}
			out = append(out, v)
		}
	}
	return out, nil
}
