// Package step declares null-handling steps and fits them against a table.
//
// A Step is built once from a column selection and, for FillNA, a constant.
// Fit resolves the selection against a concrete table, computes one
// substitution value per column and returns a transform.FillNA. Statistic
// steps issue exactly one aggregate query per fit, whatever the number of
// columns; FillNA and empty selections issue none.
//
// Fit is synchronous and keeps no state between calls, so the same Step can
// be fitted any number of times, from any number of goroutines.
package step

import (
	"context"
	"fmt"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
	"github.com/roach88/imputer/internal/selector"
	"github.com/roach88/imputer/internal/table"
	"github.com/roach88/imputer/internal/transform"
)

// Kind is the closed set of step variants.
type Kind int

const (
	KindFillNA Kind = iota + 1
	KindImputeMean
	KindImputeMedian
	KindImputeMode
)

var kindNames = map[Kind]string{
	KindFillNA:       "FillNA",
	KindImputeMean:   "ImputeMean",
	KindImputeMedian: "ImputeMedian",
	KindImputeMode:   "ImputeMode",
}

// String returns the variant name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Step is an immutable null-handling declaration.
type Step struct {
	kind   Kind
	inputs selector.Selector
	fill   ir.Value
}

// New builds a step of any kind. inputs is anything selector.Normalize
// accepts. fill is the FillNA constant (any value ir.FromGo accepts) and
// must be nil for the other kinds.
func New(kind Kind, inputs any, fill any) (Step, error) {
	if _, ok := kindNames[kind]; !ok {
		return Step{}, fmt.Errorf("unknown step kind %d", int(kind))
	}

	sel, err := selector.Normalize(inputs)
	if err != nil {
		return Step{}, fmt.Errorf("%s inputs: %w", kind, err)
	}

	s := Step{kind: kind, inputs: sel}
	if kind == KindFillNA {
		v, err := ir.FromGo(fill)
		if err != nil {
			return Step{}, fmt.Errorf("FillNA fill_value: %w", err)
		}
		if ir.IsNull(v) {
			return Step{}, fmt.Errorf("FillNA requires a non-null fill_value")
		}
		s.fill = v
	} else if fill != nil {
		return Step{}, fmt.Errorf("%s takes no fill value", kind)
	}
	return s, nil
}

// FillNA replaces missing values in the selected columns with fill.
func FillNA(inputs any, fill any) (Step, error) {
	return New(KindFillNA, inputs, fill)
}

// ImputeMean replaces missing values with the column mean. Numeric columns only.
func ImputeMean(inputs any) (Step, error) {
	return New(KindImputeMean, inputs, nil)
}

// ImputeMedian replaces missing values with the column median. Numeric columns only.
func ImputeMedian(inputs any) (Step, error) {
	return New(KindImputeMedian, inputs, nil)
}

// ImputeMode replaces missing values with the most frequent value.
func ImputeMode(inputs any) (Step, error) {
	return New(KindImputeMode, inputs, nil)
}

// Kind returns the step variant.
func (s Step) Kind() Kind { return s.kind }

// Inputs returns the normalized column selection.
func (s Step) Inputs() selector.Selector { return s.inputs }

// FillValue returns the FillNA constant; nil for other kinds.
func (s Step) FillValue() ir.Value { return s.fill }

// String renders the step as ImputeMean(numeric()) or FillNA(cols("a"), 0).
func (s Step) String() string {
	if s.inputs == nil {
		return s.kind.String() + "()"
	}
	if s.kind == KindFillNA {
		return fmt.Sprintf("FillNA(%s, %s)", s.inputs, ir.Format(s.fill))
	}
	return fmt.Sprintf("%s(%s)", s.kind, s.inputs)
}

// Fit resolves the selection against tbl and computes the substitution
// values. md may be nil; a column's metadata type wins over its schema type.
//
// Errors: selection and engine errors are returned unmodified; type
// violations are a *FitError with code TYPE_INCOMPATIBLE, raised before any
// query runs.
func (s Step) Fit(ctx context.Context, tbl table.Table, md *meta.Metadata) (*transform.FillNA, error) {
	if s.inputs == nil {
		return nil, &FitError{Code: ErrCodeInvalidStep, Message: "step has no inputs; build it with a constructor"}
	}

	schema := tbl.Schema()
	columns, err := selector.Resolve(s.inputs, schema, md)
	if err != nil {
		return nil, err
	}

	if s.kind == KindFillNA {
		values := make(ir.Row, len(columns))
		for _, c := range columns {
			values[c] = s.fill
		}
		return transform.New(columns, values)
	}

	rule, ok := ruleFor(s.kind)
	if !ok {
		return nil, &FitError{Code: ErrCodeInvalidStep, Message: fmt.Sprintf("no aggregation rule for %s", s.kind)}
	}

	measures := make([]queryir.Measure, 0, len(columns))
	for _, c := range columns {
		dt, _ := meta.ColumnType(schema, md, c)
		if err := rule.check(c, dt); err != nil {
			return nil, err
		}
		measures = append(measures, rule.measure(c))
	}

	if len(measures) == 0 {
		return transform.New(columns, ir.Row{})
	}

	row, err := tbl.Execute(ctx, queryir.Aggregate{From: tbl.Name(), Measures: measures})
	if err != nil {
		return nil, err
	}

	return fromResult(columns, rule.stat, row)
}

// fromResult checks the engine row against the requested columns and wraps
// it into a transform.
func fromResult(columns []string, stat queryir.Stat, row ir.Row) (*transform.FillNA, error) {
	values := make(ir.Row, len(columns))
	for _, c := range columns {
		v, ok := row[c]
		if !ok {
			fe := newBadResult(c, "engine result has no %s value for column %q", stat, c)
			fe.Stat = stat.String()
			return nil, fe
		}
		if v == nil {
			v = ir.Null{}
		}
		values[c] = v
	}
	if len(row) != len(columns) {
		for _, k := range row.SortedKeys() {
			if _, ok := values[k]; !ok {
				fe := newBadResult(k, "engine result has unrequested column %q", k)
				fe.Stat = stat.String()
				return nil, fe
			}
		}
	}
	return transform.New(columns, values)
}
