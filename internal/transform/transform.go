// Package transform holds the fitted result of a step: an immutable mapping
// from column name to the scalar that replaces its missing values.
package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/imputer/internal/ir"
)

// FillNA is a fitted null-substitution mapping.
//
// The column list fixes iteration order; every column has exactly one
// value. A FillNA never changes after New returns it.
type FillNA struct {
	columns []string
	values  ir.Row
}

// New builds a FillNA from an ordered column list and its values. Both
// inputs are copied.
//
// It rejects structural contract violations only: duplicate or empty column
// names, a missing or nil value for a listed column, and values for
// unlisted columns. An ir.Null value is valid.
func New(columns []string, values ir.Row) (*FillNA, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("transform: empty column name")
		}
		if seen[c] {
			return nil, fmt.Errorf("transform: duplicate column %q", c)
		}
		seen[c] = true

		v, ok := values[c]
		if !ok {
			return nil, fmt.Errorf("transform: no value for column %q", c)
		}
		if v == nil {
			return nil, fmt.Errorf("transform: nil value for column %q", c)
		}
	}
	for _, k := range values.SortedKeys() {
		if !seen[k] {
			return nil, fmt.Errorf("transform: value for unlisted column %q", k)
		}
	}

	return &FillNA{
		columns: append([]string{}, columns...),
		values:  values.Clone(),
	}, nil
}

// Columns returns the columns in resolution order.
func (f *FillNA) Columns() []string {
	return append([]string{}, f.columns...)
}

// Value returns the substitution value for a column.
func (f *FillNA) Value(column string) (ir.Value, bool) {
	v, ok := f.values[column]
	return v, ok
}

// Values returns a copy of the whole mapping.
func (f *FillNA) Values() ir.Row {
	return f.values.Clone()
}

// Len returns the number of columns.
func (f *FillNA) Len() int {
	return len(f.columns)
}

// Equal reports whether two transforms map the same columns, in the same
// order, to values of the same kind and value.
func (f *FillNA) Equal(other *FillNA) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.columns) != len(other.columns) {
		return false
	}
	for i, c := range f.columns {
		if other.columns[i] != c {
			return false
		}
		if !ir.Equal(f.values[c], other.values[c]) {
			return false
		}
	}
	return true
}

// String renders the mapping in column order: FillNA(age=41.5, ward="B").
func (f *FillNA) String() string {
	parts := make([]string, len(f.columns))
	for i, c := range f.columns {
		parts[i] = c + "=" + ir.Format(f.values[c])
	}
	return "FillNA(" + strings.Join(parts, ", ") + ")"
}

// ID returns the content-addressed identity of the mapping.
func (f *FillNA) ID() (string, error) {
	return ir.TransformID(f.columns, f.values)
}

// MarshalJSON encodes the transform canonically:
//
//	{"columns":["age","ward"],"values":{"age":41.5,"ward":"B"}}
func (f *FillNA) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(map[string]any{
		"columns": f.columns,
		"values":  f.values,
	})
}

// UnmarshalJSON decodes the canonical form and re-checks its structure.
func (f *FillNA) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []string `json:"columns"`
		Values  ir.Row   `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if raw.Columns == nil {
		raw.Columns = []string{}
	}
	if raw.Values == nil {
		raw.Values = ir.Row{}
	}
	built, err := New(raw.Columns, raw.Values)
	if err != nil {
		return err
	}
	*f = *built
	return nil
}
