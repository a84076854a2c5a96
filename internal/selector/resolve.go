package selector

import (
	"slices"

	"github.com/roach88/imputer/internal/meta"
)

// Resolve evaluates sel against a table schema and returns the selected
// column names. The result has no duplicates and every name is in schema.
//
// Explicit names keep the order they were given in; predicates follow
// schema order. md may be nil.
func Resolve(sel Selector, schema meta.Schema, md *meta.Metadata) ([]string, error) {
	if sel == nil {
		return nil, newInvalid("selection is nil")
	}

	switch s := sel.(type) {
	case Names:
		return resolveNames(s, schema)

	case TypePredicate:
		return filter(schema, func(c meta.Column) (bool, error) {
			dt, _ := meta.ColumnType(schema, md, c.Name)
			return s.matches(dt), nil
		})

	case RolePredicate:
		return filter(schema, func(c meta.Column) (bool, error) {
			return md.HasRole(c.Name, s.Role), nil
		})

	case NamePattern:
		return filter(schema, func(c meta.Column) (bool, error) {
			return s.matches(c.Name)
		})

	case Union:
		var out []string
		for _, child := range s.Selectors {
			cols, err := Resolve(child, schema, md)
			if err != nil {
				return nil, err
			}
			for _, c := range cols {
				if !slices.Contains(out, c) {
					out = append(out, c)
				}
			}
		}
		return nonNil(out), nil

	case Intersection:
		if len(s.Selectors) == 0 {
			return nil, newInvalid("intersection of no selectors")
		}
		out, err := Resolve(s.Selectors[0], schema, md)
		if err != nil {
			return nil, err
		}
		for _, child := range s.Selectors[1:] {
			cols, err := Resolve(child, schema, md)
			if err != nil {
				return nil, err
			}
			out = slices.DeleteFunc(out, func(c string) bool {
				return !slices.Contains(cols, c)
			})
		}
		return nonNil(out), nil

	case Negation:
		excluded, err := Resolve(s.Inner, schema, md)
		if err != nil {
			return nil, err
		}
		return filter(schema, func(c meta.Column) (bool, error) {
			return !slices.Contains(excluded, c.Name), nil
		})

	default:
		return nil, newInvalid("unknown selector type %T", sel)
	}
}

func resolveNames(s Names, schema meta.Schema) ([]string, error) {
	out := make([]string, 0, len(s.Columns))
	for _, name := range s.Columns {
		if !schema.Has(name) {
			return nil, newColumnNotFound(name)
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func filter(schema meta.Schema, keep func(meta.Column) (bool, error)) ([]string, error) {
	out := []string{}
	for _, c := range schema {
		ok, err := keep(c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c.Name)
		}
	}
	return out, nil
}

func nonNil(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}
