package queryir

import "fmt"

// ValidationResult contains portability analysis of a query.
type ValidationResult struct {
	// IsPortable indicates the query uses only statistics every SQL
	// backend spells the same way.
	IsPortable bool

	// Warnings lists backend-specific features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query stays inside the portable fragment.
//
// Non-portable queries are allowed and execute correctly on every bundled
// engine. Warnings inform callers that a new backend must supply its own
// spelling of the flagged statistics.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addWarning("nil query - portable fragment requires valid query nodes")
		return
	}

	switch query := q.(type) {
	case Aggregate:
		v.validateAggregate(query)
	case *Aggregate:
		v.validateAggregate(*query)
	default:
		v.addWarning("Unknown query type: %T - portability cannot be verified", q)
	}
}

func (v *validator) validateAggregate(agg Aggregate) {
	for _, m := range agg.Measures {
		switch m.Stat {
		case StatMean:
			// AVG is standard SQL
		case StatMedian:
			v.addWarning("Column '%s' uses median - no standard SQL aggregate, backend-specific", m.Column)
		case StatMode:
			v.addWarning("Column '%s' uses mode - no standard SQL aggregate, backend-specific", m.Column)
		default:
			v.addWarning("Column '%s' uses unknown statistic %d", m.Column, int(m.Stat))
		}
	}
}
