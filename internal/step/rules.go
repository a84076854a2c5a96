package step

import (
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
)

// statRule is the per-column aggregation rule of one statistic variant.
type statRule struct {
	stat        queryir.Stat
	numericOnly bool
}

// check rejects a column whose type the statistic is undefined for.
func (r statRule) check(column string, dt meta.DataType) error {
	if r.numericOnly && !dt.IsNumeric() {
		return newTypeError(column, r.stat.String(), dt)
	}
	return nil
}

// measure builds the aggregate for one column, labelled by the column name.
func (r statRule) measure(column string) queryir.Measure {
	return queryir.Measure{Column: column, Stat: r.stat, Alias: column}
}

// ruleFor returns the aggregation rule of a statistic variant. Adding a
// statistic means adding a queryir.Stat, a Kind and one case here.
func ruleFor(k Kind) (statRule, bool) {
	switch k {
	case KindImputeMean:
		return statRule{stat: queryir.StatMean, numericOnly: true}, true
	case KindImputeMedian:
		return statRule{stat: queryir.StatMedian, numericOnly: true}, true
	case KindImputeMode:
		return statRule{stat: queryir.StatMode}, true
	default:
		return statRule{}, false
	}
}
