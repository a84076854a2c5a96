package arrowtable

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/imputer/internal/ir"
)

// quotientPlaces bounds the digits kept after the point when dividing.
const quotientPlaces = 32

func toFloats(values []ir.Value) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case ir.Int:
			out[i] = float64(n)
		case ir.Float:
			out[i] = float64(n)
		default:
			return nil, fmt.Errorf("non-numeric value of kind %s", v.Kind())
		}
	}
	return out, nil
}

func mean(values []ir.Value) (ir.Value, error) {
	if len(values) == 0 {
		return ir.Null{}, nil
	}
	nums, err := toFloats(values)
	if err != nil {
		return nil, err
	}
	total, ok := exactSum(nums)
	if !ok {
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return ir.FromGo(sum / float64(len(nums)))
	}
	avg := total.DivRound(decimal.NewFromInt(int64(len(nums))), quotientPlaces)
	return ir.Float(avg.InexactFloat64()), nil
}

// exactSum adds nums without rounding, so the result does not depend on
// row order. It reports false when a value is NaN or infinite.
func exactSum(nums []float64) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, n := range nums {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		total = total.Add(decimal.NewFromFloat(n))
	}
	return total, true
}

func median(values []ir.Value) (ir.Value, error) {
	if len(values) == 0 {
		return ir.Null{}, nil
	}
	nums, err := toFloats(values)
	if err != nil {
		return nil, err
	}
	slices.Sort(nums)

	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return ir.FromGo(nums[mid])
	}
	pair, ok := exactSum(nums[mid-1 : mid+1])
	if !ok {
		return ir.FromGo((nums[mid-1] + nums[mid]) / 2)
	}
	return ir.Float(pair.Div(decimal.NewFromInt(2)).InexactFloat64()), nil
}

// mode returns the most frequent value; ties go to the smallest value.
func mode(values []ir.Value) ir.Value {
	if len(values) == 0 {
		return ir.Null{}
	}

	counts := make(map[ir.Value]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	var best ir.Value
	bestCount := 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && ir.Compare(v, best) < 0) {
			best, bestCount = v, n
		}
	}
	return best
}
