package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imputer/internal/ir"
)

func fittedResult() *Result {
	r := NewResult(EngineArrow)
	r.Fitted = []FittedStep{
		{
			Step:       "nums",
			Definition: "ImputeMean(numeric())",
			Seq:        1,
			Columns:    []string{"a", "b"},
			Values:     ir.Row{"a": ir.Float(2), "b": ir.Null{}},
		},
		{
			Step:       "cats",
			Definition: "ImputeMode(nominal())",
			Seq:        2,
			Columns:    []string{"c"},
			Values:     ir.Row{"c": ir.String("x")},
		},
	}
	return r
}

func TestEvaluateExpectations_AllPass(t *testing.T) {
	errs := EvaluateExpectations(fittedResult(), []Expectation{
		{Step: "nums", Columns: []string{"a", "b"}, Values: map[string]any{"a": 2.0, "b": nil}},
		{Step: "cats", Values: map[string]any{"c": "x"}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateExpectations_SubsetMatch(t *testing.T) {
	errs := EvaluateExpectations(fittedResult(), []Expectation{
		{Step: "nums", Values: map[string]any{"a": 2.0}},
		{Step: "cats"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateExpectations_ErrorExpectationsSkipped(t *testing.T) {
	errs := EvaluateExpectations(fittedResult(), []Expectation{
		{Step: "never_fitted", Error: "TYPE_INCOMPATIBLE"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateExpectations_Failures(t *testing.T) {
	tests := []struct {
		name   string
		expect Expectation
		want   string
	}{
		{
			name:   "step not fitted",
			expect: Expectation{Step: "ghost"},
			want:   "step was not fitted",
		},
		{
			name:   "column order",
			expect: Expectation{Step: "nums", Columns: []string{"b", "a"}},
			want:   "columns [b a]",
		},
		{
			name:   "missing value",
			expect: Expectation{Step: "cats", Values: map[string]any{"d": "x"}},
			want:   "no value for d",
		},
		{
			name:   "wrong value",
			expect: Expectation{Step: "cats", Values: map[string]any{"c": "y"}},
			want:   `c="y" (string)`,
		},
		{
			name:   "int is not float",
			expect: Expectation{Step: "nums", Values: map[string]any{"a": 2}},
			want:   "a=2 (int)",
		},
		{
			name:   "null is not a value",
			expect: Expectation{Step: "nums", Values: map[string]any{"b": 0.0}},
			want:   "b=null (null)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateExpectations(fittedResult(), []Expectation{tt.expect})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateExpectations_UnsupportedExpectedValue(t *testing.T) {
	errs := EvaluateExpectations(fittedResult(), []Expectation{
		{Step: "cats", Values: map[string]any{"c": []int{1}}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "expected value for c")
}

func TestExpectationError_ErrorFormat(t *testing.T) {
	err := &ExpectationError{
		Step:     "cats",
		Expected: `c="y"`,
		Actual:   `c="x"`,
		Fitted:   fittedResult().Fitted,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Expectation failed: cats")
	assert.Contains(t, msg, `Expected: c="y"`)
	assert.Contains(t, msg, `Actual: c="x"`)
	assert.Contains(t, msg, "[1] nums ImputeMean(numeric()) -> {a=2.0, b=null}")
	assert.Contains(t, msg, `[2] cats ImputeMode(nominal()) -> {c="x"}`)
}
