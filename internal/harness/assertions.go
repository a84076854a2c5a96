package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/imputer/internal/ir"
)

// ExpectationError is returned when a fitted step does not match.
// It includes detailed context to help debug the failure.
type ExpectationError struct {
	Step     string
	Expected string
	Actual   string
	Fitted   []FittedStep
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFitted steps:\n")
	for i, f := range e.Fitted {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", i+1, f.Step, f.Definition, formatRow(f.Columns, f.Values))
	}

	return buf.String()
}

// EvaluateExpectations checks every non-error expectation against the
// fitted steps and returns one message per mismatch.
func EvaluateExpectations(result *Result, expect []Expectation) []string {
	var errs []string
	for _, e := range expect {
		if e.Error != "" {
			continue
		}
		if err := checkExpectation(result.Fitted, e); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func checkExpectation(fitted []FittedStep, e Expectation) error {
	var got *FittedStep
	for i := range fitted {
		if fitted[i].Step == e.Step {
			got = &fitted[i]
			break
		}
	}
	if got == nil {
		return &ExpectationError{Step: e.Step, Expected: "a fitted transform", Actual: "step was not fitted", Fitted: fitted}
	}

	if e.Columns != nil && !slices.Equal(e.Columns, got.Columns) {
		return &ExpectationError{
			Step:     e.Step,
			Expected: fmt.Sprintf("columns %v", e.Columns),
			Actual:   fmt.Sprintf("columns %v", got.Columns),
			Fitted:   fitted,
		}
	}

	for _, name := range sortedKeys(e.Values) {
		want, err := ir.FromGo(e.Values[name])
		if err != nil {
			return fmt.Errorf("step %s: expected value for %s: %w", e.Step, name, err)
		}
		have, ok := got.Values[name]
		if !ok {
			return &ExpectationError{
				Step:     e.Step,
				Expected: fmt.Sprintf("%s=%s", name, ir.Format(want)),
				Actual:   fmt.Sprintf("no value for %s", name),
				Fitted:   fitted,
			}
		}
		if !ir.Equal(want, have) {
			return &ExpectationError{
				Step:     e.Step,
				Expected: fmt.Sprintf("%s=%s (%s)", name, ir.Format(want), want.Kind()),
				Actual:   fmt.Sprintf("%s=%s (%s)", name, ir.Format(have), have.Kind()),
				Fitted:   fitted,
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatRow(columns []string, values ir.Row) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + "=" + ir.Format(values[c])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
