package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/imputer/internal/ir"
)

// Snapshot captures the fitted transforms of a scenario run.
// Engine names are left out so every engine must match the same file.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FitToken     string       `json:"fit_token"`
	Fitted       []FittedStep `json:"fitted"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, since ir.MarshalCanonical only handles IR types and
// primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	fitted := make([]any, len(s.Fitted))
	for i, f := range s.Fitted {
		fitted[i] = map[string]any{
			"step":       f.Step,
			"definition": f.Definition,
			"seq":        f.Seq,
			"columns":    f.Columns,
			"values":     f.Values,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"fit_token":     s.FitToken,
		"fitted":        fitted,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario on every engine, fails the test on any
// expectation mismatch, and compares each engine's snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	results, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, result := range results {
		for _, msg := range result.Errors {
			t.Errorf("%s engine: %s", result.Engine, msg)
		}
		if err := AssertGolden(t, g, scenario, result); err != nil {
			return err
		}
	}
	return nil
}

// AssertGolden compares one result against the scenario's golden file.
func AssertGolden(t *testing.T, g *goldie.Goldie, scenario *Scenario, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		FitToken:     scenario.Token(),
		Fitted:       result.Fitted,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g.Assert(t, scenario.Name, data)
	return nil
}
