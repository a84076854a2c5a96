package harness

import (
	"context"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/imputer/internal/arrowtable"
	"github.com/roach88/imputer/internal/compiler"
	"github.com/roach88/imputer/internal/engine"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/store"
	"github.com/roach88/imputer/internal/table"
	"github.com/roach88/imputer/internal/testutil"
)

// Run executes a scenario on every engine it names and returns one result
// per engine, in engine order.
//
// An error means the scenario itself could not run (bad CUE, bad rows);
// expectation failures are reported in the results.
func Run(ctx context.Context, scenario *Scenario) ([]*Result, error) {
	steps, err := compileSteps(scenario)
	if err != nil {
		return nil, err
	}

	var md *meta.Metadata
	if scenario.Metadata != nil {
		md = scenario.Metadata.Apply(nil)
	}

	var results []*Result
	for _, name := range scenario.engines() {
		result, err := runOn(ctx, name, scenario, steps, md)
		if err != nil {
			return nil, fmt.Errorf("%s engine: %w", name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func compileSteps(scenario *Scenario) ([]engine.NamedStep, error) {
	v := cuecontext.New().CompileString(scenario.Steps, cue.Filename(scenario.Name+".cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile steps: %w", err)
	}
	steps, err := compiler.CompileSteps(v)
	if err != nil {
		return nil, fmt.Errorf("compile steps: %w", err)
	}

	for _, e := range scenario.Expect {
		if !hasStep(steps, e.Step) {
			return nil, fmt.Errorf("expectation for undeclared step %q", e.Step)
		}
	}
	return steps, nil
}

// runOn fits the scenario on one engine.
//
// Steps expected to fail are fitted in their own batch; all others share
// one batch so their seqs are consecutive.
func runOn(ctx context.Context, engineName string, scenario *Scenario, steps []engine.NamedStep, md *meta.Metadata) (*Result, error) {
	tbl, cleanup, err := buildTable(ctx, engineName, scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	eng := engine.New(
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.Token())),
	)

	expectations := make(map[string]Expectation, len(scenario.Expect))
	for _, e := range scenario.Expect {
		expectations[e.Step] = e
	}

	result := NewResult(engineName)

	var batch []engine.NamedStep
	for _, ns := range steps {
		if expectations[ns.Name].Error == "" {
			batch = append(batch, ns)
		}
	}

	if len(batch) > 0 {
		fitted, err := eng.FitAll(ctx, tbl, md, batch)
		if err != nil {
			result.AddError(fmt.Sprintf("fit failed: %v", err))
		} else {
			for _, r := range fitted.Results {
				result.Fitted = append(result.Fitted, FittedStep{
					Step:       r.Name,
					Definition: r.Step.String(),
					Seq:        r.Seq,
					Columns:    r.Transform.Columns(),
					Values:     r.Transform.Values(),
				})
			}
		}
	}

	for _, ns := range steps {
		want := expectations[ns.Name].Error
		if want == "" {
			continue
		}
		_, err := eng.FitAll(ctx, tbl, md, []engine.NamedStep{ns})
		if got := errorCode(err); got != want {
			result.AddError(fmt.Sprintf("step %s: expected error %s, got %s (%v)", ns.Name, want, got, err))
		}
	}

	if result.Pass {
		for _, msg := range EvaluateExpectations(result, scenario.Expect) {
			result.AddError(msg)
		}
	}

	slog.Debug("scenario run",
		"scenario", scenario.Name,
		"engine", engineName,
		"pass", result.Pass,
	)
	return result, nil
}

// buildTable loads the scenario table into a fresh engine instance.
func buildTable(ctx context.Context, engineName string, scenario *Scenario) (table.Table, func(), error) {
	schema := scenario.schema()

	switch engineName {
	case EngineSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		cleanup := func() { st.Close() }
		if err := st.CreateTable(ctx, scenario.Table.Name, schema); err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := st.InsertRows(ctx, scenario.Table.Name, schema.Names(), scenario.Table.Rows); err != nil {
			cleanup()
			return nil, nil, err
		}
		tbl, err := st.Table(ctx, scenario.Table.Name)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return tbl, cleanup, nil

	case EngineArrow:
		tbl, err := arrowtable.FromRows(scenario.Table.Name, schema, scenario.Table.Rows)
		if err != nil {
			return nil, nil, err
		}
		return tbl, tbl.Release, nil

	default:
		return nil, nil, fmt.Errorf("unknown engine %q", engineName)
	}
}

// errorCode extracts the code of the root cause of a batch failure.
func errorCode(err error) string {
	if err == nil {
		return "none"
	}
	return engine.RootCode(err)
}

func hasStep(steps []engine.NamedStep, name string) bool {
	for _, ns := range steps {
		if ns.Name == name {
			return true
		}
	}
	return false
}
