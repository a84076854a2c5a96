package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
)

func wardScenario() *Scenario {
	return &Scenario{
		Name:        "wards",
		Description: "Ward table",
		FitToken:    "fit-wards",
		Table: TableDef{
			Name: "wards",
			Columns: []meta.Column{
				{Name: "beds", Type: meta.TypeInt},
				{Name: "occupancy", Type: meta.TypeFloat},
				{Name: "wing", Type: meta.TypeString},
			},
			Rows: [][]any{
				{10, 0.5, "east"},
				{20, nil, "west"},
				{nil, 0.75, "east"},
			},
		},
		Steps: `
step: counts: {kind: "impute_mean", inputs: {numeric: true}}
step: wings: {kind: "impute_mode", inputs: "wing"}
`,
		Expect: []Expectation{
			{Step: "counts", Columns: []string{"beds", "occupancy"}, Values: map[string]any{"beds": 15.0, "occupancy": 0.625}},
			{Step: "wings", Values: map[string]any{"wing": "east"}},
		},
	}
}

func TestRun_BothEngines(t *testing.T) {
	results, err := Run(context.Background(), wardScenario())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, EngineSQLite, results[0].Engine)
	assert.Equal(t, EngineArrow, results[1].Engine)

	for _, r := range results {
		assert.True(t, r.Pass, "%s: %v", r.Engine, r.Errors)
		assert.Empty(t, r.Errors)
		require.Len(t, r.Fitted, 2)

		counts, ok := r.Lookup("counts")
		require.True(t, ok)
		assert.Equal(t, int64(1), counts.Seq)
		assert.Equal(t, "ImputeMean(numeric())", counts.Definition)
		assert.Equal(t, ir.Float(15), counts.Values["beds"])

		wings, ok := r.Lookup("wings")
		require.True(t, ok)
		assert.Equal(t, int64(2), wings.Seq)
	}
	assert.Equal(t, results[0].Fitted, results[1].Fitted)
}

func TestRun_SingleEngine(t *testing.T) {
	scenario := wardScenario()
	scenario.Engines = []string{EngineArrow}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, EngineArrow, results[0].Engine)
	assert.True(t, results[0].Pass)
}

func TestRun_ValueMismatchFails(t *testing.T) {
	scenario := wardScenario()
	scenario.Expect[1].Values = map[string]any{"wing": "west"}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	for _, r := range results {
		assert.False(t, r.Pass)
		require.Len(t, r.Errors, 1)
		assert.Contains(t, r.Errors[0], "Expectation failed: wings")
		assert.Contains(t, r.Errors[0], `wing="west"`)
	}
}

func TestRun_IntegerExpectationDoesNotMatchFloat(t *testing.T) {
	scenario := wardScenario()
	scenario.Expect[0].Values = map[string]any{"beds": 15}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Pass)
	}
}

func TestRun_ColumnOrderMismatchFails(t *testing.T) {
	scenario := wardScenario()
	scenario.Expect[0].Columns = []string{"occupancy", "beds"}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Pass)
		assert.Contains(t, r.Errors[0], "columns [occupancy beds]")
	}
}

func TestRun_ErrorExpectations(t *testing.T) {
	scenario := wardScenario()
	scenario.Steps += `
step: bad_type: {kind: "impute_median", inputs: "wing"}
step: bad_col: {kind: "impute_mode", inputs: ["beds", "floor"]}
`
	scenario.Expect = append(scenario.Expect,
		Expectation{Step: "bad_type", Error: "TYPE_INCOMPATIBLE"},
		Expectation{Step: "bad_col", Error: "COLUMN_NOT_FOUND"},
	)

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	for _, r := range results {
		assert.True(t, r.Pass, "%s: %v", r.Engine, r.Errors)
		assert.Len(t, r.Fitted, 2)
		_, ok := r.Lookup("bad_type")
		assert.False(t, ok)
	}
}

func TestRun_UnexpectedSuccessFails(t *testing.T) {
	scenario := wardScenario()
	scenario.Expect[1] = Expectation{Step: "wings", Error: "TYPE_INCOMPATIBLE"}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	for _, r := range results {
		assert.False(t, r.Pass)
		require.Len(t, r.Errors, 1)
		assert.Contains(t, r.Errors[0], "expected error TYPE_INCOMPATIBLE, got none")
	}
}

func TestRun_FailingBatch(t *testing.T) {
	scenario := wardScenario()
	scenario.Steps += `step: oops: {kind: "impute_mean", inputs: "wing"}` + "\n"
	scenario.Expect = append(scenario.Expect, Expectation{Step: "oops"})

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	for _, r := range results {
		assert.False(t, r.Pass)
		assert.Empty(t, r.Fitted)
		require.Len(t, r.Errors, 1)
		assert.Contains(t, r.Errors[0], "fit failed")
	}
}

func TestRun_BadSteps(t *testing.T) {
	scenario := wardScenario()
	scenario.Steps = `step: counts: {kind: "impute_everything", inputs: "beds"}`

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestRun_ExpectationForUndeclaredStep(t *testing.T) {
	scenario := wardScenario()
	scenario.Expect = append(scenario.Expect, Expectation{Step: "ghost"})

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared step "ghost"`)
}

func TestRun_BadRowsFailBeforeFitting(t *testing.T) {
	scenario := wardScenario()
	scenario.Engines = []string{EngineArrow}
	scenario.Table.Rows = append(scenario.Table.Rows, []any{"many", 0.1, "north"})

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arrow engine")
}

func TestRun_Metadata(t *testing.T) {
	scenario := wardScenario()
	scenario.Metadata = &meta.File{Roles: map[string][]string{"capacity": {"beds"}}}
	scenario.Steps = `step: cap: {kind: "impute_median", inputs: {role: "capacity"}}`
	scenario.Expect = []Expectation{{Step: "cap", Columns: []string{"beds"}, Values: map[string]any{"beds": 15.0}}}

	results, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Pass, "%s: %v", r.Engine, r.Errors)
	}
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(context.Background(), wardScenario())
	require.NoError(t, err)
	second, err := Run(context.Background(), wardScenario())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_ExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			results, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			for _, r := range results {
				assert.True(t, r.Pass, "%s: %v", r.Engine, r.Errors)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "none", errorCode(nil))
	assert.Equal(t, "UNKNOWN", errorCode(context.Canceled))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult(EngineSQLite)
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
