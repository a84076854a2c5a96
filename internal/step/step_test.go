package step

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imputer/internal/arrowtable"
	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/selector"
	"github.com/roach88/imputer/internal/store"
	"github.com/roach88/imputer/internal/table"
	"github.com/roach88/imputer/internal/testutil"
)

// engines loads the same rows into every bundled engine.
func engines(t *testing.T, name string, schema meta.Schema, rows [][]any) map[string]table.Table {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateTable(ctx, name, schema))
	require.NoError(t, s.InsertRows(ctx, name, schema.Names(), rows))
	sqliteTbl, err := s.Table(ctx, name)
	require.NoError(t, err)

	arrowTbl, err := arrowtable.FromRows(name, schema, rows)
	require.NoError(t, err)
	t.Cleanup(arrowTbl.Release)

	return map[string]table.Table{
		"sqlite": sqliteTbl,
		"arrow":  arrowTbl,
	}
}

var mixedSchema = meta.Schema{
	{Name: "a", Type: meta.TypeInt},
	{Name: "b", Type: meta.TypeInt},
	{Name: "name", Type: meta.TypeString},
}

var mixedRows = [][]any{
	{1, 1, "x"},
	{2, 2, "y"},
	{3, 3, "y"},
	{nil, 4, nil},
}

// mustStep unwraps a constructor result: mustStep(t)(ImputeMean("a")).
func mustStep(t *testing.T) func(Step, error) Step {
	return func(s Step, err error) Step {
		t.Helper()
		require.NoError(t, err)
		return s
	}
}

func TestFit_MeanIgnoresNulls(t *testing.T) {
	s := mustStep(t)(ImputeMean(selector.Cols("a")))

	for engine, tbl := range engines(t, "t", mixedSchema, mixedRows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			assert.Equal(t, []string{"a"}, tr.Columns())
			v, _ := tr.Value("a")
			assert.Equal(t, ir.Float(2.0), v)
		})
	}
}

func TestFit_MedianEvenCount(t *testing.T) {
	s := mustStep(t)(ImputeMedian("b"))

	for engine, tbl := range engines(t, "t", mixedSchema, mixedRows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			v, _ := tr.Value("b")
			assert.Equal(t, ir.Float(2.5), v)
		})
	}
}

func TestFit_ModeIgnoresNulls(t *testing.T) {
	schema := meta.Schema{{Name: "c", Type: meta.TypeInt}}
	rows := [][]any{{1}, {1}, {2}, {nil}}
	s := mustStep(t)(ImputeMode([]string{"c"}))

	for engine, tbl := range engines(t, "t", schema, rows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			v, _ := tr.Value("c")
			assert.Equal(t, ir.Int(1), v)
		})
	}
}

func TestFit_ModeOnNominalColumn(t *testing.T) {
	s := mustStep(t)(ImputeMode(selector.Nominal()))

	for engine, tbl := range engines(t, "t", mixedSchema, mixedRows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			assert.Equal(t, `FillNA(name="y")`, tr.String())
		})
	}
}

func TestFit_ModeTieBreaksToSmallest(t *testing.T) {
	schema := meta.Schema{{Name: "w", Type: meta.TypeString}}
	rows := [][]any{{"b"}, {"a"}, {"b"}, {"a"}, {"c"}}
	s := mustStep(t)(ImputeMode("w"))

	for engine, tbl := range engines(t, "t", schema, rows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			v, _ := tr.Value("w")
			assert.Equal(t, ir.String("a"), v)
		})
	}
}

func TestFit_ModeOverDatesMatchesAcrossEngines(t *testing.T) {
	schema := meta.Schema{{Name: "admitted", Type: meta.TypeDate}}
	rows := [][]any{{"2024-01-02"}, {"2024-01-03"}, {"2024-01-03"}, {nil}}
	s := mustStep(t)(ImputeMode("admitted"))

	for engine, tbl := range engines(t, "t", schema, rows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)
			assert.Equal(t, `FillNA(admitted="2024-01-03")`, tr.String())
		})
	}
}

func TestFit_AllNullColumnYieldsNull(t *testing.T) {
	schema := meta.Schema{{Name: "x", Type: meta.TypeFloat}}
	rows := [][]any{{nil}, {nil}}

	for _, build := range []func(any) (Step, error){ImputeMean, ImputeMedian, ImputeMode} {
		s := mustStep(t)(build("x"))
		for engine, tbl := range engines(t, "t", schema, rows) {
			t.Run(s.String()+"/"+engine, func(t *testing.T) {
				tr, err := s.Fit(context.Background(), tbl, nil)
				require.NoError(t, err)

				v, ok := tr.Value("x")
				require.True(t, ok)
				assert.True(t, ir.IsNull(v))
			})
		}
	}
}

func TestFit_EmptySelectionIsEmptyTransform(t *testing.T) {
	schema := meta.Schema{{Name: "name", Type: meta.TypeString}}
	refusing := testutil.RefusingTable{TableName: "t", Columns: schema}

	for _, build := range []func(any) (Step, error){ImputeMean, ImputeMedian, ImputeMode} {
		s := mustStep(t)(build(selector.Numeric()))
		tr, err := s.Fit(context.Background(), refusing, nil)
		require.NoError(t, err, s.String())
		assert.Equal(t, 0, tr.Len())
	}

	fill := mustStep(t)(FillNA(selector.Numeric(), 0))
	tr, err := fill.Fit(context.Background(), refusing, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
}

func TestFit_MissingExplicitColumn(t *testing.T) {
	schema := meta.Schema{{Name: "a", Type: meta.TypeInt}}
	refusing := testutil.RefusingTable{TableName: "t", Columns: schema}

	for _, s := range []Step{
		mustStep(t)(ImputeMean("z")),
		mustStep(t)(ImputeMode([]string{"a", "z"})),
		mustStep(t)(FillNA("z", 1)),
	} {
		_, err := s.Fit(context.Background(), refusing, nil)
		require.Error(t, err, s.String())
		assert.True(t, selector.IsColumnNotFound(err), s.String())

		var se *selector.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "z", se.Column)
	}
}

func TestFit_FillNAIssuesNoQuery(t *testing.T) {
	refusing := testutil.RefusingTable{TableName: "t", Columns: mixedSchema}
	s := mustStep(t)(FillNA([]string{"b", "a"}, 0))

	tr, err := s.Fit(context.Background(), refusing, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, tr.Columns())
	assert.Equal(t, ir.Row{"a": ir.Int(0), "b": ir.Int(0)}, tr.Values())
}

func TestFit_FillNAIgnoresColumnType(t *testing.T) {
	refusing := testutil.RefusingTable{TableName: "t", Columns: mixedSchema}
	s := mustStep(t)(FillNA(selector.Everything(), "missing"))

	tr, err := s.Fit(context.Background(), refusing, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "name"}, tr.Columns())
	v, _ := tr.Value("a")
	assert.Equal(t, ir.String("missing"), v)
}

func TestFit_MeanAndMedianRejectNonNumeric(t *testing.T) {
	refusing := testutil.RefusingTable{TableName: "t", Columns: mixedSchema}

	tests := []struct {
		build func(any) (Step, error)
		stat  string
	}{
		{ImputeMean, "mean"},
		{ImputeMedian, "median"},
	}

	for _, tt := range tests {
		t.Run(tt.stat, func(t *testing.T) {
			counting := testutil.NewCountingTable(refusing)
			s := mustStep(t)(tt.build([]string{"a", "name"}))

			_, err := s.Fit(context.Background(), counting, nil)
			require.Error(t, err)
			assert.True(t, IsTypeError(err))
			assert.Contains(t, err.Error(), tt.stat)
			assert.Contains(t, err.Error(), "name")
			assert.Equal(t, 0, counting.Calls(), "type check happens before any query")

			var fe *FitError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "name", fe.Column)
			assert.Equal(t, tt.stat, fe.Stat)
			assert.Equal(t, meta.TypeString, fe.Type)
		})
	}
}

func TestFit_BoolColumnsAreNotNumeric(t *testing.T) {
	schema := meta.Schema{{Name: "smoker", Type: meta.TypeBool}}
	rows := [][]any{{true}, {false}, {true}, {nil}}

	for _, build := range []func(any) (Step, error){ImputeMean, ImputeMedian} {
		s := mustStep(t)(build("smoker"))
		counting := testutil.NewCountingTable(testutil.RefusingTable{TableName: "t", Columns: schema})
		_, err := s.Fit(context.Background(), counting, nil)
		assert.True(t, IsTypeError(err), s.String())
		assert.Equal(t, 0, counting.Calls())
	}

	mode := mustStep(t)(ImputeMode("smoker"))
	for engine, tbl := range engines(t, "t", schema, rows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := mode.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)
			v, _ := tr.Value("smoker")
			assert.Equal(t, ir.Bool(true), v)
		})
	}
}

func TestFit_MetadataTypeOverridesSchema(t *testing.T) {
	refusing := testutil.RefusingTable{TableName: "t", Columns: mixedSchema}
	md := meta.New().WithType("a", meta.TypeString)

	s := mustStep(t)(ImputeMean("a"))
	_, err := s.Fit(context.Background(), refusing, md)
	assert.True(t, IsTypeError(err))

	s = mustStep(t)(ImputeMean(selector.Numeric()))
	counting := testutil.NewCountingTable(testutil.StubTable{
		TableName: "t",
		Columns:   mixedSchema,
		Row:       ir.Row{"b": ir.Float(2.5)},
	})
	tr, err := s.Fit(context.Background(), counting, md)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, tr.Columns())
}

func TestFit_ExactlyOneQueryPerFit(t *testing.T) {
	schema := meta.Schema{
		{Name: "a", Type: meta.TypeInt},
		{Name: "b", Type: meta.TypeFloat},
		{Name: "c", Type: meta.TypeInt},
	}
	rows := [][]any{{1, 1.5, 7}, {2, nil, 7}, {nil, 2.5, 8}}

	for engine, tbl := range engines(t, "t", schema, rows) {
		for _, build := range []func(any) (Step, error){ImputeMean, ImputeMedian, ImputeMode} {
			s := mustStep(t)(build(selector.Numeric()))
			t.Run(engine+"/"+s.String(), func(t *testing.T) {
				counting := testutil.NewCountingTable(tbl)

				tr, err := s.Fit(context.Background(), counting, nil)
				require.NoError(t, err)

				assert.Equal(t, 3, tr.Len())
				require.Equal(t, 1, counting.Calls())
				q := counting.Queries()[0]
				assert.Equal(t, "t", q.From)
				assert.Equal(t, []string{"a", "b", "c"}, q.Aliases())
			})
		}
	}
}

func TestFit_RepeatedFitsAreEqual(t *testing.T) {
	s := mustStep(t)(ImputeMedian(selector.Numeric()))

	for engine, tbl := range engines(t, "t", mixedSchema, mixedRows) {
		t.Run(engine, func(t *testing.T) {
			first, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)
			second, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)

			assert.True(t, first.Equal(second))
			assert.NotSame(t, first, second)
		})
	}
}

func TestFit_TransformFollowsResolutionOrder(t *testing.T) {
	s := mustStep(t)(ImputeMean([]string{"b", "a"}))

	for engine, tbl := range engines(t, "t", mixedSchema, mixedRows) {
		t.Run(engine, func(t *testing.T) {
			tr, err := s.Fit(context.Background(), tbl, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "a"}, tr.Columns())
			assert.Equal(t, `FillNA(b=2.5, a=2.0)`, tr.String())
		})
	}
}

func TestFit_EngineErrorPropagatesUnmodified(t *testing.T) {
	boom := errors.New("connection reset")
	stub := testutil.StubTable{TableName: "t", Columns: mixedSchema, Err: boom}

	_, err := mustStep(t)(ImputeMode("a")).Fit(context.Background(), stub, nil)
	assert.Same(t, boom, err)
}

func TestFit_BadResult(t *testing.T) {
	tests := []struct {
		name string
		row  ir.Row
		col  string
	}{
		{"missing column", ir.Row{"a": ir.Float(1)}, "b"},
		{"extra column", ir.Row{"a": ir.Float(1), "b": ir.Float(2), "zz": ir.Int(1)}, "zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := testutil.StubTable{TableName: "t", Columns: mixedSchema, Row: tt.row}

			_, err := mustStep(t)(ImputeMean([]string{"a", "b"})).Fit(context.Background(), stub, nil)
			require.Error(t, err)
			assert.True(t, IsBadResult(err))

			var fe *FitError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.col, fe.Column)
			assert.Equal(t, "mean", fe.Stat)
		})
	}
}

func TestFit_ZeroStepIsInvalid(t *testing.T) {
	var s Step
	_, err := s.Fit(context.Background(), testutil.RefusingTable{TableName: "t"}, nil)
	require.Error(t, err)

	var fe *FitError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrCodeInvalidStep, fe.Code)
}
