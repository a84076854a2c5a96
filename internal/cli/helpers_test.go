package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/store"
)

var patientSchema = meta.Schema{
	{Name: "row_id", Type: meta.TypeInt},
	{Name: "age", Type: meta.TypeFloat},
	{Name: "ward", Type: meta.TypeString},
}

var patientRows = [][]any{
	{1, 30.0, "A"},
	{2, nil, "B"},
	{3, 50.0, "B"},
	{4, 40.0, nil},
}

const patientSteps = `package steps

step: ages: {kind: "impute_mean", inputs: "age"}
step: wards: {kind: "impute_mode", inputs: {nominal: true}}
`

// writeSteps writes a CUE package holding src and returns its directory.
func writeSteps(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "steps.cue"), []byte(src), 0644))
	return dir
}

// seedDatabase creates a SQLite file holding the patients table.
func seedDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "train.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.CreateTable(ctx, "patients", patientSchema))
	require.NoError(t, st.InsertRows(ctx, "patients", patientSchema.Names(), patientRows))
	return path
}

// writeCSV writes the patients table as CSV and returns its path.
func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.csv")
	data := "row_id,age,ward\n1,30.0,A\n2,,B\n3,50.0,B\n4,40.0,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

// testCommand returns a bare command whose output goes to the returned buffers.
func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd, out, errOut
}
