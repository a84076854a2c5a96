package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "imputer", cmd.Use)
	assert.Contains(t, cmd.Long, "FillNA")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"fit", "validate", "show", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "warn", level.DefValue)
}

func TestSourceFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"fit", "validate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"db", "pg", "csv", "parquet", "table", "metadata"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}

	fit, _, err := cmd.Find([]string{"fit"})
	require.NoError(t, err)
	save := fit.Flags().Lookup("save")
	require.NotNil(t, save)
	assert.Equal(t, "false", save.DefValue)
}

func TestShowCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	show, _, err := cmd.Find([]string{"show"})
	require.NoError(t, err)
	assert.NotNil(t, show.Flags().Lookup("db"))
	assert.NotNil(t, show.Flags().Lookup("fit"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	test, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	update := test.Flags().Lookup("update")
	require.NotNil(t, update)
	assert.Equal(t, "false", update.DefValue)
	assert.NotNil(t, test.Flags().Lookup("filter"))
	assert.NotNil(t, test.Flags().Lookup("golden-dir"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_EndToEnd(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	db := seedDatabase(t)
	steps := writeSteps(t, patientSteps)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"--log-level", "info", "fit", steps, "--db", db, "--table", "patients", "--save"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "✓ Fitted 2 step(s) on patients")
	assert.Contains(t, errOut.String(), "fit batch starting")

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"show", "--db", db})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "[1] ages")
	assert.Contains(t, out.String(), "[2] wards")
}
