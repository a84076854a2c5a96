package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/imputer/internal/engine"
	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
)

// FitOptions holds flags for the fit command.
type FitOptions struct {
	*RootOptions
	Source   SourceOptions
	Metadata string
	Save     bool

	// TokenGenerator overrides the fit token generator (for testing).
	// If nil, the engine generates UUIDv7 tokens.
	TokenGenerator engine.TokenGenerator
}

// FitStep is one fitted step in fit output.
type FitStep struct {
	Name        string   `json:"name"`
	Definition  string   `json:"definition"`
	Seq         int64    `json:"seq"`
	TransformID string   `json:"transform_id"`
	Columns     []string `json:"columns"`
	Values      ir.Row   `json:"values"`
}

// FitResult is the output of a successful fit.
type FitResult struct {
	FitToken string    `json:"fit_token"`
	Table    string    `json:"table"`
	Saved    bool      `json:"saved"`
	Steps    []FitStep `json:"steps"`
}

// NewFitCommand creates the fit command.
func NewFitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fit <steps-dir>",
		Short: "Fit steps against a training table",
		Long: `Fit every step declared in the CUE package at <steps-dir> against one
training table and print the resulting column -> value mappings.

Steps are fitted independently; a step that fails aborts the whole batch.
With --save (SQLite only) the transforms are stored next to the table and
can be listed with "imputer show".

Examples:
  imputer fit ./steps --db ./train.db --table patients --save
  imputer fit ./steps --csv ./patients.csv --metadata ./roles.yaml
  imputer fit ./steps --parquet ./patients.parquet --format json
  imputer fit ./steps --pg postgres://localhost/clinic --table patients`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd.Context(), opts, args[0], cmd)
		},
	}

	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().StringVar(&opts.Metadata, "metadata", "", "YAML file declaring column types and roles")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store fitted transforms in the --db database")

	return cmd
}

func runFit(ctx context.Context, opts *FitOptions, stepsDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Save && opts.Source.Database == "" {
		return commandError(formatter, ErrCodeGeneric, "--save requires --db", nil)
	}

	loaded, err := LoadSteps(stepsDir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d step(s) from %d CUE file(s)", len(loaded.Steps), loaded.FileCount)

	var md *meta.Metadata
	if opts.Metadata != "" {
		md, err = meta.LoadFile(opts.Metadata, nil)
		if err != nil {
			return commandError(formatter, ErrCodeNotFound, err.Error(), nil)
		}
	}

	src, err := openSource(ctx, &opts.Source)
	if err != nil {
		return commandError(formatter, ErrCodeSource, err.Error(), nil)
	}
	defer src.Close()

	var engOpts []engine.Option
	if opts.TokenGenerator != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}

	var eng *engine.Engine
	if opts.Save {
		eng, err = engine.Resume(ctx, src.Store, engOpts...)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
	} else {
		eng = engine.New(engOpts...)
	}

	batch, err := eng.FitAll(ctx, src.Table, md, loaded.Steps)
	if err != nil {
		return fitFailure(formatter, err)
	}

	result := FitResult{
		FitToken: batch.FitToken,
		Table:    batch.Table,
		Saved:    opts.Save,
		Steps:    make([]FitStep, len(batch.Results)),
	}
	for i, r := range batch.Results {
		result.Steps[i] = FitStep{
			Name:        r.Name,
			Definition:  r.Step.String(),
			Seq:         r.Seq,
			TransformID: r.TransformID,
			Columns:     r.Transform.Columns(),
			Values:      r.Transform.Values(),
		}
	}

	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, FitToken: result.FitToken})
	}
	writeFitText(formatter.Writer, result)
	return nil
}

func writeFitText(w io.Writer, result FitResult) {
	fmt.Fprintf(w, "✓ Fitted %d step(s) on %s (fit %s)\n", len(result.Steps), result.Table, result.FitToken)
	for _, s := range result.Steps {
		fmt.Fprintf(w, "\n%s  %s\n", s.Name, s.Definition)
		if len(s.Columns) == 0 {
			fmt.Fprintln(w, "  (no columns selected)")
		}
		for _, c := range s.Columns {
			fmt.Fprintf(w, "  %s = %s\n", c, ir.Format(s.Values[c]))
		}
	}
	if result.Saved {
		fmt.Fprintln(w, "\nTransforms saved.")
	}
}

// loadFailure reports a LoadSteps error. Bad step files are command errors.
func loadFailure(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		var details any
		if line := loadErr.Line(); line > 0 {
			details = map[string]any{"line": line}
		}
		return commandError(formatter, loadErr.Code, loadErr.Message, details)
	}
	return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
}

// fitFailure reports a failed batch with the code of its root cause.
func fitFailure(formatter *OutputFormatter, err error) error {
	var details any
	var be *engine.BatchError
	if errors.As(err, &be) && be.StepName != "" {
		details = map[string]any{"step": be.StepName}
	}
	_ = formatter.Error(engine.RootCode(err), err.Error(), details)
	return WrapExitError(ExitFailure, "fit failed", err)
}

func commandError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
