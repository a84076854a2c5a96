package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/imputer/internal/compiler"
	"github.com/roach88/imputer/internal/meta"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Source   SourceOptions
	Metadata string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Steps  int                        `json:"steps"`
	Table  string                     `json:"table,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <steps-dir>",
		Short: "Validate step definitions without fitting",
		Long: `Compile the CUE step definitions in <steps-dir> and report problems.

When a table source is given, every step is also checked against that
table's schema: selections are resolved and statistics are type checked,
but no data is read. Warnings (empty selections, statistics without a
portable SQL aggregate) do not fail validation.

Examples:
  imputer validate ./steps
  imputer validate ./steps --db ./train.db --table patients
  imputer validate ./steps --csv ./patients.csv --metadata ./roles.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, args[0], cmd)
		},
	}

	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().StringVar(&opts.Metadata, "metadata", "", "YAML file declaring column types and roles")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, stepsDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadSteps(stepsDir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, stepsDir)

	result := ValidationResult{Valid: true, Steps: len(loaded.Steps)}

	if opts.Source.IsSet() {
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

		result.Table = src.Table.Name()
		formatter.VerboseLog("Checking %d step(s) against %s", len(loaded.Steps), result.Table)
		result.Errors = compiler.Check(loaded.Steps, src.Table.Schema(), md)
		result.Valid = !compiler.HasErrors(result.Errors)
	}

	return outputValidation(formatter, result)
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", countErrors(result.Errors)))

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			first := firstError(result.Errors)
			resp.Status = "error"
			resp.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		if !result.Valid {
			return failed
		}
		return nil
	}

	w := formatter.Writer
	if result.Valid {
		if result.Table != "" {
			fmt.Fprintf(w, "✓ All %d step(s) valid against %s\n", result.Steps, result.Table)
		} else {
			fmt.Fprintf(w, "✓ All %d step(s) valid\n", result.Steps)
		}
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}

	for _, e := range result.Errors {
		kind := "error"
		if e.Warning {
			kind = "warning"
		}
		fmt.Fprintf(w, "  %s %s\n", kind, e.Error())
	}

	if !result.Valid {
		return failed
	}
	return nil
}

func countErrors(errs []compiler.ValidationError) int {
	n := 0
	for _, e := range errs {
		if !e.Warning {
			n++
		}
	}
	return n
}

func firstError(errs []compiler.ValidationError) compiler.ValidationError {
	for _, e := range errs {
		if !e.Warning {
			return e
		}
	}
	return compiler.ValidationError{}
}
