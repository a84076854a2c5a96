package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	FitToken string // optional - restrict to one fit
}

// StoredTransform is one persisted transform in show output.
type StoredTransform struct {
	Seq         int64    `json:"seq"`
	FitToken    string   `json:"fit_token"`
	Step        string   `json:"step"`
	Definition  string   `json:"definition"`
	Table       string   `json:"table"`
	TransformID string   `json:"transform_id"`
	Columns     []string `json:"columns"`
	Values      ir.Row   `json:"values"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [transform-id]",
		Short: "List stored transforms",
		Long: `List the transforms saved by "imputer fit --save", oldest first.

With a transform ID, show only the earliest record of that transform.

Examples:
  imputer show --db ./train.db
  imputer show --db ./train.db --fit 0190f5c1-...
  imputer show --db ./train.db 9c1d...e2 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(cmd.Context(), opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.FitToken, "fit", "", "only show transforms of this fit")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, transformID string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeSource, err.Error(), nil)
	}
	defer closeStore(st)

	records, err := readRecords(ctx, st, transformID, opts.FitToken)
	if errors.Is(err, store.ErrRecordNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "transform not found", err)
	}
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	out := make([]StoredTransform, len(records))
	for i, rec := range records {
		out[i] = StoredTransform{
			Seq:         rec.Seq,
			FitToken:    rec.FitToken,
			Step:        rec.StepName,
			Definition:  rec.Step,
			Table:       rec.SourceTable,
			TransformID: rec.TransformID,
			Columns:     rec.Transform.Columns(),
			Values:      rec.Transform.Values(),
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(out) == 0 {
		fmt.Fprintln(w, "No transforms stored.")
		return nil
	}
	for _, t := range out {
		fmt.Fprintf(w, "[%d] %s  %s  (table %s, fit %s)\n", t.Seq, t.Step, t.Definition, t.Table, t.FitToken)
		fmt.Fprintf(w, "    id %s\n", t.TransformID)
		for _, c := range t.Columns {
			fmt.Fprintf(w, "    %s = %s\n", c, ir.Format(t.Values[c]))
		}
	}
	return nil
}

func readRecords(ctx context.Context, st *store.Store, transformID, fitToken string) ([]store.Record, error) {
	switch {
	case fitToken != "":
		records, err := st.ReadFit(ctx, fitToken)
		if err != nil || transformID == "" {
			return records, err
		}
		for _, rec := range records {
			if rec.TransformID == transformID {
				return []store.Record{rec}, nil
			}
		}
		return nil, fmt.Errorf("%w: transform %s in fit %s", store.ErrRecordNotFound, transformID, fitToken)
	case transformID != "":
		rec, err := st.ReadTransform(ctx, transformID)
		if err != nil {
			return nil, err
		}
		return []store.Record{rec}, nil
	default:
		return st.ListTransforms(ctx)
	}
}
