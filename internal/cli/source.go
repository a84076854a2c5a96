package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/imputer/internal/arrowtable"
	"github.com/roach88/imputer/internal/pgtable"
	"github.com/roach88/imputer/internal/store"
	"github.com/roach88/imputer/internal/table"
)

// SourceOptions selects the training table. Exactly one of Database, CSV,
// Parquet or Postgres is set.
type SourceOptions struct {
	Database string // SQLite file
	Postgres string // PostgreSQL connection URL
	CSV      string
	Parquet  string
	Table    string // table name; defaults to the file's base name for CSV and Parquet
}

func addSourceFlags(cmd *cobra.Command, opts *SourceOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database holding the training table")
	cmd.Flags().StringVar(&opts.Postgres, "pg", "", "PostgreSQL connection URL")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "CSV file with a header row")
	cmd.Flags().StringVar(&opts.Parquet, "parquet", "", "Parquet file")
	cmd.Flags().StringVar(&opts.Table, "table", "", "training table name (required with --db and --pg)")
}

// IsSet reports whether any source flag was given.
func (o *SourceOptions) IsSet() bool {
	return o.Database != "" || o.Postgres != "" || o.CSV != "" || o.Parquet != ""
}

func (o *SourceOptions) check() error {
	n := 0
	for _, v := range []string{o.Database, o.Postgres, o.CSV, o.Parquet} {
		if v != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("one of --db, --pg, --csv or --parquet is required")
	case n > 1:
		return fmt.Errorf("--db, --pg, --csv and --parquet are mutually exclusive")
	case (o.Database != "" || o.Postgres != "") && o.Table == "":
		return fmt.Errorf("--table is required with --db and --pg")
	}
	return nil
}

// Source is an opened training table. Store is non-nil for SQLite sources.
type Source struct {
	Table table.Table
	Store *store.Store
	close func()
}

// Close releases the table and its connection.
func (s *Source) Close() {
	if s.close != nil {
		s.close()
	}
}

// openSource opens the table named by opts.
func openSource(ctx context.Context, opts *SourceOptions) (*Source, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}

	switch {
	case opts.Database != "":
		slog.Debug("opening sqlite source", "path", opts.Database, "table", opts.Table)
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		tbl, err := st.Table(ctx, opts.Table)
		if err != nil {
			st.Close()
			return nil, err
		}
		return &Source{Table: tbl, Store: st, close: func() { closeStore(st) }}, nil

	case opts.Postgres != "":
		slog.Debug("opening postgres source", "table", opts.Table)
		pool, err := pgtable.Connect(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		tbl, err := pgtable.Open(ctx, pool, opts.Table)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &Source{Table: tbl, close: pool.Close}, nil

	case opts.CSV != "":
		slog.Debug("opening csv source", "path", opts.CSV)
		tbl, err := arrowtable.ReadCSVFile(fileTableName(opts.Table, opts.CSV), opts.CSV)
		if err != nil {
			return nil, err
		}
		return &Source{Table: tbl, close: tbl.Release}, nil

	default:
		slog.Debug("opening parquet source", "path", opts.Parquet)
		tbl, err := arrowtable.ReadParquetFile(ctx, fileTableName(opts.Table, opts.Parquet), opts.Parquet)
		if err != nil {
			return nil, err
		}
		return &Source{Table: tbl, close: tbl.Release}, nil
	}
}

func fileTableName(name, path string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
