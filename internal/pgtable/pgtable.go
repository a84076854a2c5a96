// Package pgtable is the PostgreSQL engine: fit training data in a
// PostgreSQL table, aggregated server-side in one statement.
package pgtable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
	"github.com/roach88/imputer/internal/querysql"
)

// ErrTableNotFound is returned by Open for an unknown table.
var ErrTableNotFound = errors.New("table not found")

// DBTX is the subset of pgx used by the engine.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Table is a PostgreSQL table usable as fit training data.
type Table struct {
	db       DBTX
	name     string
	schema   meta.Schema
	compiler *querysql.SQLCompiler
}

const columnsQuery = `
	SELECT column_name, data_type
	FROM information_schema.columns
	WHERE table_schema = %s AND table_name = $1
	ORDER BY ordinal_position`

// Open reads the schema of name ("table" or "schema.table"; unqualified
// names resolve in current_schema()).
func Open(ctx context.Context, db DBTX, name string) (*Table, error) {
	query := fmt.Sprintf(columnsQuery, "current_schema()")
	args := []any{name}
	if schema, tbl, ok := strings.Cut(name, "."); ok {
		query = fmt.Sprintf(columnsQuery, "$2")
		args = []any{tbl, schema}
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read schema of %s: %w", name, err)
	}
	defer rows.Close()

	var schema meta.Schema
	for rows.Next() {
		var col, dataType string
		if err := rows.Scan(&col, &dataType); err != nil {
			return nil, fmt.Errorf("scan schema of %s: %w", name, err)
		}
		dt, err := meta.ParseDataType(dataType)
		if err != nil {
			dt = meta.TypeUnknown
		}
		schema = append(schema, meta.Column{Name: col, Type: dt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema of %s: %w", name, err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	return &Table{
		db:       db,
		name:     name,
		schema:   schema,
		compiler: querysql.NewSQLCompiler(querysql.Postgres),
	}, nil
}

// Name returns the table name as given to Open.
func (t *Table) Name() string { return t.name }

// Schema returns the columns in ordinal order.
func (t *Table) Schema() meta.Schema { return t.schema }

// Execute runs agg as a single SELECT and converts the one result row.
func (t *Table) Execute(ctx context.Context, agg queryir.Aggregate) (ir.Row, error) {
	if agg.From != t.name {
		return nil, fmt.Errorf("aggregate over %q sent to table %q", agg.From, t.name)
	}
	if len(agg.Measures) == 0 {
		return ir.Row{}, nil
	}

	query, params, err := t.compiler.Compile(agg)
	if err != nil {
		return nil, fmt.Errorf("compile aggregate: %w", err)
	}

	raw := make([]any, len(agg.Measures))
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := t.db.QueryRow(ctx, query, params...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("execute aggregate over %s: %w", t.name, err)
	}

	row := make(ir.Row, len(agg.Measures))
	for i, m := range agg.Measures {
		col, _ := t.schema.Lookup(m.Column)
		v, err := convertResult(col.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", m.Column, err)
		}
		row[m.Alias] = v
	}
	return row, nil
}

// convertResult maps a decoded pgx value to a Value. Numerics become
// floats, dates render as YYYY-MM-DD and timestamps as RFC 3339 UTC text.
func convertResult(dt meta.DataType, v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return ir.Null{}, nil
	case pgtype.Numeric:
		if !val.Valid {
			return ir.Null{}, nil
		}
		f, err := val.Float64Value()
		if err != nil {
			return nil, err
		}
		if !f.Valid {
			return ir.Null{}, nil
		}
		return ir.FromGo(f.Float64)
	case time.Time:
		if dt == meta.TypeDate {
			return ir.String(val.Format("2006-01-02")), nil
		}
		return ir.FromGo(val)
	default:
		return ir.FromGo(v)
	}
}
