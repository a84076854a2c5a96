package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
	"github.com/roach88/imputer/internal/querysql"
)

const dateLayout = "2006-01-02"

// ErrTableNotFound is returned by Store.Table for an unknown table.
var ErrTableNotFound = errors.New("table not found")

// Table is a SQLite table usable as fit training data.
type Table struct {
	db       *sql.DB
	name     string
	schema   meta.Schema
	compiler *querysql.SQLCompiler
}

// Table opens a handle on an existing table. The schema is read once, from
// the declared column types; a type SQLite leaves undeclared or that has no
// mapping becomes meta.TypeUnknown.
func (s *Store) Table(ctx context.Context, name string) (*Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, fmt.Errorf("read schema of %s: %w", name, err)
	}
	defer rows.Close()

	var schema meta.Schema
	for rows.Next() {
		var col, decl string
		if err := rows.Scan(&col, &decl); err != nil {
			return nil, fmt.Errorf("scan schema of %s: %w", name, err)
		}
		dt, err := meta.ParseDataType(decl)
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
		db:       s.db,
		name:     name,
		schema:   schema,
		compiler: querysql.NewSQLCompiler(querysql.SQLite),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the columns in declaration order.
func (t *Table) Schema() meta.Schema { return t.schema }

// Execute runs agg as a single SELECT and converts the one result row.
// An aggregate with no measures returns an empty row without querying.
func (t *Table) Execute(ctx context.Context, agg queryir.Aggregate) (ir.Row, error) {
	if agg.From != t.name {
		return nil, fmt.Errorf("aggregate over %q sent to table %q", agg.From, t.name)
	}
	if len(agg.Measures) == 0 {
		return ir.Row{}, nil
	}
	// SQLite reads an unknown double-quoted identifier as a string literal,
	// so unknown columns must be rejected before compiling.
	for _, m := range agg.Measures {
		if !t.schema.Has(m.Column) {
			return nil, fmt.Errorf("column %q not in table %s", m.Column, t.name)
		}
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
	if err := t.db.QueryRowContext(ctx, query, params...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("execute aggregate over %s: %w", t.name, err)
	}

	row := make(ir.Row, len(agg.Measures))
	for i, m := range agg.Measures {
		col, _ := t.schema.Lookup(m.Column)
		v, err := convertResult(m.Stat, col.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", m.Column, err)
		}
		row[m.Alias] = v
	}
	return row, nil
}

// convertResult maps a SQLite result cell to a Value. SQLite has no bool
// storage class and NUMERIC affinity may store whole numbers as integers,
// so mode results are coerced back to the column's declared type.
//
// The driver parses DATE and TIMESTAMP cells into time.Time. Dates render
// as YYYY-MM-DD and timestamps as RFC 3339 UTC text, as on the other engines.
func convertResult(stat queryir.Stat, dt meta.DataType, v any) (ir.Value, error) {
	if v == nil {
		return ir.Null{}, nil
	}

	if stat == queryir.StatMean || stat == queryir.StatMedian {
		switch n := v.(type) {
		case float64:
			return ir.FromGo(n)
		case int64:
			return ir.Float(float64(n)), nil
		default:
			return nil, fmt.Errorf("%s returned non-numeric %T", stat, v)
		}
	}

	if ts, ok := v.(time.Time); ok {
		if dt == meta.TypeDate {
			return ir.String(ts.UTC().Format(dateLayout)), nil
		}
		return ir.FromGo(ts)
	}

	switch dt {
	case meta.TypeBool:
		if n, ok := v.(int64); ok {
			return ir.Bool(n != 0), nil
		}
	case meta.TypeFloat, meta.TypeDecimal:
		if n, ok := v.(int64); ok {
			return ir.Float(float64(n)), nil
		}
	}
	return ir.FromGo(v)
}

// sqliteType is the column declaration CreateTable uses for a type.
func sqliteType(dt meta.DataType) string {
	switch dt {
	case meta.TypeBool:
		return "BOOLEAN"
	case meta.TypeInt:
		return "INTEGER"
	case meta.TypeFloat:
		return "REAL"
	case meta.TypeDecimal:
		return "NUMERIC"
	case meta.TypeString:
		return "TEXT"
	case meta.TypeDate:
		return "DATE"
	case meta.TypeTimestamp:
		return "TIMESTAMP"
	case meta.TypeBinary:
		return "BLOB"
	default:
		return ""
	}
}

// CreateTable creates a training table with the given schema.
func (s *Store) CreateTable(ctx context.Context, name string, schema meta.Schema) error {
	if len(schema) == 0 {
		return fmt.Errorf("create table %s: no columns", name)
	}

	defs := make([]string, len(schema))
	for i, c := range schema {
		defs[i] = strings.TrimSpace(querysql.QuoteIdent(c.Name) + " " + sqliteType(c.Type))
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", querysql.QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// InsertRows appends rows to a table in one transaction. Each row holds one
// Go value per column, nil for missing values.
func (s *Store) InsertRows(ctx context.Context, name string, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns", name)
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = querysql.QuoteIdent(c)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.QuoteIdent(name), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", name, err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", name, err)
	}
	defer prepared.Close()

	for i, r := range rows {
		if len(r) != len(columns) {
			return fmt.Errorf("insert into %s: row %d has %d values, want %d", name, i, len(r), len(columns))
		}
		if _, err := prepared.ExecContext(ctx, r...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: %w", name, err)
	}
	return nil
}
