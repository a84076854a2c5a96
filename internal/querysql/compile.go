// Package querysql compiles QueryIR aggregates to SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/imputer/internal/queryir"
)

// Dialect selects the SQL spelling of statistics without a standard form.
type Dialect int

const (
	// SQLite computes median and mode with ordered scalar subqueries.
	SQLite Dialect = iota
	// Postgres uses the percentile_cont and mode ordered-set aggregates.
	Postgres
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// SQLCompiler compiles QueryIR to SQL.
//
// CRITICAL: an Aggregate compiles to exactly ONE statement that yields
// exactly one row, whatever the number of measures.
// Identifiers are always quoted; no user value is ever interpolated.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a new SQLCompiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a QueryIR query to SQL.
// Returns (sql, params, error) tuple. Aggregates take no parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Aggregate:
		return c.compileAggregate(query)
	case *queryir.Aggregate:
		return c.compileAggregate(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileAggregate(q queryir.Aggregate) (string, []any, error) {
	if err := q.Check(); err != nil {
		return "", nil, err
	}
	if len(q.Measures) == 0 {
		return "", nil, fmt.Errorf("aggregate over %s has no measures", q.From)
	}

	from := quoteQualified(q.From)
	parts := make([]string, 0, len(q.Measures))
	for _, m := range q.Measures {
		expr, err := c.compileMeasure(m, from)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", m.Column, err)
		}
		parts = append(parts, expr+" AS "+quoteIdent(m.Alias))
	}

	switch c.Dialect {
	case SQLite:
		// Scalar subqueries with no FROM: one row even for an empty table.
		return "SELECT " + strings.Join(parts, ", "), nil, nil
	case Postgres:
		// Plain aggregates without GROUP BY: one row even for an empty table.
		return "SELECT " + strings.Join(parts, ", ") + " FROM " + from, nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported dialect: %s", c.Dialect)
	}
}

func (c *SQLCompiler) compileMeasure(m queryir.Measure, from string) (string, error) {
	col := quoteIdent(m.Column)

	if c.Dialect == Postgres {
		switch m.Stat {
		case queryir.StatMean:
			return fmt.Sprintf("AVG(%s)::double precision", col), nil
		case queryir.StatMedian:
			return fmt.Sprintf("percentile_cont(0.5) WITHIN GROUP (ORDER BY %s::double precision)", col), nil
		case queryir.StatMode:
			return fmt.Sprintf("mode() WITHIN GROUP (ORDER BY %s)", col), nil
		}
		return "", fmt.Errorf("unsupported statistic: %s", m.Stat)
	}

	switch m.Stat {
	case queryir.StatMean:
		return fmt.Sprintf("(SELECT AVG(%s) FROM %s)", col, from), nil

	case queryir.StatMedian:
		// Take the one (odd count) or two (even count) middle values of the
		// sorted non-null column and average them.
		count := fmt.Sprintf("(SELECT COUNT(%s) FROM %s)", col, from)
		return fmt.Sprintf(
			"(SELECT AVG(v) FROM (SELECT %[1]s AS v FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s LIMIT 2 - %[3]s %% 2 OFFSET (%[3]s - 1) / 2))",
			col, from, count), nil

	case queryir.StatMode:
		// Highest count first, smallest value breaks ties.
		return fmt.Sprintf(
			"(SELECT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s ASC LIMIT 1)",
			col, from), nil
	}
	return "", fmt.Errorf("unsupported statistic: %s", m.Stat)
}

// quoteIdent quotes a single SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes a possibly schema-qualified table name (schema.table).
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// QuoteIdent exposes identifier quoting to engines that build their own
// schema introspection statements.
func QuoteIdent(name string) string {
	return quoteQualified(name)
}
