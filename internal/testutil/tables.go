package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
	"github.com/roach88/imputer/internal/table"
)

// CountingTable wraps a table and records every aggregate it executes.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type CountingTable struct {
	Inner table.Table

	mu      sync.Mutex
	queries []queryir.Aggregate
}

// NewCountingTable wraps inner.
func NewCountingTable(inner table.Table) *CountingTable {
	return &CountingTable{Inner: inner}
}

func (c *CountingTable) Name() string        { return c.Inner.Name() }
func (c *CountingTable) Schema() meta.Schema { return c.Inner.Schema() }

// Execute records agg and delegates to the wrapped table.
func (c *CountingTable) Execute(ctx context.Context, agg queryir.Aggregate) (ir.Row, error) {
	c.mu.Lock()
	c.queries = append(c.queries, agg)
	c.mu.Unlock()
	return c.Inner.Execute(ctx, agg)
}

// Calls returns the number of Execute calls so far.
func (c *CountingTable) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Queries returns a copy of the executed aggregates in call order.
func (c *CountingTable) Queries() []queryir.Aggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]queryir.Aggregate(nil), c.queries...)
}

// RefusingTable has a schema but fails every Execute call. Use it to prove
// that a code path never touches the engine.
type RefusingTable struct {
	TableName string
	Columns   meta.Schema
}

func (r RefusingTable) Name() string        { return r.TableName }
func (r RefusingTable) Schema() meta.Schema { return r.Columns }

// Execute always fails.
func (r RefusingTable) Execute(context.Context, queryir.Aggregate) (ir.Row, error) {
	return nil, fmt.Errorf("RefusingTable %s: unexpected query", r.TableName)
}

// StubTable returns a canned row (or error) from every Execute call.
type StubTable struct {
	TableName string
	Columns   meta.Schema
	Row       ir.Row
	Err       error
}

func (s StubTable) Name() string        { return s.TableName }
func (s StubTable) Schema() meta.Schema { return s.Columns }

// Execute returns a copy of Row, or Err when set.
func (s StubTable) Execute(context.Context, queryir.Aggregate) (ir.Row, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Row.Clone(), nil
}
