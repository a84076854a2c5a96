package queryir

import (
	"fmt"
	"strings"
)

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Stat is a column statistic an engine can compute.
type Stat int

const (
	// StatMean is the arithmetic mean of non-null values.
	StatMean Stat = iota + 1
	// StatMedian is the middle non-null value; with an even count, the mean
	// of the two middle values.
	StatMedian
	// StatMode is the most frequent non-null value; ties go to the smallest.
	StatMode
)

var statNames = map[Stat]string{
	StatMean:   "mean",
	StatMedian: "median",
	StatMode:   "mode",
}

// String returns the lower-case statistic name.
func (s Stat) String() string {
	if name, ok := statNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stat(%d)", int(s))
}

// ParseStat parses a statistic name.
func ParseStat(name string) (Stat, error) {
	for s, n := range statNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown statistic %q", name)
}

// Measure is one statistic over one column.
//
// Semantics:
//
//	<Stat>(<Column>) AS <Alias>
type Measure struct {
	Column string // Source column name
	Stat   Stat   // Statistic to compute
	Alias  string // Key of the value in the result row
}

// Aggregate computes every measure over the full source table and yields
// exactly one row keyed by alias.
//
// Example:
//
//	Aggregate{
//	  From: "patients",
//	  Measures: []Measure{
//	    {Column: "age", Stat: StatMean, Alias: "age"},
//	    {Column: "ward", Stat: StatMode, Alias: "ward"},
//	  },
//	}
//
// produces a row {"age": <float>, "ward": <ward value>}.
type Aggregate struct {
	From     string    // Table name
	Measures []Measure // One per result column, in result order
}

func (Aggregate) queryNode() {}

// Aliases returns the measure aliases in order.
func (a Aggregate) Aliases() []string {
	out := make([]string, len(a.Measures))
	for i, m := range a.Measures {
		out[i] = m.Alias
	}
	return out
}

// Check reports structural problems that make an aggregate unexecutable:
// an empty source, empty column or alias names, unknown statistics and
// duplicate aliases.
func (a Aggregate) Check() error {
	if a.From == "" {
		return fmt.Errorf("aggregate has no source table")
	}
	seen := make(map[string]bool, len(a.Measures))
	for i, m := range a.Measures {
		if m.Column == "" {
			return fmt.Errorf("measure %d: empty column name", i)
		}
		if m.Alias == "" {
			return fmt.Errorf("measure %d (%s): empty alias", i, m.Column)
		}
		if _, ok := statNames[m.Stat]; !ok {
			return fmt.Errorf("measure %d (%s): unknown statistic %d", i, m.Column, int(m.Stat))
		}
		if seen[m.Alias] {
			return fmt.Errorf("measure %d: duplicate alias %q", i, m.Alias)
		}
		seen[m.Alias] = true
	}
	return nil
}
