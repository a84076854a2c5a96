package selector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/imputer/internal/meta"
)

// Selector is an immutable column selection.
//
// This is a sealed interface - only types in this package implement it.
type Selector interface {
	selectorNode() // Marker method - seals interface to this package
	String() string
}

// Names selects explicitly named columns in the given order.
// Duplicates collapse to their first occurrence.
type Names struct {
	Columns []string
}

func (Names) selectorNode() {}

// String renders the selector as cols("a", "b").
func (n Names) String() string {
	return call("cols", quoteAll(n.Columns)...)
}

// TypeClass is the family of column types a TypePredicate matches.
type TypeClass int

const (
	// ClassAny matches every column.
	ClassAny TypeClass = iota
	// ClassNumeric matches int, float and decimal columns.
	ClassNumeric
	// ClassNominal matches string columns.
	ClassNominal
	// ClassTemporal matches date and timestamp columns.
	ClassTemporal
	// ClassExact matches columns whose type is one of Types.
	ClassExact
)

// TypePredicate selects columns by declared type.
type TypePredicate struct {
	Class TypeClass
	Types []meta.DataType // used by ClassExact only
}

func (TypePredicate) selectorNode() {}

// String renders the predicate as numeric(), has_type(int, float), ...
func (p TypePredicate) String() string {
	switch p.Class {
	case ClassAny:
		return "everything()"
	case ClassNumeric:
		return "numeric()"
	case ClassNominal:
		return "nominal()"
	case ClassTemporal:
		return "temporal()"
	default:
		names := make([]string, len(p.Types))
		for i, t := range p.Types {
			names[i] = t.String()
		}
		return call("has_type", names...)
	}
}

func (p TypePredicate) matches(dt meta.DataType) bool {
	switch p.Class {
	case ClassAny:
		return true
	case ClassNumeric:
		return dt.IsNumeric()
	case ClassNominal:
		return dt.IsNominal()
	case ClassTemporal:
		return dt.IsTemporal()
	default:
		for _, t := range p.Types {
			if t == dt {
				return true
			}
		}
		return false
	}
}

// RolePredicate selects columns that carry a metadata role.
type RolePredicate struct {
	Role string
}

func (RolePredicate) selectorNode() {}

// String renders the predicate as role("outcome").
func (p RolePredicate) String() string {
	return call("role", strconv.Quote(p.Role))
}

// PatternOp is the kind of name match a NamePattern performs.
type PatternOp int

const (
	OpContains PatternOp = iota
	OpStartsWith
	OpEndsWith
	OpMatches
)

var patternNames = map[PatternOp]string{
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
	OpMatches:    "matches",
}

// NamePattern selects columns by their name.
// Build OpMatches patterns with Matches so the expression is compiled once.
type NamePattern struct {
	Op   PatternOp
	Text string
	re   *regexp.Regexp
}

func (NamePattern) selectorNode() {}

// String renders the pattern as contains("x").
func (p NamePattern) String() string {
	return call(patternNames[p.Op], strconv.Quote(p.Text))
}

func (p NamePattern) matches(name string) (bool, error) {
	switch p.Op {
	case OpContains:
		return strings.Contains(name, p.Text), nil
	case OpStartsWith:
		return strings.HasPrefix(name, p.Text), nil
	case OpEndsWith:
		return strings.HasSuffix(name, p.Text), nil
	case OpMatches:
		if p.re == nil {
			return false, newInvalid("matches(%q) was not compiled; build it with selector.Matches", p.Text)
		}
		return p.re.MatchString(name), nil
	default:
		return false, newInvalid("unknown name pattern op %d", p.Op)
	}
}

// Union selects columns matched by any operand.
type Union struct {
	Selectors []Selector
}

func (Union) selectorNode() {}

// String renders the union as (a | b).
func (u Union) String() string {
	return join(u.Selectors, " | ")
}

// Intersection selects columns matched by every operand.
type Intersection struct {
	Selectors []Selector
}

func (Intersection) selectorNode() {}

// String renders the intersection as (a & b).
func (i Intersection) String() string {
	return join(i.Selectors, " & ")
}

// Negation selects the columns its operand does not.
type Negation struct {
	Inner Selector
}

func (Negation) selectorNode() {}

// String renders the negation as ~a.
func (n Negation) String() string {
	if n.Inner == nil {
		return "~<nil>"
	}
	return "~" + n.Inner.String()
}

// Cols selects the named columns.
func Cols(names ...string) Names {
	return Names{Columns: append([]string(nil), names...)}
}

// Numeric selects int, float and decimal columns.
func Numeric() TypePredicate { return TypePredicate{Class: ClassNumeric} }

// Nominal selects string columns.
func Nominal() TypePredicate { return TypePredicate{Class: ClassNominal} }

// Temporal selects date and timestamp columns.
func Temporal() TypePredicate { return TypePredicate{Class: ClassTemporal} }

// Everything selects every column.
func Everything() TypePredicate { return TypePredicate{Class: ClassAny} }

// HasType selects columns whose declared type is one of types.
func HasType(types ...meta.DataType) TypePredicate {
	return TypePredicate{Class: ClassExact, Types: append([]meta.DataType(nil), types...)}
}

// Role selects columns carrying the given metadata role.
func Role(role string) RolePredicate { return RolePredicate{Role: role} }

// Contains selects columns whose name contains text.
func Contains(text string) NamePattern { return NamePattern{Op: OpContains, Text: text} }

// StartsWith selects columns whose name starts with prefix.
func StartsWith(prefix string) NamePattern { return NamePattern{Op: OpStartsWith, Text: prefix} }

// EndsWith selects columns whose name ends with suffix.
func EndsWith(suffix string) NamePattern { return NamePattern{Op: OpEndsWith, Text: suffix} }

// Matches selects columns whose name matches the regular expression.
func Matches(pattern string) (NamePattern, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return NamePattern{}, newInvalid("invalid pattern %q: %v", pattern, err)
	}
	return NamePattern{Op: OpMatches, Text: pattern, re: re}, nil
}

// Or selects columns matched by any of sels.
func Or(sels ...Selector) Union { return Union{Selectors: sels} }

// And selects columns matched by all of sels.
func And(sels ...Selector) Intersection { return Intersection{Selectors: sels} }

// Not selects columns sel does not match.
func Not(sel Selector) Negation { return Negation{Inner: sel} }

// Normalize converts a user selection into a Selector. It accepts a Selector,
// a single column name, or a list of column names.
func Normalize(sel any) (Selector, error) {
	switch s := sel.(type) {
	case nil:
		return nil, newInvalid("selection is nil")
	case Selector:
		return s, nil
	case string:
		return Cols(s), nil
	case []string:
		return Cols(s...), nil
	default:
		return nil, newInvalid("unsupported selection type %T", sel)
	}
}

func call(name string, args ...string) string {
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strconv.Quote(n)
	}
	return out
}

func join(sels []Selector, sep string) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		if s == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
