// Package compiler turns CUE step definitions into fittable steps.
//
// A definition lives under the top-level "step" struct, keyed by name:
//
//	step: ages: {
//		kind:   "impute_median"
//		inputs: {numeric: true}
//	}
//	step: wards: {
//		kind:       "fill_na"
//		inputs:     ["ward", "bed"]
//		fill_value: "unknown"
//	}
//
// inputs is a column name, a list of names, or a selector struct with
// exactly one key: cols, numeric, nominal, temporal, everything, has_type,
// role, contains, startswith, endswith, matches, any_of, all_of, not.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/imputer/internal/engine"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/selector"
	"github.com/roach88/imputer/internal/step"
)

var kinds = map[string]step.Kind{
	"fill_na":       step.KindFillNA,
	"impute_mean":   step.KindImputeMean,
	"impute_median": step.KindImputeMedian,
	"impute_mode":   step.KindImputeMode,
}

// KindName returns the CUE spelling of a step kind.
func KindName(k step.Kind) string {
	for name, kind := range kinds {
		if kind == k {
			return name
		}
	}
	return ""
}

// CompileStep parses a CUE value into a named step.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the step struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`step: ages: { kind: "impute_mean", inputs: "age" }`)
//	ns, err := CompileStep(v.LookupPath(cue.ParsePath("step.ages")))
func CompileStep(v cue.Value) (engine.NamedStep, error) {
	if err := v.Err(); err != nil {
		return engine.NamedStep{}, formatCUEError(err)
	}

	var ns engine.NamedStep
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		ns.Name = labelName(labels[len(labels)-1])
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return ns, &CompileError{Field: "kind", Message: "kind is required", Pos: v.Pos()}
	}
	kindName, err := kindVal.String()
	if err != nil {
		return ns, formatCUEError(err)
	}
	kind, ok := kinds[kindName]
	if !ok {
		return ns, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown kind %q (want fill_na, impute_mean, impute_median or impute_mode)", kindName),
			Pos:     kindVal.Pos(),
		}
	}

	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return ns, &CompileError{Field: "inputs", Message: "inputs is required", Pos: v.Pos()}
	}
	sel, err := parseSelector(inputsVal)
	if err != nil {
		return ns, err
	}

	var fill any
	fillVal := v.LookupPath(cue.ParsePath("fill_value"))
	switch {
	case kind == step.KindFillNA && !fillVal.Exists():
		return ns, &CompileError{Field: "fill_value", Message: "fill_na requires fill_value", Pos: v.Pos()}
	case kind != step.KindFillNA && fillVal.Exists():
		return ns, &CompileError{
			Field:   "fill_value",
			Message: fmt.Sprintf("%s takes no fill_value", kindName),
			Pos:     fillVal.Pos(),
		}
	case fillVal.Exists():
		fill, err = parseScalar(fillVal)
		if err != nil {
			return ns, err
		}
	}

	ns.Step, err = step.New(kind, sel, fill)
	if err != nil {
		return ns, &CompileError{Field: "step", Message: err.Error(), Pos: v.Pos()}
	}
	return ns, nil
}

// labelName returns a field label without CUE quoting, so
// step: "ward-fill": {...} is named ward-fill.
func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileSteps compiles every field of the top-level "step" struct, in
// declaration order. It stops at the first error.
func CompileSteps(root cue.Value) ([]engine.NamedStep, error) {
	stepsVal := root.LookupPath(cue.ParsePath("step"))
	if !stepsVal.Exists() {
		return nil, &CompileError{Field: "step", Message: "no step definitions found", Pos: root.Pos()}
	}

	iter, err := stepsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var steps []engine.NamedStep
	for iter.Next() {
		ns, err := CompileStep(iter.Value())
		if err != nil {
			return nil, err
		}
		steps = append(steps, ns)
	}
	return steps, nil
}

// parseSelector parses a selection: a name, a list of names, or a
// single-key selector struct.
func parseSelector(v cue.Value) (selector.Selector, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		name, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return selector.Cols(name), nil

	case cue.ListKind:
		names, err := parseStrings(v, "inputs")
		if err != nil {
			return nil, err
		}
		return selector.Cols(names...), nil

	case cue.StructKind:
		return parseSelectorStruct(v)

	default:
		return nil, &CompileError{
			Field:   "inputs",
			Message: fmt.Sprintf("must be a string, list or selector struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseSelectorStruct(v cue.Value) (selector.Selector, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var key string
	var arg cue.Value
	for iter.Next() {
		if key != "" {
			return nil, &CompileError{
				Field:   "inputs",
				Message: fmt.Sprintf("selector struct must have exactly one key, found %q and %q", key, iter.Label()),
				Pos:     v.Pos(),
			}
		}
		key, arg = iter.Label(), iter.Value()
	}
	if key == "" {
		return nil, &CompileError{Field: "inputs", Message: "empty selector struct", Pos: v.Pos()}
	}

	switch key {
	case "cols":
		names, err := parseStrings(arg, "inputs.cols")
		if err != nil {
			return nil, err
		}
		return selector.Cols(names...), nil

	case "numeric", "nominal", "temporal", "everything":
		on, err := arg.Bool()
		if err != nil || !on {
			return nil, &CompileError{Field: "inputs." + key, Message: "must be true", Pos: arg.Pos()}
		}
		switch key {
		case "numeric":
			return selector.Numeric(), nil
		case "nominal":
			return selector.Nominal(), nil
		case "temporal":
			return selector.Temporal(), nil
		default:
			return selector.Everything(), nil
		}

	case "has_type":
		names, err := parseStrings(arg, "inputs.has_type")
		if err != nil {
			return nil, err
		}
		types := make([]meta.DataType, len(names))
		for i, n := range names {
			types[i], err = meta.ParseDataType(n)
			if err != nil {
				return nil, &CompileError{Field: "inputs.has_type", Message: err.Error(), Pos: arg.Pos()}
			}
		}
		return selector.HasType(types...), nil

	case "role", "contains", "startswith", "endswith", "matches":
		text, err := arg.String()
		if err != nil {
			return nil, &CompileError{Field: "inputs." + key, Message: "must be a string", Pos: arg.Pos()}
		}
		switch key {
		case "role":
			return selector.Role(text), nil
		case "contains":
			return selector.Contains(text), nil
		case "startswith":
			return selector.StartsWith(text), nil
		case "endswith":
			return selector.EndsWith(text), nil
		default:
			sel, err := selector.Matches(text)
			if err != nil {
				return nil, &CompileError{Field: "inputs.matches", Message: err.Error(), Pos: arg.Pos()}
			}
			return sel, nil
		}

	case "any_of", "all_of":
		list, err := arg.List()
		if err != nil {
			return nil, &CompileError{Field: "inputs." + key, Message: "must be a list of selectors", Pos: arg.Pos()}
		}
		var sels []selector.Selector
		for list.Next() {
			sel, err := parseSelector(list.Value())
			if err != nil {
				return nil, err
			}
			sels = append(sels, sel)
		}
		if len(sels) == 0 {
			return nil, &CompileError{Field: "inputs." + key, Message: "needs at least one selector", Pos: arg.Pos()}
		}
		if key == "any_of" {
			return selector.Or(sels...), nil
		}
		return selector.And(sels...), nil

	case "not":
		inner, err := parseSelector(arg)
		if err != nil {
			return nil, err
		}
		return selector.Not(inner), nil

	default:
		return nil, &CompileError{
			Field:   "inputs",
			Message: fmt.Sprintf("unknown selector %q", key),
			Pos:     arg.Pos(),
		}
	}
}

func parseStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// parseScalar converts a concrete CUE scalar into a Go value step.New
// accepts. Integers stay integers; any number with a fraction is a float.
func parseScalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: "fill_value", Message: err.Error(), Pos: v.Pos()}
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{Field: "fill_value", Message: err.Error(), Pos: v.Pos()}
		}
		return f, nil
	case cue.NullKind:
		return nil, &CompileError{Field: "fill_value", Message: "fill_value must not be null", Pos: v.Pos()}
	default:
		return nil, &CompileError{
			Field:   "fill_value",
			Message: fmt.Sprintf("must be a concrete scalar, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
