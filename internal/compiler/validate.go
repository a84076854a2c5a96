package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/imputer/internal/engine"
	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/queryir"
	"github.com/roach88/imputer/internal/selector"
	"github.com/roach88/imputer/internal/step"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateName     = "E105" // duplicate step name
	ErrColumnNotFound    = "E120" // explicit column missing from schema
	ErrTypeIncompatible  = "E121" // statistic undefined for column type
	ErrInvalidSelector   = "E122" // selector cannot be evaluated
	ErrEmptySelection    = "E123" // selection resolves to no columns (warning)
	ErrNotPortable       = "E124" // statistic has no standard SQL aggregate (warning)
	ErrUnexpectedFailure = "E199" // any other fit error
)

// ValidationError represents a problem found by Check.
type ValidationError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Column  string `json:"column,omitempty"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("[%s] %s: %s (column=%s)", e.Code, e.Step, e.Message, e.Column)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Step, e.Message)
}

// Check dry-runs steps against a schema without touching any data.
// Returns all problems found (does not fail-fast); entries with Warning set
// do not prevent fitting.
func Check(steps []engine.NamedStep, schema meta.Schema, md *meta.Metadata) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(steps))

	for _, ns := range steps {
		if seen[ns.Name] {
			errs = append(errs, ValidationError{
				Step:    ns.Name,
				Message: "duplicate step name",
				Code:    ErrDuplicateName,
			})
			continue
		}
		seen[ns.Name] = true

		plan := &planTable{schema: schema}
		tr, err := ns.Step.Fit(context.Background(), plan, md)
		if err != nil {
			errs = append(errs, classify(ns.Name, err))
			continue
		}

		if tr.Len() == 0 {
			errs = append(errs, ValidationError{
				Step:    ns.Name,
				Message: fmt.Sprintf("%s selects no columns", ns.Step.Inputs()),
				Code:    ErrEmptySelection,
				Warning: true,
			})
		}
		for _, q := range plan.queries {
			for _, w := range queryir.Validate(q).Warnings {
				errs = append(errs, ValidationError{
					Step:    ns.Name,
					Message: w,
					Code:    ErrNotPortable,
					Warning: true,
				})
			}
		}
	}
	return errs
}

// HasErrors reports whether any entry is not a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

func classify(stepName string, err error) ValidationError {
	ve := ValidationError{Step: stepName, Message: err.Error(), Code: ErrUnexpectedFailure}

	var se *selector.Error
	var fe *step.FitError
	switch {
	case errors.As(err, &se):
		ve.Column = se.Column
		ve.Message = se.Message
		if se.Code == selector.ErrCodeColumnNotFound {
			ve.Code = ErrColumnNotFound
		} else {
			ve.Code = ErrInvalidSelector
		}
	case errors.As(err, &fe):
		ve.Column = fe.Column
		ve.Message = fe.Message
		if fe.Code == step.ErrCodeTypeIncompatible {
			ve.Code = ErrTypeIncompatible
		}
	}
	return ve
}

// planTable is a schema-only table. It records every aggregate and answers
// it with nulls, so a fit runs to completion without data.
type planTable struct {
	schema  meta.Schema
	queries []queryir.Aggregate
}

func (p *planTable) Name() string        { return "plan" }
func (p *planTable) Schema() meta.Schema { return p.schema }

func (p *planTable) Execute(_ context.Context, agg queryir.Aggregate) (ir.Row, error) {
	p.queries = append(p.queries, agg)
	row := make(ir.Row, len(agg.Measures))
	for _, alias := range agg.Aliases() {
		row[alias] = ir.Null{}
	}
	return row, nil
}
