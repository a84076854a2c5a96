package harness

import "github.com/roach88/imputer/internal/ir"

// FittedStep is one fitted transform in a scenario run.
type FittedStep struct {
	Step       string   `json:"step"`
	Definition string   `json:"definition"`
	Seq        int64    `json:"seq"`
	Columns    []string `json:"columns"`
	Values     ir.Row   `json:"values"`
}

// Result is the outcome of running a scenario on one engine.
type Result struct {
	// Engine names the table engine ("sqlite", "arrow").
	Engine string `json:"engine"`

	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Fitted lists successful fits in declaration order.
	Fitted []FittedStep `json:"fitted"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(engine string) *Result {
	return &Result{
		Engine: engine,
		Pass:   true,
		Fitted: []FittedStep{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lookup returns the fitted step with the given name.
func (r *Result) Lookup(step string) (FittedStep, bool) {
	for _, f := range r.Fitted {
		if f.Step == step {
			return f, true
		}
	}
	return FittedStep{}, false
}
