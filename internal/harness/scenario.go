package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/imputer/internal/meta"
)

// Engine names accepted in a scenario's engines list.
const (
	EngineSQLite = "sqlite"
	EngineArrow  = "arrow"
)

// DefaultFitToken is used when a scenario does not pin one.
const DefaultFitToken = "test-fit-default"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FitToken is an optional fixed fit token.
	// If empty, defaults to "test-fit-default".
	FitToken string `yaml:"fit_token,omitempty"`

	// Engines lists the engines to run on. Empty means all.
	Engines []string `yaml:"engines,omitempty"`

	// Table is the training table.
	Table TableDef `yaml:"table"`

	// Metadata optionally overrides column types and assigns roles.
	Metadata *meta.File `yaml:"metadata,omitempty"`

	// Steps is CUE source holding the step definitions.
	Steps string `yaml:"steps"`

	// Expect lists per-step expectations.
	Expect []Expectation `yaml:"expect"`
}

// TableDef describes an inline training table.
type TableDef struct {
	Name    string        `yaml:"name"`
	Columns []meta.Column `yaml:"columns"`
	Rows    [][]any       `yaml:"rows"`
}

// Expectation describes the expected outcome of one step.
type Expectation struct {
	// Step is the step name as declared in the CUE source.
	Step string `yaml:"step"`

	// Columns, when set, is the exact resolved column order.
	Columns []string `yaml:"columns,omitempty"`

	// Values is a subset match on the substitution values.
	Values map[string]any `yaml:"values,omitempty"`

	// Error is the error code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	for _, e := range s.Engines {
		if e != EngineSQLite && e != EngineArrow {
			return fmt.Errorf("unknown engine %q", e)
		}
	}

	if s.Table.Name == "" {
		return fmt.Errorf("table.name is required")
	}
	if len(s.Table.Columns) == 0 {
		return fmt.Errorf("table.columns is required and must be non-empty")
	}
	for i, c := range s.Table.Columns {
		if c.Name == "" {
			return fmt.Errorf("table.columns[%d]: name is required", i)
		}
	}
	for i, row := range s.Table.Rows {
		if len(row) != len(s.Table.Columns) {
			return fmt.Errorf("table.rows[%d]: has %d values, want %d", i, len(row), len(s.Table.Columns))
		}
	}

	if s.Steps == "" {
		return fmt.Errorf("steps is required")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}
	seen := make(map[string]bool, len(s.Expect))
	for i, e := range s.Expect {
		if e.Step == "" {
			return fmt.Errorf("expect[%d]: step is required", i)
		}
		if seen[e.Step] {
			return fmt.Errorf("expect[%d]: duplicate expectation for step %q", i, e.Step)
		}
		seen[e.Step] = true
		if e.Error != "" && (e.Columns != nil || e.Values != nil) {
			return fmt.Errorf("expect[%d]: error cannot be combined with columns or values", i)
		}
	}

	return nil
}

// engines returns the engines to run, defaulting to all of them.
func (s *Scenario) engines() []string {
	if len(s.Engines) == 0 {
		return []string{EngineSQLite, EngineArrow}
	}
	return s.Engines
}

// Token returns the pinned fit token, or DefaultFitToken.
func (s *Scenario) Token() string {
	if s.FitToken == "" {
		return DefaultFitToken
	}
	return s.FitToken
}

func (s *Scenario) schema() meta.Schema {
	return meta.Schema(s.Table.Columns)
}
