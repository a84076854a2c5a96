// Package harness runs conformance scenarios for step fitting.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fit_token: fit-demo            # optional, defaults to "test-fit-default"
//	engines: [sqlite, arrow]       # optional, defaults to both
//	table:
//	  name: patients
//	  columns:
//	    - {name: age, type: float}
//	    - {name: ward, type: string}
//	  rows:
//	    - [30.5, "A"]
//	    - [null, "B"]
//	metadata:                      # optional, same form as a metadata file
//	  roles: {id: [row_id]}
//	steps: |
//	  step: ages: {kind: "impute_mean", inputs: {numeric: true}}
//	expect:
//	  - step: ages
//	    columns: [age]
//	    values: {age: 30.5}
//	  - step: broken
//	    error: TYPE_INCOMPATIBLE
//
// # Expectations
//
// An expectation without error checks the fitted transform: columns pins
// the resolution order, values is a subset match on the substitution values
// (strict on kind, so 2 and 2.0 differ). An expectation with error names
// the code the step must fail with (COLUMN_NOT_FOUND, TYPE_INCOMPATIBLE,
// INVALID_SELECTOR, BAD_RESULT). Failing steps are fitted in their own
// batch so the remaining steps still run.
//
// # Deterministic Testing
//
// Every engine run gets a fresh in-memory table, a fixed fit token and a
// testutil.DeterministicClock, so RunWithGolden can compare the fitted
// transforms byte for byte against testdata/golden/<name>.golden, and all
// engines must produce the same snapshot.
package harness
