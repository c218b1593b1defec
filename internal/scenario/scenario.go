// Package scenario defines batch-run scenario files: how many iterations
// to drive, the seed for the random stream, and the expression evaluated
// as each iteration's risky work.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one batch run.
type Scenario struct {
	// Name uniquely identifies this scenario. Used as the journal label.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Iterations is the number of times the body runs. Zero is valid.
	Iterations int `yaml:"iterations"`

	// Seed initializes the scenario's random stream. Defaults to 0, which
	// is itself a fixed seed: runs are deterministic either way.
	Seed uint64 `yaml:"seed,omitempty"`

	// Body is the per-iteration expression. It sees the iteration index
	// as `i`, the Consts below, and the engine's draw and helper
	// functions. A runtime fault in the body is captured per iteration.
	Body string `yaml:"body"`

	// Consts are scenario-level constants exposed to the body.
	Consts map[string]any `yaml:"consts,omitempty"`
}

// Load reads, schema-validates, and parses a scenario YAML file.
// Returns an error if the file is missing, violates the embedded CUE
// schema, contains unknown fields (typos), or fails field validation.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	// Schema first: CUE reports constraint violations (wrong types,
	// negative iteration counts) with better positions than the decoder.
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}

// validate checks required fields. The CUE schema already enforces most
// of this; the checks here keep Parse safe for callers that bypass YAML
// (none today) and produce plain messages for the common mistakes.
func validate(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}
	if sc.Body == "" {
		return fmt.Errorf("body is required")
	}
	if sc.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}
	return nil
}
