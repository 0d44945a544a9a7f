package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/phasebeam/internal/setup"
	"github.com/roach88/phasebeam/internal/testutil"
)

// Scenario defines an import run and the checks applied to its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ranks is the World size. Defaults to 1.
	Ranks int `yaml:"ranks,omitempty"`

	// Deck holds the setup, time, lattice and sddsbeam sections in the
	// same layout as a deck file.
	Deck map[string]any `yaml:"deck"`

	// Distribution is served in place of the converted file.
	Distribution testutil.Synthetic `yaml:"distribution"`

	// FailConversion makes the stub converter fail.
	FailConversion bool `yaml:"fail_conversion,omitempty"`

	// RunID names the run in the analysis file. If empty, defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the trace or the produced beam.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// States is the expected order (trace_order).
	States []string `yaml:"states,omitempty"`

	// State is the counted state (trace_count).
	State string `yaml:"state,omitempty"`

	// Count is the expected number for trace_count, slice_count,
	// slice_particles, conversions and stored_slices.
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code (error_code).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertSliceCount     = "slice_count"
	AssertSliceParticles = "slice_particles"
	AssertErrorCode      = "error_code"
	AssertConversions    = "conversions"
	AssertStoredSlices   = "stored_slices"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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

// ParsedDeck validates the inline deck against the deck schema.
func (s *Scenario) ParsedDeck() (*setup.Deck, error) {
	data, err := yaml.Marshal(s.Deck)
	if err != nil {
		return nil, fmt.Errorf("encode deck: %w", err)
	}
	return setup.ParseDeck(data)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Ranks < 0 {
		return fmt.Errorf("ranks must be non-negative")
	}

	if len(s.Deck) == 0 {
		return fmt.Errorf("deck is required")
	}
	if _, err := s.ParsedDeck(); err != nil {
		return fmt.Errorf("deck: %w", err)
	}

	if s.Distribution.Count < 0 {
		return fmt.Errorf("distribution.count must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSliceCount, AssertSliceParticles, AssertConversions, AssertStoredSlices:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
