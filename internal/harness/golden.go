package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden view of a scenario run. Currents are left out
// since they depend on floating point summation order.
type Snapshot struct {
	ScenarioName string   `json:"scenario_name"`
	States       []string `json:"states"`
	Particles    []int    `json:"particles"`
	ErrorCode    string   `json:"error_code,omitempty"`
	Conversions  int      `json:"conversions"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		States:       result.States(),
		Particles:    make([]int, len(result.Slices)),
		ErrorCode:    result.ErrorCode,
		Conversions:  result.Conversions,
	}
	for i, sl := range result.Slices {
		s.Particles[i] = sl.Particles
	}
	return s
}

// MarshalSnapshot renders the golden file content for result.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return json.MarshalIndent(NewSnapshot(name, result), "", "  ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
