// Package harness runs import scenarios end to end.
//
// A scenario names a deck, a synthetic distribution and a rank count. The
// harness imports the distribution on an in-process World with stub
// conversion, then evaluates assertions against the merged result.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: binned_center_match
//	description: "What this scenario validates"
//	ranks: 2
//	deck:
//	  setup: { gamma0: 300, lambda0: 1.0e-3, sample: 10, npart: 400, nbins: 4, seed: 42 }
//	  time: { s0: 0.05, slen: 0.2 }
//	  sddsbeam: { file: beam.sdds, charge: 1.0e-9, center: true }
//	distribution:
//	  count: 1000
//	  duration: 1.0e-9
//	  gamma: 300
//	assertions:
//	  - type: trace_order
//	    states: [Configured, Centered, Done]
//	  - type: slice_particles
//	    count: 400
//
// # Assertion Types
//
//   - trace_order: the states appear in order, not necessarily adjacent
//   - trace_count: a state appears exactly count times
//   - slice_count: the merged beam has count slices
//   - slice_particles: every slice holds count particles
//   - error_code: the import failed on every rank with code
//   - conversions: the converter ran count times
//   - stored_slices: the analysis file holds count slice rows
//
// # Deterministic Testing
//
// The deck seed fixes every random draw and the run id is fixed per
// scenario, so traces and slice counts are reproducible for golden file
// comparison. Each run writes into its own temporary directory.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/binned.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
