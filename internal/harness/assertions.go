package harness

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/roach88/phasebeam/internal/importer"
	"github.com/roach88/phasebeam/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s (seq %d)\n", i+1, event.State, event.Seq)
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the Result.
type AssertionContext struct {
	Ctx context.Context
	// AnalysisPath is where the importer writes its analysis file.
	AnalysisPath string
	// Errors holds the import error of every rank.
	Errors []error
}

// assertTraceOrder checks that states appear in the given order.
// States don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.State] == 0 {
			positions[event.State] = i + 1 // 1-indexed for readability
		}
	}

	for _, state := range assertion.States {
		if positions[state] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all states present: %v", assertion.States),
				Actual:   fmt.Sprintf("missing state: %s", state),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.States); i++ {
		prev := assertion.States[i-1]
		curr := assertion.States[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("states in order: %v", assertion.States),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the state appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.State == assertion.State {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s reached %d times", assertion.State, assertion.Count),
			Actual:   fmt.Sprintf("reached %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertSliceCount(result *Result, assertion Assertion) error {
	if len(result.Slices) != assertion.Count {
		return &AssertionError{
			Type:     AssertSliceCount,
			Expected: fmt.Sprintf("%d slices", assertion.Count),
			Actual:   fmt.Sprintf("%d slices", len(result.Slices)),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertSliceParticles(result *Result, assertion Assertion) error {
	for _, sl := range result.Slices {
		if sl.Particles != assertion.Count {
			return &AssertionError{
				Type:     AssertSliceParticles,
				Expected: fmt.Sprintf("%d particles in every slice", assertion.Count),
				Actual:   fmt.Sprintf("slice %d holds %d", sl.Index, sl.Particles),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertErrorCode checks that every rank failed with the same code.
func assertErrorCode(result *Result, assertion Assertion, errs []error) error {
	for rank, err := range errs {
		code := string(importer.CodeOf(err))
		if code != assertion.Code {
			actual := "success"
			if err != nil {
				actual = err.Error()
			}
			return &AssertionError{
				Type:     AssertErrorCode,
				Expected: fmt.Sprintf("every rank fails with %s", assertion.Code),
				Actual:   fmt.Sprintf("rank %d: %s", rank, actual),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertConversions(result *Result, assertion Assertion) error {
	if result.Conversions != assertion.Count {
		return &AssertionError{
			Type:     AssertConversions,
			Expected: fmt.Sprintf("%d conversions", assertion.Count),
			Actual:   fmt.Sprintf("%d conversions", result.Conversions),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStoredSlices opens the analysis file and counts the slice rows of
// the run.
func assertStoredSlices(ctx context.Context, path string, result *Result, assertion Assertion) error {
	if _, err := os.Stat(path); err != nil {
		return &AssertionError{
			Type:     AssertStoredSlices,
			Expected: fmt.Sprintf("analysis file with %d slices", assertion.Count),
			Actual:   "no analysis file",
			Trace:    result.Trace,
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("stored_slices: open analysis file: %w", err)
	}
	defer st.Close()

	slices, err := st.ReadSlices(ctx, result.RunID)
	if err != nil {
		return fmt.Errorf("stored_slices: %w", err)
	}
	if len(slices) != assertion.Count {
		return &AssertionError{
			Type:     AssertStoredSlices,
			Expected: fmt.Sprintf("%d stored slices", assertion.Count),
			Actual:   fmt.Sprintf("%d stored slices", len(slices)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertSliceCount:
			err = assertSliceCount(result, assertion)
		case AssertSliceParticles:
			err = assertSliceParticles(result, assertion)
		case AssertConversions:
			err = assertConversions(result, assertion)
		case AssertErrorCode:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: error_code requires rank errors", i)
			} else {
				err = assertErrorCode(result, assertion, actx.Errors)
			}
		case AssertStoredSlices:
			if actx == nil || actx.AnalysisPath == "" {
				err = fmt.Errorf("assertion[%d]: stored_slices requires an analysis path", i)
			} else {
				err = assertStoredSlices(actx.Ctx, actx.AnalysisPath, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
