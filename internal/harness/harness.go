package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/config"
	"github.com/roach88/phasebeam/internal/importer"
	"github.com/roach88/phasebeam/internal/store"
	"github.com/roach88/phasebeam/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh World and a fresh temporary directory, so
// analysis files never leak between runs. An import failure is part of
// the result, not an error; Run fails only when the scenario cannot be
// executed at all.
//
// Execution flow:
// 1. Validate the deck and build the synthetic distribution
// 2. Import on every rank with stub conversion
// 3. Merge the local slices of all ranks
// 4. Evaluate assertions while the analysis file still exists
func Run(scenario *Scenario) (*Result, error) {
	deck, err := scenario.ParsedDeck()
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}

	dir, err := os.MkdirTemp("", "phasebeam-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	opts := deck.Options()
	if file := opts[config.KeyFile]; file != "" {
		opts[config.KeyFile] = filepath.Join(dir, filepath.Base(file))
	}

	reader := scenario.Distribution.Reader()
	converter := &testutil.StubConverter{Fail: scenario.FailConversion}
	runIDs := testutil.NewFixedRunIDGenerator(scenario.RunID)

	ranks := scenario.Ranks
	if ranks == 0 {
		ranks = 1
	}

	results := make([]*importer.Result, ranks)
	errs := make([]error, ranks)
	var trace []importer.TraceStep

	ctx := context.Background()
	w := comm.NewWorld(ranks)
	_ = w.Run(ctx, func(ctx context.Context, c comm.Communicator) error {
		im := importer.New(c, importer.Config{
			Setup:     deck.Setup,
			Time:      deck.Time,
			Lattice:   deck.Lattice,
			Converter: converter,
			Open:      reader.Open,
			RunIDs:    runIDs,
		})
		res, err := im.Import(ctx, opts)
		results[c.Rank()], errs[c.Rank()] = res, err
		if c.Rank() == 0 {
			trace = im.Trace()
		}
		return err
	})

	result := NewResult()
	for _, step := range trace {
		result.Trace = append(result.Trace, TraceEvent{Seq: step.Seq, State: string(step.State)})
	}
	result.ErrorCode = string(importer.CodeOf(errs[0]))
	result.Conversions = converter.Calls()
	if errs[0] == nil {
		result.RunID = results[0].RunID
	}
	result.Slices = mergeSlices(results)

	actx := &AssertionContext{
		Ctx:          ctx,
		AnalysisPath: opts[config.KeyFile] + store.Suffix,
		Errors:       errs,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// mergeSlices gathers the local slices of every successful rank in global
// slice order.
func mergeSlices(results []*importer.Result) []SliceSummary {
	out := []SliceSummary{}
	for _, res := range results {
		if res == nil || res.Beam == nil {
			continue
		}
		for i, parts := range res.Beam.Slices {
			out = append(out, SliceSummary{
				Index:     res.Layout.NodeOffset + i,
				Particles: len(parts),
				Current:   res.Beam.Current[i],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
