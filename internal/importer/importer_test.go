package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/sdds"
	"github.com/roach88/phasebeam/internal/setup"
	"github.com/roach88/phasebeam/internal/store"
	"github.com/roach88/phasebeam/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture bundles the collaborators shared by every rank of a test run.
type fixture struct {
	reader    *testutil.MemoryReader
	converter *testutil.StubConverter
	logger    *zap.Logger
	usage     *lockedBuffer
}

func newFixture() *fixture {
	return &fixture{
		reader:    testutil.Uniform(1000).Reader(),
		converter: &testutil.StubConverter{},
		logger:    zap.NewNop(),
		usage:     &lockedBuffer{},
	}
}

func (f *fixture) config() Config {
	return Config{
		Setup: setup.Setup{
			ReferenceEnergy: 300,
			ReferenceLength: 1e-3,
			SampleRate:      10,
			ShotNoise:       true,
			NPart:           400,
			NBins:           4,
			Seed:            42,
		},
		Time:      setup.TimeWindow{S0: 0.05, SLen: 0.2},
		Converter: f.converter,
		Open:      f.reader.Open,
		RunIDs:    testutil.NewFixedRunIDGenerator("run-test"),
		Logger:    f.logger,
		Usage:     f.usage,
	}
}

func baseOptions() map[string]string {
	return map[string]string{
		"file":       "beam.sdds",
		"charge":     "1e-9",
		"slicewidth": "0.1",
		"center":     "true",
		"match":      "true",
	}
}

// runWorld imports opts on every rank of a fresh World.
func runWorld(t *testing.T, ranks int, f *fixture, opts map[string]string) ([]*Result, []error) {
	t.Helper()
	results := make([]*Result, ranks)
	errs := make([]error, ranks)

	w := comm.NewWorld(ranks)
	_ = w.Run(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		res, err := New(c, f.config()).Import(ctx, opts)
		results[c.Rank()], errs[c.Rank()] = res, err
		return err
	})
	return results, errs
}

// lockedBuffer is a bytes.Buffer safe for use from several ranks.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestImport_SingleRankEndToEnd(t *testing.T) {
	f := newFixture()

	results, errs := runWorld(t, 1, f, baseOptions())
	require.NoError(t, errs[0])
	res := results[0]

	assert.Equal(t, []State{
		StateConfigured, StateFileConverted, StateIngested, StateAnalyzed,
		StateCentered, StateMatched, StateReAnalyzed,
		StateRedistributed, StateSliced, StateDone,
	}, States(res.Trace))
	for i := 1; i < len(res.Trace); i++ {
		assert.Greater(t, res.Trace[i].Seq, res.Trace[i-1].Seq, "trace seq must increase")
	}

	assert.Equal(t, []string{"beam.sdds"}, f.converter.Paths())
	assert.InDelta(t, beam.SpeedOfLight*1e-9, res.TotalLength, 1e-12)

	require.Equal(t, 20, res.Beam.Len())
	for i, sl := range res.Beam.Slices {
		assert.Len(t, sl, 400, "slice %d", i)
		assert.Greater(t, res.Beam.Current[i], 0.0, "slice %d", i)
	}
}

func TestImport_CenterReachesTargetCentroid(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	delete(opts, "match")
	opts["gamma0"] = "310"

	results, errs := runWorld(t, 1, f, opts)
	require.NoError(t, errs[0])
	m := results[0].Moments

	assert.InDelta(t, 310, m.GammaAvg, 1e-9)
	assert.InDelta(t, 0, m.XAvg, 1e-15)
	assert.InDelta(t, 0, m.PxAvg, 1e-15)
	assert.InDelta(t, 0, m.YAvg, 1e-15)
	assert.InDelta(t, 0, m.PyAvg, 1e-15)
}

func TestImport_MatchReachesTargetTwiss(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	delete(opts, "center")
	opts["betax"] = "20"
	opts["alphax"] = "-1"

	results, errs := runWorld(t, 1, f, opts)
	require.NoError(t, errs[0])
	m := results[0].Moments

	assert.InDelta(t, 20, m.Twiss.BetaX, 20e-6)
	assert.InDelta(t, -1, m.Twiss.AlphaX, 1e-6)
	assert.InDelta(t, beam.DefaultTwiss.BetaY, m.Twiss.BetaY, 15e-6, "unset keywords fall back to default optics")
	assert.InDelta(t, 0, m.Twiss.AlphaY, 1e-6)
}

func TestImport_LatticeOpticsAreMatchDefaults(t *testing.T) {
	f := newFixture()
	w := comm.NewWorld(1)
	cfg := f.config()
	cfg.Lattice.Matched = &beam.Twiss{BetaX: 9, AlphaX: 0.5, BetaY: 11, AlphaY: -0.5}
	opts := baseOptions()
	delete(opts, "center")

	res, err := New(w.Rank(0), cfg).Import(context.Background(), opts)
	require.NoError(t, err)

	assert.InDelta(t, 9, res.Moments.Twiss.BetaX, 9e-6)
	assert.InDelta(t, -0.5, res.Moments.Twiss.AlphaY, 1e-6)
}

func TestImport_NoTransformSkipsReanalysis(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	delete(opts, "center")
	delete(opts, "match")

	results, errs := runWorld(t, 1, f, opts)
	require.NoError(t, errs[0])

	assert.Equal(t, []State{
		StateConfigured, StateFileConverted, StateIngested, StateAnalyzed,
		StateRedistributed, StateSliced, StateDone,
	}, States(results[0].Trace))
}

func TestImport_UnknownKeyFailsBeforeConversion(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	opts["foo"] = "bar"

	_, errs := runWorld(t, 2, f, opts)

	for rank, err := range errs {
		require.Error(t, err, "rank %d", rank)
		assert.True(t, IsConfigurationError(err), "rank %d: %v", rank, err)
		assert.Contains(t, err.Error(), "foo")
	}
	assert.Zero(t, f.converter.Calls(), "conversion must not run")
	assert.Contains(t, f.usage.String(), "List of keywords for sddsbeam")
	assert.Equal(t, 1, bytes.Count([]byte(f.usage.String()), []byte("&sddsbeam")),
		"only rank 0 prints usage")
}

func TestImport_MissingFile(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	delete(opts, "file")

	_, errs := runWorld(t, 1, f, opts)

	assert.True(t, IsConfigurationError(errs[0]))
	assert.Zero(t, f.converter.Calls())
}

func TestImport_BinCountMismatch(t *testing.T) {
	f := newFixture()
	w := comm.NewWorld(1)
	cfg := f.config()
	cfg.Setup.NPart = 401

	_, err := New(w.Rank(0), cfg).Import(context.Background(), baseOptions())

	assert.True(t, IsConfigurationError(err))
	assert.Zero(t, f.converter.Calls())
}

func TestImport_ConversionFailureIsAgreed(t *testing.T) {
	f := newFixture()
	f.converter.Fail = true

	_, errs := runWorld(t, 3, f, baseOptions())

	for rank, err := range errs {
		assert.True(t, IsConversionError(err), "rank %d: %v", rank, err)
	}
	assert.ErrorIs(t, errs[0], testutil.ErrConversion, "rank 0 keeps the cause")
	assert.Equal(t, 1, f.converter.Calls(), "only rank 0 converts")
}

func TestImport_TraceKeptAfterFailure(t *testing.T) {
	f := newFixture()
	f.reader.FailOn = sdds.ColumnT
	w := comm.NewWorld(1)

	im := New(w.Rank(0), f.config())
	_, err := im.Import(context.Background(), baseOptions())

	require.Error(t, err)
	assert.Equal(t, []State{StateConfigured, StateFileConverted}, States(im.Trace()))
}

func TestImport_ReadFailureIsAgreed(t *testing.T) {
	f := newFixture()
	f.reader.FailOn = sdds.ColumnXP

	_, errs := runWorld(t, 3, f, baseOptions())

	for rank, err := range errs {
		assert.Equal(t, ErrCodeRead, CodeOf(err), "rank %d: %v", rank, err)
	}
}

func TestImport_MultiRankAgreesWithSingleRank(t *testing.T) {
	single, errs := runWorld(t, 1, newFixture(), baseOptions())
	require.NoError(t, errs[0])

	results, errs := runWorld(t, 3, newFixture(), baseOptions())
	for rank, err := range errs {
		require.NoError(t, err, "rank %d", rank)
	}

	want := single[0].Moments
	covered := make([]bool, 20)
	for rank, res := range results {
		assert.Equal(t, results[0].Moments, res.Moments, "rank %d sees the global moments", rank)
		assert.Equal(t, single[0].TotalLength, res.TotalLength)
		assert.Equal(t, want.Count, res.Moments.Count)
		assert.InDelta(t, want.EmitX, res.Moments.EmitX, 1e-9*want.EmitX)
		assert.InDelta(t, want.Twiss.BetaY, res.Moments.Twiss.BetaY, 1e-9*want.Twiss.BetaY)

		for i, sl := range res.Beam.Slices {
			idx := res.Layout.NodeOffset + i
			assert.False(t, covered[idx], "slice %d owned twice", idx)
			covered[idx] = true
			assert.Len(t, sl, 400, "slice %d", idx)
			assert.Equal(t, single[0].Beam.Current[idx], res.Beam.Current[i], "slice %d current", idx)
		}
	}
	for idx, ok := range covered {
		assert.True(t, ok, "slice %d not owned", idx)
	}
}

func TestImport_Reproducible(t *testing.T) {
	a, errs := runWorld(t, 2, newFixture(), baseOptions())
	require.NoError(t, errs[0])
	b, errs := runWorld(t, 2, newFixture(), baseOptions())
	require.NoError(t, errs[0])

	for rank := range a {
		assert.Equal(t, a[rank].Beam, b[rank].Beam, "rank %d", rank)
	}
}

func TestImport_WritesAnalysis(t *testing.T) {
	f := newFixture()
	opts := baseOptions()
	opts["file"] = filepath.Join(t.TempDir(), "beam.sdds")
	opts["output"] = "true"

	results, errs := runWorld(t, 2, f, opts)
	for rank, err := range errs {
		require.NoError(t, err, "rank %d", rank)
	}
	assert.Equal(t, StatePersistedAnalysis, results[0].Trace[len(results[0].Trace)-2].State)
	assert.Equal(t, "run-test", results[1].RunID)

	s, err := store.Open(opts["file"] + store.Suffix)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	run, err := s.ReadRun(ctx, "run-test")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Ranks)
	assert.Equal(t, 20, run.NSlice)
	assert.Equal(t, results[0].Moments.Twiss, run.Moments.Twiss)
	assert.Equal(t, "true", run.Keywords["output"])

	slices, err := s.ReadSlices(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, slices, 20)
	for i, sl := range slices {
		assert.Equal(t, i, sl.Index)
		assert.Equal(t, 400, sl.Count)
	}

	last := results[1]
	parts, err := s.ReadParticles(ctx, "run-test", last.Layout.NodeOffset)
	require.NoError(t, err)
	assert.Equal(t, last.Beam.Slices[0], parts)
}

func TestImport_LogsOnRankZeroOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture()
	f.logger = zap.New(core)

	_, errs := runWorld(t, 3, f, baseOptions())
	require.NoError(t, errs[0])

	reports := logs.FilterMessage("analysis of the imported distribution").All()
	require.Len(t, reports, 2, "one report before and one after the transforms")
	assert.Equal(t, int64(3), reports[0].ContextMap()["ranks"])
	assert.Len(t, logs.FilterMessage("imported distribution").All(), 1)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name           string
		n, size, rank  int
		offset, length int
	}{
		{"even split", 9, 3, 1, 3, 3},
		{"short tail", 10, 3, 2, 8, 2},
		{"first of uneven", 10, 3, 0, 0, 4},
		{"empty tail", 4, 3, 2, 4, 0},
		{"more ranks than records", 2, 4, 3, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, length := chunk(tt.n, tt.size, tt.rank)
			assert.Equal(t, tt.offset, offset)
			assert.Equal(t, tt.length, length)
		})
	}
}
