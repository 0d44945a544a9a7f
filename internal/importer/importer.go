package importer

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/config"
	"github.com/roach88/phasebeam/internal/moments"
	"github.com/roach88/phasebeam/internal/random"
	"github.com/roach88/phasebeam/internal/sdds"
	"github.com/roach88/phasebeam/internal/setup"
	"github.com/roach88/phasebeam/internal/shotnoise"
	"github.com/roach88/phasebeam/internal/slicer"
	"github.com/roach88/phasebeam/internal/transform"
)

// Skip counts used to derive the per-rank generators from the setup seed.
const (
	sliceSeedSkip = 10000
	noiseSeedSkip = 20000
)

// Redistributor moves particle records between ranks. want is the
// coordinate range this rank needs for its local slices.
type Redistributor interface {
	Redistribute(c comm.Communicator, parts []beam.Particle, want comm.Range) ([]beam.Particle, error)
}

// Config holds the collaborators and simulation inputs of an Importer.
// Zero-valued collaborators are replaced by defaults in New.
type Config struct {
	Setup   setup.Setup
	Time    setup.TimeWindow
	Lattice setup.Lattice

	// Converter turns the distribution file into a column file. Only rank
	// 0 calls it. Defaults to sdds.ScriptConverter.
	Converter sdds.Converter
	// Open opens the converted file. Defaults to sdds.OpenColumnFile.
	Open func(path string) (sdds.Reader, error)
	// Redistributor defaults to comm.Replicator.
	Redistributor Redistributor
	// RunIDs names runs in the analysis output. Defaults to UUIDv7.
	RunIDs RunIDGenerator

	// Logger receives diagnostics on rank 0. Other ranks log nothing.
	Logger *zap.Logger
	// Usage, if set, receives the keyword list on rank 0 after a
	// configuration error.
	Usage io.Writer
}

// Result is what one rank hands to the simulation.
type Result struct {
	// Beam holds the local slices in slice order.
	Beam *beam.Beam
	// Layout places Beam within the global slice list.
	Layout beam.SliceLayout
	// Moments are the final global moments.
	Moments beam.Moments
	// TotalLength is the bunch length in meters measured at ingestion.
	TotalLength float64
	// RunID names the run in the analysis output; empty without output.
	RunID string
	Trace []TraceStep
}

// Importer runs the import pipeline for one rank.
type Importer struct {
	cfg   Config
	comm  comm.Communicator
	log   *zap.Logger
	clock *Clock
	trace []TraceStep
	state State
}

// New creates an Importer for the rank behind c.
func New(c comm.Communicator, cfg Config) *Importer {
	if cfg.Converter == nil {
		cfg.Converter = sdds.ScriptConverter{}
	}
	if cfg.Open == nil {
		cfg.Open = func(path string) (sdds.Reader, error) { return sdds.OpenColumnFile(path) }
	}
	if cfg.Redistributor == nil {
		cfg.Redistributor = comm.Replicator{}
	}
	if cfg.RunIDs == nil {
		cfg.RunIDs = UUIDv7Generator{}
	}

	log := zap.NewNop()
	if cfg.Logger != nil && c.Rank() == 0 {
		log = cfg.Logger
	}

	return &Importer{
		cfg:   cfg,
		comm:  c,
		log:   log.With(zap.Int("ranks", c.Size())),
		clock: NewClock(),
	}
}

// Import runs the pipeline with the given sddsbeam keywords. It is a
// collective call: every rank must call it with the same keywords.
func (im *Importer) Import(ctx context.Context, opts map[string]string) (*Result, error) {
	im.trace = nil
	im.state = ""

	o, err := im.configure(opts)
	if err != nil {
		return nil, err
	}
	im.reach(StateConfigured)

	path, err := im.convert(ctx, o.File)
	if err != nil {
		return nil, err
	}
	im.reach(StateFileConverted)

	b, err := im.ingest(path, o.Charge)
	if err != nil {
		return nil, err
	}
	im.reach(StateIngested)

	window := moments.Window{Start: o.MatchStart, End: o.MatchEnd}
	m, err := im.analyze(b, window)
	if err != nil {
		return nil, err
	}
	im.reach(StateAnalyzed)

	if o.Center {
		im.log.Info("centering external distribution")
		transform.Center(b.dist, m, o.Target)
		im.reach(StateCentered)
	}
	if o.Match {
		im.log.Info("matching external distribution")
		transform.Match(b.dist, m.Twiss, o.Twiss)
		im.reach(StateMatched)
	}
	if o.Center || o.Match {
		im.log.Info("reanalysing matched and aligned distribution")
		if m, err = im.analyze(b, window); err != nil {
			return nil, err
		}
		im.reach(StateReAnalyzed)
	}

	layout := setup.Layout(im.cfg.Time, im.cfg.Setup, im.comm.Size(), im.comm.Rank())
	width := o.SliceWidth * b.length

	dist, err := im.redistribute(b, layout, width)
	if err != nil {
		return nil, err
	}
	im.reach(StateRedistributed)

	im.log.Info("generating internal particle distribution",
		zap.Int("slices", len(layout.Positions)),
		zap.Int("particles", len(dist)),
	)
	rank := im.comm.Rank()
	seed := uint32(im.cfg.Setup.Seed)
	synth := &slicer.Synthesizer{
		Setup: im.cfg.Setup,
		Width: width,
		DQ:    b.dq,
		Rand:  random.ForRank(seed, rank, sliceSeedSkip),
		Noise: shotnoise.NewFawley(random.ForRank(seed, rank, noiseSeedSkip)),
	}
	bm := synth.Synthesize(dist, layout)
	im.reach(StateSliced)

	res := &Result{
		Beam:        bm,
		Layout:      layout,
		Moments:     m,
		TotalLength: b.length,
	}

	if o.Output {
		id, err := im.persist(ctx, o, opts, res)
		if err != nil {
			return nil, err
		}
		res.RunID = id
		im.reach(StatePersistedAnalysis)
	}

	im.reach(StateDone)
	res.Trace = im.trace
	return res, nil
}

// Trace returns the states reached by the last Import, including those
// reached before a failure.
func (im *Importer) Trace() []TraceStep {
	return append([]TraceStep(nil), im.trace...)
}

// configure parses the keywords. It never communicates, so every rank
// reaches the same verdict on its own.
func (im *Importer) configure(opts map[string]string) (*config.Options, error) {
	o, err := config.Parse(opts, config.Defaults{
		ReferenceEnergy: im.cfg.Setup.ReferenceEnergy,
		Matched:         im.cfg.Lattice.Matched,
	})
	if err == nil {
		err = im.cfg.Setup.Check()
	}
	if err != nil {
		im.log.Error("invalid sddsbeam section", zap.Error(err))
		if im.cfg.Usage != nil && im.comm.Rank() == 0 {
			config.Usage(im.cfg.Usage)
		}
		return nil, newError(ErrCodeConfiguration, im.state, "invalid sddsbeam section", err)
	}
	return o, nil
}

// reach appends state to the trace.
func (im *Importer) reach(s State) {
	im.state = s
	im.trace = append(im.trace, TraceStep{Seq: im.clock.Next(), State: s})
	im.log.Debug("state reached", zap.String("state", string(s)))
}
