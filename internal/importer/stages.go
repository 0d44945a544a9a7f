package importer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/moments"
	"github.com/roach88/phasebeam/internal/sdds"
)

// bunch is the ingested local share of the distribution.
type bunch struct {
	dist *beam.RawDistribution
	// total is the global particle count.
	total int
	// length is the bunch length in meters.
	length float64
	// dq is the charge of one imported particle.
	dq float64
}

// conversion is the outcome broadcast by rank 0.
type conversion struct {
	Path    string
	Failure string
}

// convert runs the external conversion on rank 0 and shares the outcome.
// Every rank returns the same verdict.
func (im *Importer) convert(ctx context.Context, file string) (string, error) {
	var (
		st    conversion
		cause error
	)
	if im.comm.Rank() == 0 {
		im.log.Info("converting distribution file", zap.String("file", file))
		path, err := im.cfg.Converter.Convert(ctx, file)
		if err != nil {
			cause = err
			st.Failure = err.Error()
			im.log.Error("distribution file conversion failed", zap.String("file", file), zap.Error(err))
		}
		st.Path = path
	}

	st, err := comm.Bcast(im.comm, st, 0)
	if err != nil {
		return "", newError(ErrCodeCollective, im.state, "broadcast conversion status", err)
	}
	if st.Failure != "" {
		if cause == nil {
			cause = errors.New(st.Failure)
		}
		return "", newError(ErrCodeConversion, im.state, fmt.Sprintf("convert %s", file), cause)
	}
	return st.Path, nil
}

// ingest reads this rank's chunk and brings it into the internal frame:
// t becomes a longitudinal position −c·t shifted to start at zero and p
// becomes γ = p + 1.
func (im *Importer) ingest(path string, charge float64) (*bunch, error) {
	im.log.Info("importing converted distribution file", zap.String("path", path))

	d, total, readErr := im.read(path)
	failed := 0
	if readErr != nil {
		failed = 1
	}
	nfailed, err := comm.AllreduceSumInt(im.comm, failed)
	if err != nil {
		return nil, newError(ErrCodeCollective, im.state, "agree on read status", err)
	}
	if nfailed > 0 {
		if readErr == nil {
			readErr = fmt.Errorf("%d rank(s) failed to read", nfailed)
		}
		return nil, newError(ErrCodeRead, im.state, fmt.Sprintf("read %s", path), readErr)
	}
	if total == 0 {
		return nil, newError(ErrCodeRead, im.state, fmt.Sprintf("read %s", path), errors.New("distribution is empty"))
	}

	floats.Scale(-beam.SpeedOfLight, d.T)
	floats.AddConst(1, d.G)

	lo, hi := math.Inf(1), math.Inf(-1)
	if d.Len() > 0 {
		lo, hi = floats.Min(d.T), floats.Max(d.T)
	}
	tmin, err := comm.AllreduceMin(im.comm, lo)
	if err != nil {
		return nil, newError(ErrCodeCollective, im.state, "reduce bunch start", err)
	}
	tmax, err := comm.AllreduceMax(im.comm, hi)
	if err != nil {
		return nil, newError(ErrCodeCollective, im.state, "reduce bunch end", err)
	}
	floats.AddConst(-tmin, d.T)

	b := &bunch{
		dist:   d,
		total:  total,
		length: tmax - tmin,
		dq:     charge / float64(total),
	}
	im.log.Info("imported distribution",
		zap.Int("particles", total),
		zap.Float64("bunch_length_um", b.length*1e6),
	)
	return b, nil
}

// read loads this rank's contiguous chunk of every dataset.
func (im *Importer) read(path string) (*beam.RawDistribution, int, error) {
	r, err := im.cfg.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	total, err := r.Len(sdds.ColumnT)
	if err != nil {
		return nil, 0, err
	}
	offset, n := chunk(total, im.comm.Size(), im.comm.Rank())

	d := beam.NewRawDistribution(n)
	cols := []struct {
		name string
		dst  []float64
	}{
		{sdds.ColumnT, d.T},
		{sdds.ColumnP, d.G},
		{sdds.ColumnX, d.X},
		{sdds.ColumnXP, d.Px},
		{sdds.ColumnY, d.Y},
		{sdds.ColumnYP, d.Py},
	}
	for _, col := range cols {
		if err := r.ReadFloat64s(col.name, offset, col.dst); err != nil {
			return nil, 0, fmt.Errorf("dataset %s: %w", col.name, err)
		}
	}
	return d, total, nil
}

// chunk splits n records into size contiguous chunks of ceil(n/size); the
// trailing ranks may get a short or empty chunk.
func chunk(n, size, rank int) (offset, length int) {
	nchunk := n / size
	if n%size != 0 {
		nchunk++
	}
	offset = min(rank*nchunk, n)
	length = min(nchunk, n-offset)
	return offset, length
}

// analyze computes the global moments over window and reports them.
func (im *Importer) analyze(b *bunch, window moments.Window) (beam.Moments, error) {
	m, err := moments.Analyze(im.comm, b.dist, window, b.length)
	if err != nil {
		return beam.Moments{}, newError(ErrCodeCollective, im.state, "analyse distribution", err)
	}

	t0, t1 := window.Bounds(b.length)
	im.log.Info("analysis of the imported distribution",
		zap.Float64("match_length_um", (t1-t0)*1e6),
		zap.Float64("energy_mev", m.GammaAvg*beam.ElectronMassEV*1e-6),
		zap.Float64("emit_x_um", m.EmitX*1e6),
		zap.Float64("emit_y_um", m.EmitY*1e6),
		zap.Float64("beta_x_m", m.Twiss.BetaX),
		zap.Float64("beta_y_m", m.Twiss.BetaY),
		zap.Float64("alpha_x", m.Twiss.AlphaX),
		zap.Float64("alpha_y", m.Twiss.AlphaY),
		zap.Float64("center_x_um", m.XAvg*1e6),
		zap.Float64("center_y_um", m.YAvg*1e6),
		zap.Float64("center_px", m.PxAvg),
		zap.Float64("center_py", m.PyAvg),
	)
	return m, nil
}

// redistribute converts the columns into particle records, releases the
// columns and hands the records to the redistributor.
func (im *Importer) redistribute(b *bunch, layout beam.SliceLayout, width float64) ([]beam.Particle, error) {
	im.log.Info("sorting external distribution")

	want := comm.Range{Empty: true}
	if smin, smax, ok := layout.Bounds(); ok {
		want = comm.Range{Min: smin - width, Max: smax + width}
	}

	parts := b.dist.Particles()
	b.dist.Clear()

	all, err := im.cfg.Redistributor.Redistribute(im.comm, parts, want)
	if err != nil {
		return nil, newError(ErrCodeCollective, im.state, "redistribute particles", err)
	}
	return all, nil
}
