package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/moments"
	"github.com/roach88/phasebeam/internal/random"
)

// gaussianish builds a correlated test distribution from a fixed seed.
func gaussianish(n int) *beam.RawDistribution {
	src := random.NewMT19937(2024)
	d := beam.NewRawDistribution(n)
	for i := 0; i < n; i++ {
		u := func() float64 { return src.Float64() + src.Float64() + src.Float64() - 1.5 }
		d.T[i] = (float64(i) + 0.5) / float64(n)
		d.G[i] = 200 + u()
		d.X[i] = 1e-4*u() + 3e-5
		d.Px[i] = 2e-5*u() - 0.3*d.X[i]
		d.Y[i] = 2e-4*u() - 1e-5
		d.Py[i] = 1e-5*u() + 0.1*d.Y[i] + 4e-6
	}
	return d
}

func analyze(t *testing.T, d *beam.RawDistribution) beam.Moments {
	t.Helper()
	m, err := moments.Analyze(comm.NewWorld(1).Rank(0), d, moments.Window{Start: 0, End: 1}, 1)
	require.NoError(t, err)
	return m
}

func TestCenter_ReachesTargetCentroid(t *testing.T) {
	d := gaussianish(2000)
	m := analyze(t, d)

	target := beam.Centroid{Gamma: 250}
	Center(d, m, target)

	after := analyze(t, d)
	assert.InDelta(t, 250, after.GammaAvg, 1e-9)
	assert.InDelta(t, 0, after.XAvg, 1e-15)
	assert.InDelta(t, 0, after.YAvg, 1e-15)
	assert.InDelta(t, 0, after.PxAvg, 1e-15)
	assert.InDelta(t, 0, after.PyAvg, 1e-15)
}

func TestCenter_ShiftsBeforeScaling(t *testing.T) {
	d := &beam.RawDistribution{
		T: []float64{0.5}, G: []float64{100},
		X: []float64{2}, Y: []float64{0}, Px: []float64{0}, Py: []float64{0},
	}
	m := beam.Moments{GammaAvg: 100, XAvg: 1}

	Center(d, m, beam.Centroid{Gamma: 400, X: 3})

	// (2 + (3−1)) · sqrt(400/100)
	assert.Equal(t, 8.0, d.X[0])
	assert.Equal(t, 400.0, d.G[0])
}

func TestMatch_IdentityWhenTwissAgrees(t *testing.T) {
	d := gaussianish(500)
	orig := gaussianish(500)
	tw := beam.Twiss{BetaX: 12, AlphaX: 1.3, BetaY: 7, AlphaY: -0.4}

	Match(d, tw, tw)

	for i := range d.X {
		assert.InDelta(t, orig.X[i], d.X[i], 1e-18)
		assert.InDelta(t, orig.Px[i], d.Px[i], 1e-18)
		assert.InDelta(t, orig.Y[i], d.Y[i], 1e-18)
		assert.InDelta(t, orig.Py[i], d.Py[i], 1e-18)
	}
	assert.Equal(t, orig.G, d.G)
	assert.Equal(t, orig.T, d.T)
}

func TestCenter_EmptyWindowMomentsOverflow(t *testing.T) {
	d := &beam.RawDistribution{
		T:  []float64{0.1, 0.2, 0.3},
		G:  []float64{1, 2, 3},
		X:  []float64{1e-5, -2e-5, 0},
		Px: []float64{3e-6, 0, -1e-6},
		Y:  make([]float64, 3),
		Py: make([]float64, 3),
	}

	Center(d, beam.Moments{}, beam.Centroid{Gamma: 100})

	assert.Equal(t, []float64{101, 102, 103}, d.G, "γ is shifted by the full target")
	assert.True(t, math.IsInf(d.X[0], 1))
	assert.True(t, math.IsInf(d.X[1], -1))
	assert.True(t, math.IsNaN(d.X[2]))
	assert.True(t, math.IsInf(d.Px[0], 1))
	assert.True(t, math.IsNaN(d.Px[1]))
	assert.True(t, math.IsNaN(d.Y[0]))
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, d.T)
}

func TestMatch_ReachesTargetTwiss(t *testing.T) {
	d := gaussianish(4000)
	m := analyze(t, d)

	target := beam.Twiss{BetaX: 20, AlphaX: -1.5, BetaY: 8, AlphaY: 0.7}
	Match(d, m.Twiss, target)

	after := analyze(t, d)
	assert.InDelta(t, target.BetaX, after.Twiss.BetaX, 1e-6*target.BetaX)
	assert.InDelta(t, target.AlphaX, after.Twiss.AlphaX, 1e-6)
	assert.InDelta(t, target.BetaY, after.Twiss.BetaY, 1e-6*target.BetaY)
	assert.InDelta(t, target.AlphaY, after.Twiss.AlphaY, 1e-6)
	assert.InDelta(t, m.EmitX, after.EmitX, 1e-9*m.EmitX, "matching preserves emittance")
}
