package moments

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
)

func single() comm.Communicator { return comm.NewWorld(1).Rank(0) }

func TestAnalyze_HandComputed(t *testing.T) {
	d := &beam.RawDistribution{
		T:  []float64{0.1, 0.2, 0.3, 0.4},
		G:  []float64{100, 100, 100, 100},
		X:  []float64{1, -1, 1, -1},
		Px: []float64{1, -1, -1, 1},
		Y:  []float64{2, -2, 2, -2},
		Py: []float64{0.5, -0.5, 0.5, -0.5},
	}

	m, err := Analyze(single(), d, Window{0, 1}, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, m.Count)
	assert.Equal(t, 100.0, m.GammaAvg)
	assert.Equal(t, 0.0, m.XAvg)
	assert.Equal(t, 1.0, m.VarX())
	assert.Equal(t, 1.0, m.VarPx())
	assert.Equal(t, 0.0, m.CovXPx())

	// εx = γ·sqrt(1·1 − 0) = 100, βx = 1/100·100 = 1, αx = 0
	assert.InDelta(t, 100, m.EmitX, 1e-12)
	assert.InDelta(t, 1, m.Twiss.BetaX, 1e-12)
	assert.InDelta(t, 0, m.Twiss.AlphaX, 1e-12)

	// y and py fully correlated: determinant zero.
	assert.InDelta(t, 0, m.EmitY, 1e-12)
}

func TestAnalyze_WindowIsStrict(t *testing.T) {
	d := &beam.RawDistribution{
		T:  []float64{0, 0.5, 1},
		G:  []float64{1, 2, 3},
		X:  make([]float64, 3),
		Px: make([]float64, 3),
		Y:  make([]float64, 3),
		Py: make([]float64, 3),
	}

	m, err := Analyze(single(), d, Window{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count, "endpoints are excluded")
	assert.Equal(t, 2.0, m.GammaAvg)

	m, err = Analyze(single(), d, Window{0.6, 1}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count, "window scales with the bunch length")
	assert.Equal(t, 3.0, m.GammaAvg)
}

func TestAnalyze_ZeroCountLeavesSums(t *testing.T) {
	d := &beam.RawDistribution{
		T: []float64{5}, G: []float64{7}, X: []float64{1}, Px: []float64{1}, Y: []float64{1}, Py: []float64{1},
	}

	m, err := Analyze(single(), d, Window{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Count)
	assert.Equal(t, 0.0, m.GammaAvg)
	assert.Equal(t, 0.0, m.EmitX)
	assert.True(t, math.IsNaN(m.Twiss.BetaX))
}

func TestAnalyze_ReducesAcrossRanks(t *testing.T) {
	full := &beam.RawDistribution{
		T:  []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		G:  []float64{10, 11, 12, 13, 14, 15},
		X:  []float64{0.1, -0.3, 0.2, 0.05, -0.1, 0.4},
		Px: []float64{0.01, 0.02, -0.03, 0.04, -0.05, 0.06},
		Y:  []float64{1, 2, 3, 4, 5, 6},
		Py: []float64{-1, 0, 1, 0, -1, 0},
	}
	want, err := Analyze(single(), full, Window{0, 1}, 1)
	require.NoError(t, err)

	split := func(r int) *beam.RawDistribution {
		lo, hi := r*2, r*2+2
		return &beam.RawDistribution{
			T: full.T[lo:hi], G: full.G[lo:hi], X: full.X[lo:hi],
			Px: full.Px[lo:hi], Y: full.Y[lo:hi], Py: full.Py[lo:hi],
		}
	}

	got := make([]beam.Moments, 3)
	w := comm.NewWorld(3)
	err = w.Run(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		m, err := Analyze(c, split(c.Rank()), Window{0, 1}, 1)
		got[c.Rank()] = m
		return err
	})
	require.NoError(t, err)

	for r := range got {
		assert.Equal(t, got[0], got[r], "every rank sees identical moments")
		assert.Equal(t, want.Count, got[r].Count)
		assert.InDelta(t, want.GammaAvg, got[r].GammaAvg, 1e-12)
		assert.InDelta(t, want.EmitX, got[r].EmitX, 1e-12)
		assert.InDelta(t, want.Twiss.BetaY, got[r].Twiss.BetaY, 1e-9)
	}
}
