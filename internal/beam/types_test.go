package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawDistribution_Particles_WeightsMomenta(t *testing.T) {
	d := &RawDistribution{
		T:  []float64{1, 2},
		G:  []float64{10, 20},
		X:  []float64{0.1, 0.2},
		Y:  []float64{0.3, 0.4},
		Px: []float64{0.5, 0.6},
		Py: []float64{0.7, 0.8},
	}

	parts := d.Particles()
	require.Len(t, parts, 2)

	assert.Equal(t, Particle{Theta: 1, Gamma: 10, X: 0.1, Y: 0.3, Px: 5, Py: 7}, parts[0])
	assert.InDelta(t, 12.0, parts[1].Px, 1e-12)
	assert.InDelta(t, 16.0, parts[1].Py, 1e-12)
}

func TestRawDistribution_Validate(t *testing.T) {
	d := NewRawDistribution(3)
	require.NoError(t, d.Validate())

	d.Py = d.Py[:2]
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column py")
}

func TestRawDistribution_Clear(t *testing.T) {
	d := NewRawDistribution(4)
	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.G)
}

func TestSliceLayout_Bounds(t *testing.T) {
	l := SliceLayout{Positions: []float64{0, 1, 2, 3, 4}, NodeOffset: 1, NodeLength: 3}

	smin, smax, ok := l.Bounds()
	require.True(t, ok)
	assert.Equal(t, 1.0, smin)
	assert.Equal(t, 3.0, smax)
	assert.Equal(t, 2.0, l.Local(1))

	empty := SliceLayout{Positions: []float64{0, 1}, NodeOffset: 2}
	_, _, ok = empty.Bounds()
	assert.False(t, ok)
}

func TestMoments_CentralForms(t *testing.T) {
	m := Moments{XAvg: 2, X2: 5, PxAvg: 1, Px2: 3, XPx: 4}

	assert.Equal(t, 1.0, m.VarX())
	assert.Equal(t, 2.0, m.VarPx())
	assert.Equal(t, 2.0, m.CovXPx())
}
