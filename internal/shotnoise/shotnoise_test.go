package shotnoise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/random"
)

func binned(beamlets, nbins int) []beam.Particle {
	theta0 := beam.TwoPi / float64(nbins)
	parts := make([]beam.Particle, 0, beamlets*nbins)
	for b := 0; b < beamlets; b++ {
		base := 0.1 * theta0 * float64(b%7)
		for j := 0; j < nbins; j++ {
			parts = append(parts, beam.Particle{
				Theta: base + float64(j)*theta0,
				Gamma: 100 + float64(b),
				X:     1e-5 * float64(b),
				Y:     -2e-5 * float64(b),
				Px:    0.3,
				Py:    -0.1,
			})
		}
	}
	return parts
}

func TestFawley_ChangesOnlyPhase(t *testing.T) {
	parts := binned(50, 4)
	before := append([]beam.Particle(nil), parts...)

	NewFawley(random.NewMT19937(7)).Apply(parts, 4, 1e5)

	changed := 0
	for i := range parts {
		if parts[i].Theta != before[i].Theta {
			changed++
		}
		want := before[i]
		want.Theta = parts[i].Theta
		assert.Equal(t, want, parts[i], "particle %d has non-phase changes", i)
	}
	assert.Greater(t, changed, 0, "shot noise should move phases")
}

func TestFawley_AmplitudeShrinksWithElectronCount(t *testing.T) {
	shift := func(ne float64) float64 {
		parts := binned(100, 4)
		before := append([]beam.Particle(nil), parts...)
		NewFawley(random.NewMT19937(11)).Apply(parts, 4, ne)
		sum := 0.0
		for i := range parts {
			sum += math.Abs(parts[i].Theta - before[i].Theta)
		}
		return sum
	}

	assert.Greater(t, shift(1e3), shift(1e7))
}

func TestFawley_NoOpCases(t *testing.T) {
	tests := []struct {
		name  string
		nbins int
		ne    float64
	}{
		{"single bin", 1, 1e6},
		{"zero electrons", 4, 0},
		{"negative electrons", 4, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := binned(10, 4)
			before := append([]beam.Particle(nil), parts...)

			NewFawley(random.NewMT19937(3)).Apply(parts, tt.nbins, tt.ne)

			require.Equal(t, before, parts)
		})
	}
}

func TestNone(t *testing.T) {
	parts := binned(3, 2)
	before := append([]beam.Particle(nil), parts...)
	None{}.Apply(parts, 2, 1e9)
	assert.Equal(t, before, parts)
}
