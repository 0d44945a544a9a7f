package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/setup"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+Suffix)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with plausible values.
func createTestRun(id string) Run {
	return Run{
		ID:          id,
		File:        "beam.sdds",
		Ranks:       2,
		NSlice:      3,
		TotalLength: 0.3,
		Moments: beam.Moments{
			GammaAvg: 300,
			EmitX:    1e-6,
			EmitY:    2e-6,
			Twiss:    beam.Twiss{BetaX: 15, AlphaX: -0.5, BetaY: 12, AlphaY: 0.25},
		},
		Setup: setup.Setup{
			ReferenceEnergy: 300,
			ReferenceLength: 1e-3,
			SampleRate:      10,
			ShotNoise:       true,
			NPart:           8,
			NBins:           4,
			Seed:            42,
		},
		Keywords: map[string]string{"file": "beam.sdds", "output": "true"},
	}
}

func createTestParticles(n int, offset float64) []beam.Particle {
	parts := make([]beam.Particle, n)
	for i := range parts {
		f := float64(i) + offset
		parts[i] = beam.Particle{Theta: 0.1 * f, Gamma: 300 + f, X: 1e-5 * f, Y: -1e-5 * f, Px: 0.01 * f, Py: -0.02 * f}
	}
	return parts
}

func createTestStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "shared"+Suffix)
}
