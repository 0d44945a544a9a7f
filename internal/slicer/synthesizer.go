package slicer

import (
	"math"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/random"
	"github.com/roach88/phasebeam/internal/setup"
	"github.com/roach88/phasebeam/internal/shotnoise"
)

// Synthesizer builds the local slices of one rank. It is not safe for
// concurrent use.
type Synthesizer struct {
	Setup setup.Setup
	// Width is the slice window length in meters.
	Width float64
	// DQ is the charge carried by one imported particle.
	DQ float64

	Rand  random.Source
	Noise shotnoise.Applier

	// work holds the expanded phases of one slice. It grows across slices
	// and is never shrunk.
	work []beam.Particle
}

// Current returns the beam current of a slice holding count imported
// particles.
func (s *Synthesizer) Current(count int) float64 {
	if s.Width == 0 {
		return 0
	}
	return float64(count) * s.DQ * beam.SpeedOfLight / s.Width
}

// Electrons returns the number of real electrons a slice with the given
// current carries over one sampled wavelength.
func (s *Synthesizer) Electrons(current float64) float64 {
	return math.Round(current * s.Setup.ReferenceLength * float64(s.Setup.SampleRate) / beam.ElementaryCharge)
}

// Target returns the macro-particle count before binned expansion.
func (s *Synthesizer) Target(current float64) int {
	if s.Setup.One4One {
		return int(s.Electrons(current))
	}
	if s.Setup.NBins < 1 {
		return 0
	}
	return s.Setup.NPart / s.Setup.NBins
}

// Slice builds the population of the slice centered at center from the
// replicated distribution and returns it with the slice current.
func (s *Synthesizer) Slice(dist []beam.Particle, center float64) ([]beam.Particle, float64) {
	parts := Select(nil, dist, center, s.Width)
	current := s.Current(len(parts))
	target := s.Target(current)

	if len(parts) >= target {
		parts = Reduce(parts, target, s.Rand)
	} else {
		parts = Grow(parts, target, s.Rand)
	}

	theta0, nbins := s.Setup.Theta0()
	for i := range parts {
		parts[i].Theta = theta0 * s.Rand.Float64()
	}

	if s.Setup.One4One {
		return parts, current
	}
	return s.expand(parts, nbins, theta0, s.Electrons(current)), current
}

// expand replicates every particle into nbins adjacent buckets, copy j of
// particle i landing at i·nbins+j with its phase advanced by j·theta0, and
// seeds shot noise over the expanded phases.
func (s *Synthesizer) expand(parts []beam.Particle, nbins int, theta0, ne float64) []beam.Particle {
	n := len(parts) * nbins
	s.work = expandParticles(s.work, n)
	work := s.work[:n]

	for i, p := range parts {
		for j := 0; j < nbins; j++ {
			q := p
			q.Theta = p.Theta + float64(j)*theta0
			work[i*nbins+j] = q
		}
	}

	if s.Setup.ShotNoise && s.Noise != nil {
		s.Noise.Apply(work, nbins, ne)
	}

	out := make([]beam.Particle, n)
	copy(out, work)
	return out
}

// Synthesize builds every local slice of layout.
func (s *Synthesizer) Synthesize(dist []beam.Particle, layout beam.SliceLayout) *beam.Beam {
	b := beam.NewBeam(layout.NodeLength)
	for i := 0; i < layout.NodeLength; i++ {
		b.Slices[i], b.Current[i] = s.Slice(dist, layout.Local(i))
	}
	return b
}

func expandParticles(buf []beam.Particle, n int) []beam.Particle {
	switch {
	case cap(buf) >= n:
		return buf[:n]
	case int(float64(cap(buf))*1.5) > n:
		return append(buf[:cap(buf)], make([]beam.Particle, n-cap(buf))...)
	default:
		return make([]beam.Particle, n)
	}
}
