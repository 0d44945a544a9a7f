// Package shotnoise seeds statistical phase fluctuations into binned
// macro-particle populations.
package shotnoise

import (
	"math"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/random"
)

// Applier perturbs the phases of a binned population. Implementations must
// only change Theta.
//
// parts holds consecutive beamlets of nbins particles each; ne is the number
// of real electrons the population stands for.
type Applier interface {
	Apply(parts []beam.Particle, nbins int, ne float64)
}

// Fawley applies the beamlet algorithm: each beamlet gets, per harmonic h up
// to nbins/2, a random bunching amplitude scaled to the electron count and
// a random phase.
type Fawley struct {
	Source random.Source
}

// NewFawley returns a Fawley applier drawing from src.
func NewFawley(src random.Source) *Fawley {
	return &Fawley{Source: src}
}

// Apply implements Applier.
func (f *Fawley) Apply(parts []beam.Particle, nbins int, ne float64) {
	if nbins < 2 || ne <= 0 || len(parts) < nbins {
		return
	}
	beamlets := len(parts) / nbins
	nbl := ne / float64(beamlets)
	hmax := nbins / 2

	for b := 0; b < beamlets; b++ {
		let := parts[b*nbins : (b+1)*nbins]
		for h := 1; h <= hmax; h++ {
			amp := 2 * math.Sqrt(-math.Log(f.draw())/nbl) / float64(h)
			phi := beam.TwoPi * f.Source.Float64()
			hf := float64(h)
			for i := range let {
				let[i].Theta -= amp * math.Sin(hf*let[i].Theta+phi)
			}
		}
	}
}

// draw returns a uniform value in (0, 1) so the logarithm stays finite.
func (f *Fawley) draw() float64 {
	for {
		if r := f.Source.Float64(); r > 0 {
			return r
		}
	}
}

// None leaves every phase untouched.
type None struct{}

// Apply implements Applier.
func (None) Apply([]beam.Particle, int, float64) {}
