// Package setup holds the simulation-side inputs the importer consumes:
// reference energy and wavelength, sampling, particle counts, the time
// window and the lattice-matched optics.
package setup

import (
	"fmt"
	"math"

	"github.com/roach88/phasebeam/internal/beam"
)

// Setup mirrors the simulation's global setup section.
type Setup struct {
	ReferenceEnergy float64 `json:"gamma0"`
	ReferenceLength float64 `json:"lambda0"`
	SampleRate      int     `json:"sample"`
	One4One         bool    `json:"one4one"`
	ShotNoise       bool    `json:"shotnoise"`
	NPart           int     `json:"npart"`
	NBins           int     `json:"nbins"`
	Seed            int     `json:"seed"`
}

// TimeWindow is the longitudinal extent covered by slices, in meters.
type TimeWindow struct {
	S0   float64 `json:"s0"`
	SLen float64 `json:"slen"`
}

// Lattice carries optics computed by the lattice provider.
type Lattice struct {
	// Matched is nil when the lattice did not compute matched optics.
	Matched *beam.Twiss `json:"matched,omitempty"`
}

// SliceSpacing returns the distance between slice centers.
func (s Setup) SliceSpacing() float64 {
	return s.ReferenceLength * float64(s.SampleRate)
}

// Theta0 returns the phase extent of a single bucket and the effective bin
// count. In one-for-one mode there is a single bucket spanning the whole
// sampled slice.
func (s Setup) Theta0() (theta0 float64, nbins int) {
	theta0 = beam.TwoPi
	nbins = s.NBins
	if s.One4One {
		nbins = 1
		theta0 *= float64(s.SampleRate)
	}
	return theta0 / float64(nbins), nbins
}

// Check reports inconsistencies between particle and bin counts.
func (s Setup) Check() error {
	if s.One4One {
		return nil
	}
	if s.NBins < 1 {
		return fmt.Errorf("nbins must be >= 1, got %d", s.NBins)
	}
	if s.NPart%s.NBins != 0 {
		return fmt.Errorf("npart (%d) is not a multiple of nbins (%d)", s.NPart, s.NBins)
	}
	return nil
}

// Layout distributes the slices of the time window over size ranks and
// returns rank's view. Ranks own contiguous ranges; the first nslice%size
// ranks own one extra slice.
func Layout(tw TimeWindow, s Setup, size, rank int) beam.SliceLayout {
	ds := s.SliceSpacing()
	nslice := 0
	if ds > 0 {
		nslice = int(math.Round(tw.SLen / ds))
	}

	pos := make([]float64, nslice)
	for i := range pos {
		pos[i] = tw.S0 + float64(i)*ds
	}

	base, rem := nslice/size, nslice%size
	length := base
	if rank < rem {
		length++
	}
	offset := rank*base + min(rank, rem)

	return beam.SliceLayout{Positions: pos, NodeOffset: offset, NodeLength: length}
}
