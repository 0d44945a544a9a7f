package beam

import "fmt"

// Particle is a single macro-particle in phase space.
type Particle struct {
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Px    float64 `json:"px"`
	Py    float64 `json:"py"`
}

// RawDistribution is the per-rank column view of an imported distribution.
// All columns have the same length.
type RawDistribution struct {
	T  []float64
	G  []float64
	X  []float64
	Y  []float64
	Px []float64
	Py []float64
}

// NewRawDistribution allocates a distribution with n zeroed entries.
func NewRawDistribution(n int) *RawDistribution {
	return &RawDistribution{
		T:  make([]float64, n),
		G:  make([]float64, n),
		X:  make([]float64, n),
		Y:  make([]float64, n),
		Px: make([]float64, n),
		Py: make([]float64, n),
	}
}

// Len returns the number of entries.
func (d *RawDistribution) Len() int { return len(d.T) }

// Validate checks that all columns share one length.
func (d *RawDistribution) Validate() error {
	n := len(d.T)
	cols := map[string]int{
		"g": len(d.G), "x": len(d.X), "y": len(d.Y),
		"px": len(d.Px), "py": len(d.Py),
	}
	for name, l := range cols {
		if l != n {
			return fmt.Errorf("column %s has length %d, but t has length %d", name, l, n)
		}
	}
	return nil
}

// Particles converts the columns into particle records with energy-weighted
// transverse momenta.
func (d *RawDistribution) Particles() []Particle {
	out := make([]Particle, d.Len())
	for i := range out {
		out[i] = Particle{
			Theta: d.T[i],
			Gamma: d.G[i],
			X:     d.X[i],
			Y:     d.Y[i],
			Px:    d.Px[i] * d.G[i],
			Py:    d.Py[i] * d.G[i],
		}
	}
	return out
}

// Clear drops all column storage.
func (d *RawDistribution) Clear() {
	d.T, d.G, d.X, d.Y, d.Px, d.Py = nil, nil, nil, nil, nil, nil
}

// Twiss holds the optical functions of both transverse planes.
type Twiss struct {
	BetaX  float64 `json:"betax"`
	AlphaX float64 `json:"alphax"`
	BetaY  float64 `json:"betay"`
	AlphaY float64 `json:"alphay"`
}

// DefaultTwiss is used when no lattice-matched optics are available.
var DefaultTwiss = Twiss{BetaX: 15, AlphaX: 0, BetaY: 15, AlphaY: 0}

// Centroid is a target beam center.
type Centroid struct {
	Gamma float64
	X     float64
	Y     float64
	Px    float64
	Py    float64
}

// Moments are globally reduced beam statistics over a temporal window.
//
// The averages hold E[q] and the second-order fields hold the raw E[q²] or
// E[q·p]. When Count is zero they hold the unnormalized (zero) sums.
type Moments struct {
	Count int

	GammaAvg float64
	XAvg     float64
	YAvg     float64
	PxAvg    float64
	PyAvg    float64

	X2  float64
	Px2 float64
	XPx float64
	Y2  float64
	Py2 float64
	YPy float64

	EmitX float64
	EmitY float64
	Twiss Twiss
}

// VarX returns E[x²] − E[x]².
func (m Moments) VarX() float64 { return m.X2 - m.XAvg*m.XAvg }

// VarPx returns E[px²] − E[px]².
func (m Moments) VarPx() float64 { return m.Px2 - m.PxAvg*m.PxAvg }

// CovXPx returns E[x·px] − E[x]·E[px].
func (m Moments) CovXPx() float64 { return m.XPx - m.XAvg*m.PxAvg }

// VarY returns E[y²] − E[y]².
func (m Moments) VarY() float64 { return m.Y2 - m.YAvg*m.YAvg }

// VarPy returns E[py²] − E[py]².
func (m Moments) VarPy() float64 { return m.Py2 - m.PyAvg*m.PyAvg }

// CovYPy returns E[y·py] − E[y]·E[py].
func (m Moments) CovYPy() float64 { return m.YPy - m.YAvg*m.PyAvg }

// Centroid returns the first-order moments.
func (m Moments) Centroid() Centroid {
	return Centroid{Gamma: m.GammaAvg, X: m.XAvg, Y: m.YAvg, Px: m.PxAvg, Py: m.PyAvg}
}

// SliceLayout describes all slice positions and the contiguous range owned
// by one rank.
type SliceLayout struct {
	Positions  []float64
	NodeOffset int
	NodeLength int
}

// Local returns the position of the i-th local slice.
func (l SliceLayout) Local(i int) float64 {
	return l.Positions[l.NodeOffset+i]
}

// Bounds returns the positions of the first and last local slice.
// ok is false if the rank owns no slices.
func (l SliceLayout) Bounds() (smin, smax float64, ok bool) {
	if l.NodeLength == 0 {
		return 0, 0, false
	}
	return l.Positions[l.NodeOffset], l.Positions[l.NodeOffset+l.NodeLength-1], true
}

// Beam is the per-rank output handed to the simulation: one particle vector
// and one current value per local slice, in slice order.
type Beam struct {
	Slices  [][]Particle
	Current []float64
}

// NewBeam allocates empty slices for n local slices.
func NewBeam(n int) *Beam {
	return &Beam{
		Slices:  make([][]Particle, n),
		Current: make([]float64, n),
	}
}

// Len returns the number of local slices.
func (b *Beam) Len() int { return len(b.Slices) }
