// Package moments computes windowed, globally reduced beam statistics.
package moments

import (
	"fmt"
	"math"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/comm"
)

// Window is a temporal interval given as fractions of the total bunch length.
type Window struct {
	Start, End float64
}

// Bounds scales the window by the bunch length.
func (w Window) Bounds(total float64) (t0, t1 float64) {
	return w.Start * total, w.End * total
}

// order of the reduced sums
const (
	sumGamma = iota
	sumX
	sumPx
	sumY
	sumPy
	sumX2
	sumPx2
	sumXPx
	sumY2
	sumPy2
	sumYPy
	numSums
)

// Analyze computes moments of d over particles with t strictly inside the
// window, reduced over all ranks of c. It is a collective call.
//
// Variances use the E[q²] − E[q]² form. With a global count of zero the
// sums are left unnormalized and the derived emittance and Twiss values
// follow from them (NaN for β and α).
func Analyze(c comm.Communicator, d *beam.RawDistribution, w Window, total float64) (beam.Moments, error) {
	t0, t1 := w.Bounds(total)

	count := 0
	var local [numSums]float64
	for i, t := range d.T {
		if t <= t0 || t >= t1 {
			continue
		}
		count++
		x, px, y, py := d.X[i], d.Px[i], d.Y[i], d.Py[i]
		local[sumGamma] += d.G[i]
		local[sumX] += x
		local[sumPx] += px
		local[sumY] += y
		local[sumPy] += py
		local[sumX2] += x * x
		local[sumPx2] += px * px
		local[sumXPx] += x * px
		local[sumY2] += y * y
		local[sumPy2] += py * py
		local[sumYPy] += y * py
	}

	n, err := comm.AllreduceSumInt(c, count)
	if err != nil {
		return beam.Moments{}, fmt.Errorf("reduce particle count: %w", err)
	}
	s, err := comm.AllreduceSum(c, local[:])
	if err != nil {
		return beam.Moments{}, fmt.Errorf("reduce moments: %w", err)
	}

	if n > 0 {
		scl := 1 / float64(n)
		for i := range s {
			s[i] *= scl
		}
	}

	m := beam.Moments{
		Count:    n,
		GammaAvg: s[sumGamma],
		XAvg:     s[sumX],
		PxAvg:    s[sumPx],
		YAvg:     s[sumY],
		PyAvg:    s[sumPy],
		X2:       s[sumX2],
		Px2:      s[sumPx2],
		XPx:      s[sumXPx],
		Y2:       s[sumY2],
		Py2:      s[sumPy2],
		YPy:      s[sumYPy],
	}
	derive(&m)
	return m, nil
}

// derive fills emittance and Twiss parameters from the second moments.
// The absolute value guards against negative rounding in the determinant.
func derive(m *beam.Moments) {
	g := m.GammaAvg

	m.EmitX = math.Sqrt(math.Abs(m.VarX()*m.VarPx()-m.CovXPx()*m.CovXPx())) * g
	m.EmitY = math.Sqrt(math.Abs(m.VarY()*m.VarPy()-m.CovYPy()*m.CovYPy())) * g

	m.Twiss = beam.Twiss{
		BetaX:  m.VarX() / m.EmitX * g,
		BetaY:  m.VarY() / m.EmitY * g,
		AlphaX: -m.CovXPx() * g / m.EmitX,
		AlphaY: -m.CovYPy() * g / m.EmitY,
	}
}
