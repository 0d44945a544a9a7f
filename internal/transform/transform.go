// Package transform re-centers and Twiss-matches an imported distribution
// in place.
package transform

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/phasebeam/internal/beam"
)

// Center moves the distribution centroid from the measured moments onto
// target. Every coordinate is shifted first; the transverse coordinates are
// then scaled by sqrt(target γ / current γ̄). γ is shifted only.
//
// Moments from an empty window carry γ̄ = 0. The scale is then +Inf and
// the transverse coordinates become ±Inf, or NaN where they sit at zero;
// no error is raised.
func Center(d *beam.RawDistribution, m beam.Moments, target beam.Centroid) {
	ratio := math.Sqrt(target.Gamma / m.GammaAvg)

	floats.AddConst(target.Gamma-m.GammaAvg, d.G)
	for _, sh := range []struct {
		col   []float64
		shift float64
	}{
		{d.X, target.X - m.XAvg},
		{d.Y, target.Y - m.YAvg},
		{d.Px, target.Px - m.PxAvg},
		{d.Py, target.Py - m.PyAvg},
	} {
		floats.AddConst(sh.shift, sh.col)
		floats.Scale(ratio, sh.col)
	}
}

// Match maps each transverse plane from the measured Twiss parameters onto
// target. Per plane the steps are, in order: remove the current correlation
// (p += α/β·q), rescale q by sqrt(β_t/β) and p by sqrt(β/β_t), then add the
// target correlation (p −= α_t/β_t·q) using the rescaled q.
func Match(d *beam.RawDistribution, current, target beam.Twiss) {
	matchPlane(d.X, d.Px, current.BetaX, current.AlphaX, target.BetaX, target.AlphaX)
	matchPlane(d.Y, d.Py, current.BetaY, current.AlphaY, target.BetaY, target.AlphaY)
}

func matchPlane(q, p []float64, beta, alpha, betaT, alphaT float64) {
	qScale := math.Sqrt(betaT / beta)
	pScale := math.Sqrt(beta / betaT)
	for i := range q {
		p[i] += (alpha / beta) * q[i]
		q[i] *= qScale
		p[i] *= pScale
		p[i] -= (alphaT / betaT) * q[i]
	}
}
