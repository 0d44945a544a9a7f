package slicer

import (
	"math"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/random"
)

// Select appends to dst every particle of dist whose phase lies strictly
// inside (center − width/2, center + width/2).
func Select(dst, dist []beam.Particle, center, width float64) []beam.Particle {
	lo, hi := center-0.5*width, center+0.5*width
	for _, p := range dist {
		if p.Theta > lo && p.Theta < hi {
			dst = append(dst, p)
		}
	}
	return dst
}

// Reduce culls parts down to n particles by repeatedly overwriting a random
// entry with the last one. Order is not preserved. parts is reused.
func Reduce(parts []beam.Particle, n int, rnd random.Source) []beam.Particle {
	if n < 0 {
		n = 0
	}
	for len(parts) > n {
		last := len(parts) - 1
		parts[random.Index(rnd, len(parts))] = parts[last]
		parts = parts[:last]
	}
	return parts
}

// dims is the number of coordinates Grow interpolates in.
const dims = 5

type point [dims]float64

func toPoint(p beam.Particle) point {
	return point{p.Gamma, p.X, p.Y, p.Px, p.Py}
}

func fromPoint(v point) beam.Particle {
	return beam.Particle{Gamma: v[0], X: v[1], Y: v[2], Px: v[3], Py: v[4]}
}

// Grow extends parts to n particles by synthesizing new ones between random
// originals and their nearest neighbor. An empty input stays empty.
//
// Synthesis happens in normalized coordinates: zero mean and unit rms per
// dimension, with unit scale for dimensions of zero spread. The neighbor
// metric reweights each squared difference by a fresh random draw. A new
// particle is the midpoint of the pair plus an independent uniform offset
// in [−1, 1] times half their difference per dimension. Originals are
// normalized and mapped back with everything else, so they keep their
// values up to rounding. Phases of synthesized particles are zero; the
// caller reassigns them.
func Grow(parts []beam.Particle, n int, rnd random.Source) []beam.Particle {
	n0 := len(parts)
	if n0 == 0 || n <= n0 {
		return parts
	}

	pts := make([]point, n0, n)
	var mean, rms point
	for i, p := range parts {
		pts[i] = toPoint(p)
		for d, v := range pts[i] {
			mean[d] += v
			rms[d] += v * v
		}
	}
	scl := 1 / float64(n0)
	var inv point
	for d := range mean {
		mean[d] *= scl
		rms[d] = math.Sqrt(math.Abs(rms[d]*scl - mean[d]*mean[d]))
		if rms[d] == 0 {
			inv[d] = 1
		} else {
			inv[d] = 1 / rms[d]
		}
	}
	for i := range pts {
		for d := range pts[i] {
			pts[i][d] = (pts[i][d] - mean[d]) * inv[d]
		}
	}

	for len(pts) < n {
		n1 := random.Index(rnd, n0)
		n2 := nearest(pts[:n0], n1, rnd)
		a, b := pts[n1], pts[n2]
		var q point
		for d := range q {
			q[d] = 0.5*(a[d]+b[d]) + (2*rnd.Float64()-1)*0.5*(a[d]-b[d])
		}
		pts = append(pts, q)
	}

	out := make([]beam.Particle, n)
	for i, v := range pts {
		for d := range v {
			v[d] = v[d]/inv[d] + mean[d]
		}
		out[i] = fromPoint(v)
		if i < n0 {
			out[i].Theta = parts[i].Theta
		}
	}
	return out
}

// nearest returns the index of the particle closest to pts[n1] under a
// randomly reweighted metric, skipping n1 itself. Ties go to the lowest
// index. With a single particle it returns n1.
func nearest(pts []point, n1 int, rnd random.Source) int {
	best, rmin := n1, math.Inf(1)
	for i := range pts {
		if i == n1 {
			continue
		}
		r := 0.0
		for d := range pts[i] {
			diff := pts[n1][d] - pts[i][d]
			r += diff * diff * rnd.Float64()
		}
		if r < rmin {
			best, rmin = i, r
		}
	}
	return best
}
