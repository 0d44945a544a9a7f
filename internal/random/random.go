// Package random provides the uniform random sources used by the slicing
// and shot-noise stages.
//
// Sources are owned by a single rank and passed explicitly; nothing in this
// module reads ambient random state.
package random

import "math"

// Source draws uniform values from [0, 1).
type Source interface {
	Float64() float64
}

// Index draws an index uniformly from [0, n).
func Index(src Source, n int) int {
	i := int(math.Floor(float64(n) * src.Float64()))
	if i >= n { // guards against rounding up to n for draws just below 1
		i = n - 1
	}
	return i
}

// ForRank derives a rank-local generator from a base seed.
//
// The base generator is advanced rank+skip+1 times; the last draw scaled by
// 1e9 and rounded becomes the local seed. The result is reproducible for a
// fixed (base, rank, skip) and distinct across ranks.
func ForRank(base uint32, rank, skip int) *MT19937 {
	seeder := NewMT19937(base)
	var val float64
	for i := 0; i <= rank+skip; i++ {
		val = seeder.Float64()
	}
	return NewMT19937(uint32(math.Round(val * 1e9)))
}
