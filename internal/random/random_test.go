package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMT19937_ReferenceOutput(t *testing.T) {
	// First outputs of the reference implementation seeded with 5489.
	mt := NewMT19937(5489)
	assert.Equal(t, uint32(3499211612), mt.Uint32())
	assert.Equal(t, uint32(581869302), mt.Uint32())
	assert.Equal(t, uint32(3890346734), mt.Uint32())
}

func TestMT19937_Float64Range(t *testing.T) {
	mt := NewMT19937(42)
	for i := 0; i < 10000; i++ {
		v := mt.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestForRank_ReproducibleAndDistinct(t *testing.T) {
	a := ForRank(123456789, 0, 10000)
	b := ForRank(123456789, 0, 10000)
	c := ForRank(123456789, 1, 10000)

	for i := 0; i < 16; i++ {
		va, vb, vc := a.Float64(), b.Float64(), c.Float64()
		assert.Equal(t, va, vb, "same (base, rank) must reproduce")
		assert.NotEqual(t, va, vc, "different ranks must diverge")
	}
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func TestIndex_Bounds(t *testing.T) {
	assert.Equal(t, 0, Index(constSource(0), 7))
	assert.Equal(t, 3, Index(constSource(0.5), 7))
	assert.Equal(t, 6, Index(constSource(0.9999999999999999), 7))
}
