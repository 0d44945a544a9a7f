package random

import "gonum.org/v1/gonum/mathext/prng"

// MT19937 is a Mersenne Twister generator producing 53-bit uniform draws.
//
// Not safe for concurrent use; each rank owns its own instance.
type MT19937 struct {
	src *prng.MT19937
}

// NewMT19937 creates a generator with the given seed.
func NewMT19937(seed uint32) *MT19937 {
	mt := &MT19937{src: prng.NewMT19937()}
	mt.Seed(seed)
	return mt
}

// Seed reinitializes the generator state.
func (mt *MT19937) Seed(seed uint32) {
	mt.src.Seed(uint64(seed))
}

// Uint32 returns the next tempered 32-bit output.
func (mt *MT19937) Uint32() uint32 {
	return mt.src.Uint32()
}

// Float64 returns a 53-bit uniform value in [0, 1), built from two 32-bit
// outputs the way genrand_res53 does.
func (mt *MT19937) Float64() float64 {
	a := mt.Uint32() >> 5
	b := mt.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}
