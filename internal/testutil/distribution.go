package testutil

import (
	"github.com/roach88/phasebeam/internal/random"
	"github.com/roach88/phasebeam/internal/sdds"
)

// Synthetic describes a distribution in the converter's units: t in
// seconds, p as γ−1, and x, xp, y, yp.
type Synthetic struct {
	Count int `yaml:"count"`
	// Duration is the time span covered; t is spread evenly over
	// [0, Duration].
	Duration float64 `yaml:"duration"`
	Gamma    float64 `yaml:"gamma"`
	// Spreads are rms values. Zero gives a cold dimension.
	EnergySpread float64 `yaml:"energy_spread"`
	SigmaX       float64 `yaml:"sigma_x"`
	SigmaXP      float64 `yaml:"sigma_xp"`
	SigmaY       float64 `yaml:"sigma_y"`
	SigmaYP      float64 `yaml:"sigma_yp"`
	// Offsets shift the transverse centroid.
	OffsetX  float64 `yaml:"offset_x"`
	OffsetXP float64 `yaml:"offset_xp"`
	Seed     uint32  `yaml:"seed"`
}

// Columns builds the six datasets.
func (s Synthetic) Columns() map[string][]float64 {
	src := random.NewMT19937(s.Seed)
	// sum of three uniforms has rms 0.5
	bell := func(rms float64) float64 {
		return 2 * rms * (src.Float64() + src.Float64() + src.Float64() - 1.5)
	}

	cols := map[string][]float64{
		sdds.ColumnT:  make([]float64, s.Count),
		sdds.ColumnP:  make([]float64, s.Count),
		sdds.ColumnX:  make([]float64, s.Count),
		sdds.ColumnXP: make([]float64, s.Count),
		sdds.ColumnY:  make([]float64, s.Count),
		sdds.ColumnYP: make([]float64, s.Count),
	}
	for i := 0; i < s.Count; i++ {
		frac := 0.0
		if s.Count > 1 {
			frac = float64(i) / float64(s.Count-1)
		}
		cols[sdds.ColumnT][i] = frac * s.Duration
		cols[sdds.ColumnP][i] = s.Gamma - 1 + bell(s.EnergySpread)
		cols[sdds.ColumnX][i] = s.OffsetX + bell(s.SigmaX)
		cols[sdds.ColumnXP][i] = s.OffsetXP + bell(s.SigmaXP)
		cols[sdds.ColumnY][i] = bell(s.SigmaY)
		cols[sdds.ColumnYP][i] = bell(s.SigmaYP)
	}
	return cols
}

// Reader wraps the datasets in a MemoryReader.
func (s Synthetic) Reader() *MemoryReader {
	return &MemoryReader{Columns: s.Columns()}
}

// Uniform returns the reference distribution used across tests: n
// particles over one nanosecond at γ = 300 with micron-scale spreads.
func Uniform(n int) Synthetic {
	return Synthetic{
		Count:        n,
		Duration:     1e-9,
		Gamma:        300,
		EnergySpread: 0.3,
		SigmaX:       3e-5,
		SigmaXP:      2e-6,
		SigmaY:       4e-5,
		SigmaYP:      1.5e-6,
		OffsetX:      1e-5,
		OffsetXP:     -3e-7,
		Seed:         20240607,
	}
}

// WriteColumnFile writes the datasets to path in the format the
// conversion step produces.
func (s Synthetic) WriteColumnFile(path string) error {
	cols := s.Columns()
	order := []string{sdds.ColumnT, sdds.ColumnP, sdds.ColumnX, sdds.ColumnXP, sdds.ColumnY, sdds.ColumnYP}
	out := make([]sdds.Column, len(order))
	for i, name := range order {
		out[i] = sdds.Column{Name: name, Values: cols[name]}
	}
	return sdds.WriteColumnFile(path, out)
}
