package beam

import "math"

// Physical constants in SI units.
const (
	SpeedOfLight     = 299792458.0
	ElementaryCharge = 1.602176565e-19
	ElectronMassEV   = 510998.95
	TwoPi            = 2 * math.Pi
)
