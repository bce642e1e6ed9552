package pilot

import "math/rand/v2"

// Source supplies uniform floats in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a PCG-backed source. A zero seed is remapped to 1 so
// that an unset config value still yields a usable, reproducible stream.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
