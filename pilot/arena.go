package pilot

import "math"

// Arena is the fixed rectangle the simulation runs in
type Arena struct {
	Width  float64 `yaml:"width" json:"width" msgpack:"w"`
	Height float64 `yaml:"height" json:"height" msgpack:"h"`
}

// Center returns the middle of the arena
func (a Arena) Center() (float64, float64) {
	return a.Width / 2, a.Height / 2
}

// Point is a recorded position
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// wrapCoord folds v into [0, size)
func wrapCoord(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	// -tiny + size rounds up to size
	if v >= size {
		v = 0
	}
	return v
}
