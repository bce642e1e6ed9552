package pilot

import "math"

// Sampler draws the control for step j of candidate i out of count
type Sampler interface {
	Sample(src Source, i, count int) Control
}

// UniformSampler draws thrust from [ThrustMin, ThrustMax) and an absolute
// heading from [0, 2π) with no bias.
type UniformSampler struct {
	ThrustMin float64
	ThrustMax float64
}

func (u UniformSampler) Sample(src Source, _, _ int) Control {
	thrust := u.ThrustMin + src.Float64()*(u.ThrustMax-u.ThrustMin)
	theta := src.Float64() * 2 * math.Pi
	return Control{Thrust: thrust, Theta: theta}
}

// TurnSampler burns a fixed thrust and turns by -Step, 0 or +Step.
// Candidate i of count leans toward -Step early in the batch and toward
// +Step late: P(-1) = (1-b)/2, P(0) = 1/2, P(+1) = b/2 with b = i/count.
type TurnSampler struct {
	Thrust float64
	Step   float64
}

func (t TurnSampler) Sample(src Source, i, count int) Control {
	b := 0.0
	if count > 0 {
		b = float64(i) / float64(count)
	}
	u := src.Float64()
	var k float64
	switch {
	case u < (1-b)/2:
		k = -1
	case u < (1-b)/2+0.5:
		k = 0
	default:
		k = 1
	}
	return Control{Thrust: t.Thrust, DTheta: k * t.Step}
}
