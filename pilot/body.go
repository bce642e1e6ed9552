package pilot

import "math"

// Kind tells the integrator which boundary and control rules a body follows
type Kind uint8

const (
	KindShip Kind = iota
	KindRock
)

const (
	ShipRadius = 8.0
	ShipVelMax = 1.0
	RockRadius = 6.0
	RockSpeed  = 1.0
)

// Control is one simulated step's actuation
type Control struct {
	Thrust float64 `json:"thrust" msgpack:"th"`
	Theta  float64 `json:"theta" msgpack:"t"`   // absolute heading (SteerAbsolute)
	DTheta float64 `json:"dtheta" msgpack:"dt"` // heading change (SteerRelative)
}

// Body is a circular moving entity, either the ship or a rock
type Body struct {
	Kind   Kind
	X, Y   float64
	VX, VY float64
	R      float64
	Theta  float64
	VelMax float64 // <= 0 means uncapped
	Alive  bool
}

// NewShip places the ship at a third of the arena, at rest
func NewShip(a Arena) Body {
	return Body{
		Kind:   KindShip,
		X:      a.Width / 3,
		Y:      a.Height / 3,
		R:      ShipRadius,
		VelMax: ShipVelMax,
		Alive:  true,
	}
}

// NewRock returns a rock moving at speed along theta
func NewRock(x, y, theta, speed, r float64) Body {
	return Body{
		Kind:   KindRock,
		X:      x,
		Y:      y,
		VX:     math.Cos(theta) * speed,
		VY:     math.Sin(theta) * speed,
		R:      r,
		Theta:  theta,
		VelMax: speed,
		Alive:  true,
	}
}

// Speed returns the velocity magnitude
func (b Body) Speed() float64 {
	return math.Hypot(b.VX, b.VY)
}

// StateAfter returns the body advanced by dt under c without touching b
func (b Body) StateAfter(a Arena, rules Rules, dt float64, c Control) Body {
	next := b

	thrust := 0.0
	if b.Kind == KindShip {
		switch rules.Steering {
		case SteerRelative:
			next.Theta = b.Theta + c.DTheta
		default:
			next.Theta = c.Theta
		}
		thrust = c.Thrust
	} else if rules.RocksFollowControl && b.VelMax > 0 {
		// an uncapped rock would accelerate forever
		thrust = c.Thrust
	}

	next.VX = b.VX + math.Cos(next.Theta)*thrust*dt
	next.VY = b.VY + math.Sin(next.Theta)*thrust*dt

	// Rescale only above the cap so a zero vector is never divided
	if next.VelMax > 0 {
		magSq := next.VX*next.VX + next.VY*next.VY
		if magSq > next.VelMax*next.VelMax {
			mag := math.Sqrt(magSq)
			next.VX = next.VX / mag * next.VelMax
			next.VY = next.VY / mag * next.VelMax
		}
	}

	next.X = b.X + next.VX*dt
	next.Y = b.Y + next.VY*dt

	switch rules.Boundary {
	case BoundaryWrap:
		next.wrap(a)
	default:
		next.contain(a)
	}
	return next
}

// Step advances the body in place
func (b *Body) Step(a Arena, rules Rules, dt float64, c Control) {
	*b = b.StateAfter(a, rules, dt, c)
}

// contain applies the despawn policy
func (b *Body) contain(a Arena) {
	if b.Kind == KindShip {
		b.X = Clamp(b.X, b.R, a.Width-b.R)
		b.Y = Clamp(b.Y, b.R, a.Height-b.R)
		return
	}
	if b.X < -b.R || b.X > a.Width+b.R {
		b.Alive = false
	}
	if b.Y < -b.R || b.Y > a.Height+b.R {
		b.Alive = false
	}
}

// wrap applies the toroidal policy. Rocks re-enter only once they have
// cleared the edge by their own radius.
func (b *Body) wrap(a Arena) {
	if b.Kind == KindShip {
		b.X = wrapCoord(b.X, a.Width)
		b.Y = wrapCoord(b.Y, a.Height)
		return
	}
	b.X = wrapPadded(b.X, a.Width, b.R)
	b.Y = wrapPadded(b.Y, a.Height, b.R)
}

func wrapPadded(v, size, r float64) float64 {
	span := size + 2*r
	if v < -r {
		v += span
	} else if v >= size+r {
		v -= span
	}
	return v
}
