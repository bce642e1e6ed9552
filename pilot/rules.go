package pilot

import "fmt"

// Boundary selects what happens to bodies at the arena edge
type Boundary int

const (
	// BoundaryDespawn clamps the ship inside and kills rocks that leave.
	BoundaryDespawn Boundary = iota
	// BoundaryWrap folds every body back in from the opposite edge.
	BoundaryWrap
)

func (b Boundary) String() string {
	switch b {
	case BoundaryDespawn:
		return "despawn"
	case BoundaryWrap:
		return "wrap"
	}
	return fmt.Sprintf("boundary(%d)", int(b))
}

// Steering selects how a Control's heading is read
type Steering int

const (
	// SteerAbsolute points the ship at Control.Theta.
	SteerAbsolute Steering = iota
	// SteerRelative turns the ship by Control.DTheta.
	SteerRelative
)

func (s Steering) String() string {
	switch s {
	case SteerAbsolute:
		return "absolute"
	case SteerRelative:
		return "relative"
	}
	return fmt.Sprintf("steering(%d)", int(s))
}

// Rules is the integration policy shared by every body in a world
type Rules struct {
	Boundary Boundary
	Steering Steering

	// RocksFollowControl makes rocks burn the ship's thrust along their own
	// heading while integrating. Only rollouts pass the ship's control to
	// rocks; World.Advance never does.
	RocksFollowControl bool
}

// ClassicRules is the despawn arena with absolute steering
func ClassicRules() Rules {
	return Rules{Boundary: BoundaryDespawn, Steering: SteerAbsolute}
}

// WrapRules is the toroidal arena with relative steering
func WrapRules() Rules {
	return Rules{Boundary: BoundaryWrap, Steering: SteerRelative}
}
