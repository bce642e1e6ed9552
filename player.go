package main

import (
	"time"

	"github.com/google/uuid"

	"autopilot/pilot"
)

// Ship tracks how the autopilot is doing in the current episode
type Ship struct {
	Episode     string
	StartedAt   time.Time
	Alive       bool
	Frames      uint64 // frames flown this episode
	CrashFrames uint64 // frames spent overlapping a rock
	Crashes     int    // separate contacts
	Streak      uint64 // frames since the last contact
	BestStreak  uint64
}

// NewShip starts a fresh episode
func NewShip() *Ship {
	s := &Ship{}
	s.Respawn()
	return s
}

// Respawn resets the counters under a new episode id
func (s *Ship) Respawn() {
	*s = Ship{
		Episode:   uuid.NewString(),
		StartedAt: time.Now(),
		Alive:     true,
	}
}

// Record accounts one frame and returns true when the ship has just hit a
// rock. Staying inside the same rock is one crash, not one per frame.
func (s *Ship) Record(alive bool) bool {
	s.Frames++
	crashed := s.Alive && !alive
	s.Alive = alive
	if !alive {
		s.CrashFrames++
		s.Streak = 0
		if crashed {
			s.Crashes++
		}
		return crashed
	}
	s.Streak++
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}
	return false
}

// ToState converts to protocol state
func (s *Ship) ToState(b pilot.Body) ShipState {
	return ShipState{
		X:     b.X,
		Y:     b.Y,
		VX:    b.VX,
		VY:    b.VY,
		R:     b.R,
		Theta: b.Theta,
		Alive: s.Alive,
	}
}
