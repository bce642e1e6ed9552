package main

import (
	"math"

	"autopilot/pilot"
)

// Spawn patterns
const (
	SpawnSpiral = "spiral" // rings fired from the arena center
	SpawnEdge   = "edge"   // rocks entering from a random edge
)

const rocksPerWave = 5

// Spawner adds a wave of asteroids to a world
type Spawner struct {
	pattern  string
	speed    float64
	radius   float64
	turn     float64
	maxRocks int
	theta    float64
	rng      pilot.Source
}

// NewSpawner creates a spawner for the configured pattern
func NewSpawner(cfg SpawnConfig, rng pilot.Source) *Spawner {
	if cfg.Pattern == "" {
		cfg.Pattern = SpawnSpiral
	}
	return &Spawner{
		pattern:  cfg.Pattern,
		speed:    cfg.Speed,
		radius:   cfg.Radius,
		turn:     cfg.Turn,
		maxRocks: cfg.MaxRocks,
		rng:      rng,
	}
}

// Wave spawns one wave and returns how many rocks it added. The world never
// holds more than MaxRocks; a wave that would pass it is cut short.
func (s *Spawner) Wave(w *pilot.World) int {
	if s.full(w) {
		return 0
	}
	before := len(w.Rocks)
	switch s.pattern {
	case SpawnEdge:
		for i := 0; i < rocksPerWave && !s.full(w); i++ {
			w.AddRock(s.edgeRock(w.Arena))
		}
	default:
		s.spiral(w)
	}
	return len(w.Rocks) - before
}

func (s *Spawner) full(w *pilot.World) bool {
	return s.maxRocks > 0 && len(w.Rocks) >= s.maxRocks
}

// spiral fires three rocks 120° apart plus a counter-rotating pair, then
// advances the base angle
func (s *Spawner) spiral(w *pilot.World) {
	cx, cy := w.Arena.Center()
	for _, theta := range []float64{
		s.theta,
		s.theta + 2*math.Pi/3,
		s.theta + 4*math.Pi/3,
		-s.theta / 2,
		-s.theta/2 + math.Pi,
	} {
		if s.full(w) {
			break
		}
		w.AddRock(pilot.NewRock(cx, cy, theta, s.speed, s.radius))
	}
	s.theta += s.turn
}

// edgeRock places a rock just outside a random edge, aimed at a random point
// in the far half of the arena
func (s *Spawner) edgeRock(a pilot.Arena) pilot.Body {
	r := s.radius
	var x, y, tx, ty float64
	switch int(s.rng.Float64() * 4) {
	case 0: // left
		x = -r
		y = s.rng.Float64() * a.Height
		tx = a.Width/2 + s.rng.Float64()*a.Width/2
		ty = s.rng.Float64() * a.Height
	case 1: // right
		x = a.Width + r
		y = s.rng.Float64() * a.Height
		tx = s.rng.Float64() * a.Width / 2
		ty = s.rng.Float64() * a.Height
	case 2: // top
		x = s.rng.Float64() * a.Width
		y = -r
		tx = s.rng.Float64() * a.Width
		ty = a.Height/2 + s.rng.Float64()*a.Height/2
	default: // bottom
		x = s.rng.Float64() * a.Width
		y = a.Height + r
		tx = s.rng.Float64() * a.Width
		ty = s.rng.Float64() * a.Height / 2
	}
	return pilot.NewRock(x, y, math.Atan2(ty-y, tx-x), s.speed, r)
}
