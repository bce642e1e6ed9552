package main

import (
	"math"
	"testing"

	"autopilot/pilot"
)

func testSpawnConfig(pattern string) SpawnConfig {
	cfg := DefaultConfig().Spawn
	cfg.Pattern = pattern
	return cfg
}

func TestSpiralWaveFromCenter(t *testing.T) {
	arena := pilot.Arena{Width: 512, Height: 512}
	w := pilot.NewWorld(arena, pilot.ClassicRules())
	s := NewSpawner(testSpawnConfig(SpawnSpiral), pilot.NewSource(1))

	if n := s.Wave(w); n != rocksPerWave {
		t.Fatalf("expected %d rocks, got %d", rocksPerWave, n)
	}
	for i, r := range w.Rocks {
		if r.X != 256 || r.Y != 256 {
			t.Errorf("rock %d: expected center spawn, got (%f,%f)", i, r.X, r.Y)
		}
		if r.Kind != pilot.KindRock || !r.Alive {
			t.Errorf("rock %d: expected a live rock, got %+v", i, r)
		}
		if math.Abs(r.Speed()-pilot.RockSpeed) > 1e-9 {
			t.Errorf("rock %d: expected speed %f, got %f", i, pilot.RockSpeed, r.Speed())
		}
	}
	// First three are 120 degrees apart
	if d := w.Rocks[1].Theta - w.Rocks[0].Theta; math.Abs(d-2*math.Pi/3) > 1e-9 {
		t.Errorf("expected 2pi/3 between arms, got %f", d)
	}
}

func TestSpiralAdvancesAngle(t *testing.T) {
	cfg := testSpawnConfig(SpawnSpiral)
	cfg.Turn = 0.3
	w := pilot.NewWorld(pilot.Arena{Width: 512, Height: 512}, pilot.ClassicRules())
	s := NewSpawner(cfg, pilot.NewSource(1))

	s.Wave(w)
	s.Wave(w)
	if got := w.Rocks[rocksPerWave].Theta - w.Rocks[0].Theta; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected second wave rotated by 0.3, got %f", got)
	}
}

func TestWaveRespectsMaxRocks(t *testing.T) {
	cfg := testSpawnConfig(SpawnSpiral)
	cfg.MaxRocks = 7
	w := pilot.NewWorld(pilot.Arena{Width: 512, Height: 512}, pilot.ClassicRules())
	s := NewSpawner(cfg, pilot.NewSource(1))

	if n := s.Wave(w); n != 5 {
		t.Fatalf("expected a full first wave, got %d", n)
	}
	if n := s.Wave(w); n != 2 {
		t.Errorf("expected the second wave cut to 2 rocks, got %d", n)
	}
	if n := s.Wave(w); n != 0 {
		t.Errorf("expected no spawn at the cap, got %d", n)
	}
	if len(w.Rocks) != 7 {
		t.Errorf("expected 7 rocks, got %d", len(w.Rocks))
	}

	edgeCfg := testSpawnConfig(SpawnEdge)
	edgeCfg.MaxRocks = 8
	ew := pilot.NewWorld(pilot.Arena{Width: 512, Height: 512}, pilot.ClassicRules())
	es := NewSpawner(edgeCfg, pilot.NewSource(3))
	for i := 0; i < 4; i++ {
		es.Wave(ew)
	}
	if len(ew.Rocks) != 8 {
		t.Errorf("edge waves: expected the cap of 8 rocks, got %d", len(ew.Rocks))
	}
}

func TestEdgeRocksEnterArena(t *testing.T) {
	arena := pilot.Arena{Width: 400, Height: 300}
	w := pilot.NewWorld(arena, pilot.ClassicRules())
	s := NewSpawner(testSpawnConfig(SpawnEdge), pilot.NewSource(42))

	for i := 0; i < 20; i++ {
		s.Wave(w)
	}
	if len(w.Rocks) != 20*rocksPerWave {
		t.Fatalf("expected %d rocks, got %d", 20*rocksPerWave, len(w.Rocks))
	}
	for i, r := range w.Rocks {
		onEdge := r.X == -r.R || r.X == arena.Width+r.R || r.Y == -r.R || r.Y == arena.Height+r.R
		if !onEdge {
			t.Errorf("rock %d: expected to start just outside an edge, got (%f,%f)", i, r.X, r.Y)
		}
		switch {
		case r.X == -r.R && r.VX <= 0,
			r.X == arena.Width+r.R && r.VX >= 0,
			r.Y == -r.R && r.VY <= 0,
			r.Y == arena.Height+r.R && r.VY >= 0:
			t.Errorf("rock %d: heading away from the arena, v=(%f,%f)", i, r.VX, r.VY)
		}
		if next := r.StateAfter(arena, w.Rules, 1, pilot.Control{}); !next.Alive {
			t.Errorf("rock %d: despawned on its first step", i)
		}
	}
}

func TestEdgeSpawnReproducible(t *testing.T) {
	arena := pilot.Arena{Width: 512, Height: 512}
	run := func() []pilot.Body {
		w := pilot.NewWorld(arena, pilot.ClassicRules())
		s := NewSpawner(testSpawnConfig(SpawnEdge), pilot.NewSource(9))
		s.Wave(w)
		s.Wave(w)
		return w.Rocks
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("rock %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
