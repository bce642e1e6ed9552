package pilot

// World is one ship and the rocks around it
type World struct {
	Arena Arena
	Rules Rules
	Ship  Body
	Rocks []Body
}

// NewWorld returns an empty world with the ship at its spawn point
func NewWorld(a Arena, rules Rules) *World {
	return &World{
		Arena: a,
		Rules: rules,
		Ship:  NewShip(a),
	}
}

// Clone deep-copies the world so speculative work never aliases it
func (w *World) Clone() *World {
	c := *w
	c.Rocks = append([]Body(nil), w.Rocks...)
	return &c
}

// AddRock appends a rock to the world
func (w *World) AddRock(r Body) {
	r.Kind = KindRock
	w.Rocks = append(w.Rocks, r)
}

// Prune drops rocks that have left the arena and returns how many went
func (w *World) Prune() int {
	kept := w.Rocks[:0]
	for _, r := range w.Rocks {
		if r.Alive {
			kept = append(kept, r)
		}
	}
	n := len(w.Rocks) - len(kept)
	// clear the tail so dropped rocks do not linger in the backing array
	for i := len(kept); i < len(w.Rocks); i++ {
		w.Rocks[i] = Body{}
	}
	w.Rocks = kept
	return n
}

// Advance is one live tick: the ship flies c, rocks that left the arena on
// the previous tick are dropped, and the rest coast on. It returns how many
// rocks were dropped. Rocks never see the ship's control here.
func (w *World) Advance(dt float64, c Control) int {
	w.Ship.Step(w.Arena, w.Rules, dt, c)
	dropped := w.Prune()
	for i := range w.Rocks {
		w.Rocks[i].Step(w.Arena, w.Rules, dt, Control{})
	}
	return dropped
}

// Alive reports whether the ship currently clears every rock
func (w *World) Alive() bool {
	return Alive(w.Ship, w.Rocks)
}
