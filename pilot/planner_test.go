package pilot

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func newTestPlanner(t *testing.T, v Variant, seed uint64) *Planner {
	t.Helper()
	p, err := NewPlanner(testArena, v.Rules, v.Config, NewSource(seed))
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func centeredWorld(v Variant) *World {
	w := NewWorld(testArena, v.Rules)
	w.Ship.X, w.Ship.Y = 256, 256
	return w
}

func pathOf(n int) []Point {
	return make([]Point, n)
}

func TestSearchFarRockAllSurvive(t *testing.T) {
	v := Classic()
	w := centeredWorld(v)
	// Total look-ahead travel is at most 93 at top speed, short of the rock's edge
	w.AddRock(NewRock(356, 256, 0, 0, RockRadius))

	p := newTestPlanner(t, v, 5)
	d := p.Decide(w)

	if d.Stats.Batches != 1 || d.Stats.Rollouts != DefaultSimCount {
		t.Fatalf("stats = %+v, want one batch of %d", d.Stats, DefaultSimCount)
	}
	best := -1
	for i, r := range d.Results {
		if !r.Alive || r.Steps() != DefaultSimDuration {
			t.Fatalf("result %d: alive=%v steps=%d, want full-horizon survival", i, r.Alive, r.Steps())
		}
		if best < 0 || r.Score > d.Results[best].Score {
			best = i
		}
	}
	if d.Control != d.Results[best].First {
		t.Errorf("decision = %+v, want the best-scored survivor %+v", d.Control, d.Results[best].First)
	}
}

func TestSearchFarRockWrapVariant(t *testing.T) {
	v := Wrap()
	w := centeredWorld(v)
	w.AddRock(NewRock(356, 256, 0, 0, RockRadius))

	p := newTestPlanner(t, v, 5)
	d := p.Decide(w)
	if !d.Results[0].Alive {
		t.Fatal("first candidate should survive an empty neighborhood")
	}
	if d.Control != d.Results[0].First {
		t.Errorf("decision = %+v, want first survivor %+v", d.Control, d.Results[0].First)
	}
	if d.Results[0].Score != 0 {
		t.Errorf("wrap variant should not score, got %f", d.Results[0].Score)
	}
}

func TestSearchGivesUpUnderCap(t *testing.T) {
	for _, v := range []Variant{Classic(), Wrap()} {
		v.Config.SimCount = 4
		v.Config.SimDuration = 6
		v.Config.MinDuration = 4
		v.Config.MaxSimCount = 16

		w := centeredWorld(v)
		// Sitting inside a rock: every rollout dies on its first step
		w.AddRock(NewRock(256, 256, 0, 0, RockRadius))

		p := newTestPlanner(t, v, 1)
		d := p.Decide(w)

		if !d.Stats.GaveUp {
			t.Errorf("%s: expected the search to give up", v.Name)
		}
		// 4, 8 and 16 fail; 32 passes the cap but still runs once
		if d.Stats.Batches != 4 || d.Stats.Rollouts != 4+8+16+32 {
			t.Errorf("%s: stats = %+v, want 4 batches and 60 rollouts", v.Name, d.Stats)
		}
		if len(d.Results) != 32 {
			t.Errorf("%s: got %d results, want the last batch of 32", v.Name, len(d.Results))
		}
		for i, r := range d.Results {
			if r.Alive || r.Steps() != 1 {
				t.Fatalf("%s: result %d alive=%v steps=%d, want death on step 1", v.Name, i, r.Alive, r.Steps())
			}
		}
		if d.Control != v.Config.Fallback {
			t.Errorf("%s: decision = %+v, want fallback %+v", v.Name, d.Control, v.Config.Fallback)
		}
	}
}

// lateEscapeSampler flies into the rock until a batch reaches minCount
// candidates, then flies away from it
type lateEscapeSampler struct {
	minCount int
}

func (l lateEscapeSampler) Sample(_ Source, _, count int) Control {
	if count >= l.minCount {
		return Control{Thrust: 0.3, Theta: math.Pi}
	}
	return Control{Thrust: 0.3, Theta: 0}
}

func TestSearchCappedBatchCanStillSurvive(t *testing.T) {
	v := Classic()
	v.Config.SimCount = 4
	v.Config.SimDuration = 6
	v.Config.MinDuration = 4
	v.Config.MaxSimCount = 16
	v.Config.Sampler = lateEscapeSampler{minCount: 32}

	w := centeredWorld(v)
	// Heading at theta 0 reaches this rock on the fourth step
	w.AddRock(NewRock(266, 256, 0, 0, RockRadius))

	d := newTestPlanner(t, v, 1).Decide(w)
	if !d.Stats.GaveUp || d.Stats.Batches != 4 {
		t.Fatalf("stats = %+v, want a give-up after 4 batches", d.Stats)
	}
	if d.Control.Theta != math.Pi {
		t.Errorf("decision = %+v, want the survivor from the capped batch", d.Control)
	}
}

func TestSearchShrinksHorizonOnRetry(t *testing.T) {
	v := Classic()
	v.Config.SimCount = 2
	v.Config.SimDuration = 6
	v.Config.MinDuration = 4
	v.Config.MaxSimCount = 16
	w := centeredWorld(v)
	w.AddRock(NewRock(256, 256, 0, 0, RockRadius))

	d := newTestPlanner(t, v, 1).Decide(w)
	// 6, 5, 4, 4, 4 across batches of 2, 4, 8, 16 and the capped 32
	if d.Stats.Batches != 5 || d.Stats.Duration != 4 {
		t.Errorf("stats = %+v, want 5 batches ending at horizon 4", d.Stats)
	}

	wv := Wrap()
	wv.Config.SimCount = 2
	wv.Config.SimDuration = 6
	wv.Config.MinDuration = 4
	wv.Config.MaxSimCount = 16
	ww := centeredWorld(wv)
	ww.AddRock(NewRock(256, 256, 0, 0, RockRadius))
	d = newTestPlanner(t, wv, 1).Decide(ww)
	if d.Stats.Duration != 6 {
		t.Errorf("wrap variant horizon = %d, want 6 (no shrink)", d.Stats.Duration)
	}
}

func TestSearchReproducible(t *testing.T) {
	v := Classic()
	w := centeredWorld(v)
	for i := 0; i < 12; i++ {
		theta := float64(i) * math.Pi / 6
		w.AddRock(NewRock(256+40*math.Cos(theta), 256+40*math.Sin(theta), theta+math.Pi, 1, RockRadius))
	}

	a := newTestPlanner(t, v, 42).Decide(w)
	b := newTestPlanner(t, v, 42).Decide(w)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should yield identical decisions")
	}
}

func TestSearchParallelMatchesSequential(t *testing.T) {
	v := Classic()
	w := centeredWorld(v)
	for i := 0; i < 8; i++ {
		theta := float64(i) * math.Pi / 4
		w.AddRock(NewRock(256+30*math.Cos(theta), 256+30*math.Sin(theta), theta+math.Pi, 1, RockRadius))
	}

	seq := newTestPlanner(t, v, 9).Decide(w)

	v.Config.Workers = 4
	par := newTestPlanner(t, v, 9).Decide(w)

	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel evaluation should match the sequential run")
	}
}

func TestSearchLeavesWorldUntouched(t *testing.T) {
	v := Classic()
	w := centeredWorld(v)
	w.AddRock(NewRock(300, 300, 1, 1, RockRadius))
	before := w.Clone()

	newTestPlanner(t, v, 2).Decide(w)
	if !reflect.DeepEqual(w, before) {
		t.Error("search must not mutate the live world")
	}
}

func TestSelectLongest(t *testing.T) {
	p := newTestPlanner(t, Classic(), 1)

	full := []Trajectory{
		{Alive: false, Path: pathOf(3), First: Control{Theta: 1}},
		{Alive: true, Score: -100, Path: pathOf(24), First: Control{Theta: 2}},
		{Alive: true, Score: -10, Path: pathOf(24), First: Control{Theta: 3}},
		{Alive: true, Score: -10, Path: pathOf(24), First: Control{Theta: 4}},
	}
	if got := p.Select(full); got.Theta != 3 {
		t.Errorf("picked theta %f, want 3 (best score, earliest on ties)", got.Theta)
	}

	partial := []Trajectory{
		{Alive: true, Score: -100, Path: pathOf(10), First: Control{Theta: 1}},
		{Alive: true, Score: -10, Path: pathOf(5), First: Control{Theta: 2}},
		{Alive: true, Score: -50, Path: pathOf(10), First: Control{Theta: 3}},
	}
	if got := p.Select(partial); got.Theta != 3 {
		t.Errorf("picked theta %f, want 3 (longest survivor in score order)", got.Theta)
	}

	if got := p.Select([]Trajectory{{Alive: false, Path: pathOf(2)}}); got != (Control{}) {
		t.Errorf("no survivors: got %+v, want coast", got)
	}
}

func TestSelectFirstAlive(t *testing.T) {
	p := newTestPlanner(t, Wrap(), 1)
	results := []Trajectory{
		{Alive: false, First: Control{DTheta: -0.1}},
		{Alive: true, First: Control{DTheta: 0}},
		{Alive: true, First: Control{DTheta: 0.1}},
	}
	if got := p.Select(results); got != results[1].First {
		t.Errorf("got %+v, want %+v", got, results[1].First)
	}
	if got := p.Select(results[:1]); got != (Control{DTheta: 0.1}) {
		t.Errorf("no survivors: got %+v, want gentle turn", got)
	}
}

func TestNewPlannerRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"zero count":    func(c *Config) { c.SimCount = 0 },
		"zero duration": func(c *Config) { c.SimDuration = 0 },
		"min above max": func(c *Config) { c.MinDuration = c.SimDuration + 1 },
		"cap below":     func(c *Config) { c.MaxSimCount = c.SimCount - 1 },
		"no sampler":    func(c *Config) { c.Sampler = nil },
		"bad selection": func(c *Config) { c.Selection = Selection(9) },
		"inverted thrust": func(c *Config) {
			c.Sampler = UniformSampler{ThrustMin: 0.3, ThrustMax: 0.1}
		},
	}
	for name, mutate := range cases {
		v := Classic()
		mutate(&v.Config)
		if _, err := NewPlanner(testArena, v.Rules, v.Config, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", name, err)
		}
	}

	v := Classic()
	if _, err := NewPlanner(Arena{}, v.Rules, v.Config, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty arena: err = %v, want ErrInvalidConfig", err)
	}
}

func TestVariantByName(t *testing.T) {
	for name, want := range map[string]string{"classic": "classic", "": "classic", "WRAP": "wrap", "toroidal": "wrap"} {
		v, err := VariantByName(name)
		if err != nil || v.Name != want {
			t.Errorf("VariantByName(%q) = %q, %v; want %q", name, v.Name, err, want)
		}
	}
	if _, err := VariantByName("bogus"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown variant err = %v", err)
	}
}
