package pilot

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultSimCount    = 128
	DefaultSimDuration = 24
	DefaultMinDuration = 4
	DefaultMaxSimCount = 10000
)

// ErrInvalidConfig is wrapped by every planner configuration error
var ErrInvalidConfig = errors.New("pilot: invalid planner config")

// Selection picks the action out of a finished search
type Selection int

const (
	// SelectLongest ranks survivors by closeness to the arena center and
	// takes the longest-lived, stopping at the first full-horizon one.
	SelectLongest Selection = iota
	// SelectFirstAlive takes the first survivor in generation order.
	SelectFirstAlive
)

func (s Selection) String() string {
	switch s {
	case SelectLongest:
		return "longest"
	case SelectFirstAlive:
		return "first-alive"
	}
	return fmt.Sprintf("selection(%d)", int(s))
}

// Config tunes the Monte-Carlo search
type Config struct {
	SimCount    int // candidates in the first batch
	SimDuration int // steps per candidate in the first batch
	MinDuration int // floor when a retry shortens the horizon
	MaxSimCount int // give up once a retry would exceed this many candidates
	Selection   Selection
	Sampler     Sampler
	Fallback    Control // action when nothing survives
	Workers     int     // goroutines per batch, <= 1 runs inline
}

// Validate reports the first setting a planner cannot run with
func (c Config) Validate() error {
	switch {
	case c.SimCount <= 0:
		return fmt.Errorf("%w: sim count %d", ErrInvalidConfig, c.SimCount)
	case c.SimDuration <= 0:
		return fmt.Errorf("%w: sim duration %d", ErrInvalidConfig, c.SimDuration)
	case c.MinDuration <= 0 || c.MinDuration > c.SimDuration:
		return fmt.Errorf("%w: min duration %d outside [1, %d]", ErrInvalidConfig, c.MinDuration, c.SimDuration)
	case c.MaxSimCount < c.SimCount:
		return fmt.Errorf("%w: max sim count %d below sim count %d", ErrInvalidConfig, c.MaxSimCount, c.SimCount)
	case c.Sampler == nil:
		return fmt.Errorf("%w: no sampler", ErrInvalidConfig)
	case c.Selection != SelectLongest && c.Selection != SelectFirstAlive:
		return fmt.Errorf("%w: unknown selection %v", ErrInvalidConfig, c.Selection)
	}
	if u, ok := c.Sampler.(UniformSampler); ok && u.ThrustMax < u.ThrustMin {
		return fmt.Errorf("%w: thrust range [%g, %g)", ErrInvalidConfig, u.ThrustMin, u.ThrustMax)
	}
	return nil
}

// SearchStats describes the work one search did
type SearchStats struct {
	Rollouts int  `json:"rollouts" msgpack:"r"`
	Batches  int  `json:"batches" msgpack:"b"`
	Duration int  `json:"duration" msgpack:"d"` // horizon of the last batch
	GaveUp   bool `json:"gave_up" msgpack:"g"`
}

// Decision is the action chosen for one tick plus the evidence behind it
type Decision struct {
	Control Control
	Results []Trajectory
	Stats   SearchStats
}

// Planner chooses one control per tick by sampling random control sequences
// and simulating each against a copy of the world. A Planner owns its random
// source and is not safe for concurrent use.
type Planner struct {
	sim Simulator
	cfg Config
	src Source
}

// NewPlanner validates cfg and binds it to an arena and rule set
func NewPlanner(a Arena, rules Rules, cfg Config, src Source) (*Planner, error) {
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("%w: arena %gx%g", ErrInvalidConfig, a.Width, a.Height)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = NewSource(1)
	}
	sim := NewSimulator(a, rules)
	sim.Score = cfg.Selection == SelectLongest
	return &Planner{sim: sim, cfg: cfg, src: src}, nil
}

// Config returns the planner's configuration
func (p *Planner) Config() Config {
	return p.cfg
}

// Simulator returns the simulator rollouts run on
func (p *Planner) Simulator() Simulator {
	return p.sim
}

// Decide searches from w and selects the action to apply this tick
func (p *Planner) Decide(w *World) Decision {
	results, stats := p.Search(w)
	return Decision{
		Control: p.Select(results),
		Results: results,
		Stats:   stats,
	}
}

// Search runs batches of random rollouts from w until one survives. Each
// failed batch doubles the candidate count (longest selection also drops a
// step off the horizon, down to MinDuration). Once the count passes
// MaxSimCount the search gives up after that one last batch. The results
// are those of the last batch, in generation order.
func (p *Planner) Search(w *World) ([]Trajectory, SearchStats) {
	simCount := p.cfg.SimCount
	duration := p.cfg.SimDuration

	var stats SearchStats
	var results []Trajectory
	for {
		stats.Batches++
		stats.Duration = duration
		results = p.runBatch(w, p.sequences(simCount, duration))
		stats.Rollouts += len(results)
		if stats.GaveUp || anyAlive(results) {
			break
		}

		simCount *= 2
		if p.cfg.Selection == SelectLongest && duration > p.cfg.MinDuration {
			duration--
		}
		if simCount > p.cfg.MaxSimCount {
			stats.GaveUp = true
		}
	}
	return results, stats
}

// Select applies the configured selection policy
func (p *Planner) Select(results []Trajectory) Control {
	switch p.cfg.Selection {
	case SelectFirstAlive:
		for _, r := range results {
			if r.Alive {
				return r.First
			}
		}
		return p.cfg.Fallback
	default:
		return selectLongest(results, p.cfg.SimDuration, p.cfg.Fallback)
	}
}

func selectLongest(results []Trajectory, horizon int, fallback Control) Control {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b Trajectory) int {
		return cmp.Compare(b.Score, a.Score)
	})

	chosen := fallback
	best := 0
	for _, r := range ranked {
		if !r.Alive || r.Steps() <= best {
			continue
		}
		chosen = r.First
		best = r.Steps()
		if best == horizon {
			break
		}
	}
	return chosen
}

// sequences draws every candidate up front from the single source so a
// seeded planner is reproducible however the batch is evaluated
func (p *Planner) sequences(count, duration int) [][]Control {
	seqs := make([][]Control, count)
	for i := range seqs {
		seq := make([]Control, duration)
		for j := range seq {
			seq[j] = p.cfg.Sampler.Sample(p.src, i, count)
		}
		seqs[i] = seq
	}
	return seqs
}

func (p *Planner) runBatch(w *World, seqs [][]Control) []Trajectory {
	out := make([]Trajectory, len(seqs))
	workers := p.cfg.Workers
	if workers <= 1 || len(seqs) < 2 {
		for i, seq := range seqs {
			out[i] = p.sim.SimulateWorld(w, seq)
		}
		return out
	}

	chunk := (len(seqs) + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(seqs); start += chunk {
		end := min(start+chunk, len(seqs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = p.sim.SimulateWorld(w, seqs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func anyAlive(results []Trajectory) bool {
	for _, r := range results {
		if r.Alive {
			return true
		}
	}
	return false
}
