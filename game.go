package main

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"autopilot/pilot"
)

// Publisher receives everything the game loop wants spectators to see
type Publisher interface {
	PublishFrame(frame FrameState)
	PublishEvent(ev EventMsg)
}

// GameOptions are the loop settings taken from Config
type GameOptions struct {
	TickRate       int
	BroadcastEvery int
	SpawnEvery     int
	Trails         int
}

// Game owns the live world and drives it one frame at a time: decide,
// advance, check for contact, spawn, publish.
type Game struct {
	mu        sync.RWMutex
	variant   pilot.Variant
	world     *pilot.World
	planner   *pilot.Planner
	spawner   *Spawner
	newWorld  func() *pilot.World
	ship      *Ship
	tick      uint64
	paused    bool
	last      pilot.Decision
	startedAt time.Time

	opts      GameOptions
	publisher Publisher
	telemetry *Telemetry
	logger    *log.Logger
}

// NewGame creates a game for variant in arena. The planner and spawner share
// one seeded source so a run is reproducible end to end.
func NewGame(arena pilot.Arena, variant pilot.Variant, seed uint64, spawn SpawnConfig, opts GameOptions, pub Publisher, tel *Telemetry, logger *log.Logger) (*Game, error) {
	rng := pilot.NewSource(seed)
	planner, err := pilot.NewPlanner(arena, variant.Rules, variant.Config, rng)
	if err != nil {
		return nil, err
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.BroadcastEvery <= 0 {
		opts.BroadcastEvery = 1
	}
	if opts.SpawnEvery <= 0 {
		opts.SpawnEvery = 4
	}
	if logger == nil {
		logger = log.Default()
	}

	g := &Game{
		variant:   variant,
		planner:   planner,
		spawner:   NewSpawner(spawn, rng),
		newWorld:  func() *pilot.World { return pilot.NewWorld(arena, variant.Rules) },
		ship:      NewShip(),
		startedAt: time.Now(),
		opts:      opts,
		publisher: pub,
		telemetry: tel,
		logger:    logger.WithPrefix("game"),
	}
	g.world = g.newWorld()
	return g, nil
}

// Run ticks the game until ctx is cancelled
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(g.opts.TickRate))
	defer ticker.Stop()

	g.logger.Info("game loop started", "variant", g.variant.Name, "rate", g.opts.TickRate, "episode", g.Episode())
	g.telemetry.Track(EvtEpisodeStart, g.Episode())
	for {
		select {
		case <-ticker.C:
			g.update()
		case <-ctx.Done():
			g.logger.Info("game loop stopped", "tick", g.Tick())
			return nil
		}
	}
}

// Step runs exactly one frame regardless of pause state. Used by tests and
// for frame-by-frame inspection while paused.
func (g *Game) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stepLocked()
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.stepLocked()
}

func (g *Game) stepLocked() {
	g.tick++

	d := g.planner.Decide(g.world)
	g.last = d
	g.world.Advance(1, d.Control)

	if d.Stats.GaveUp {
		g.telemetry.Track(EvtSearchGiveUp, g.ship.Episode, "rollouts", d.Stats.Rollouts)
	} else if d.Stats.Batches > 1 {
		g.telemetry.Track(EvtSearchRetry, g.ship.Episode, "batches", d.Stats.Batches, "rollouts", d.Stats.Rollouts)
	}
	g.telemetry.ObserveSearch(d.Stats)

	if g.ship.Record(g.world.Alive()) {
		g.logger.Warn("ship hit a rock", "episode", g.ship.Episode, "tick", g.tick, "crashes", g.ship.Crashes, "rocks", len(g.world.Rocks))
		g.telemetry.Track(EvtCrash, g.ship.Episode, "tick", g.tick, "rocks", len(g.world.Rocks))
		g.publish(EventMsg{Kind: EventCrash, Episode: g.ship.Episode, Tick: g.tick, Crashes: g.ship.Crashes})
	}

	if g.tick%uint64(g.opts.SpawnEvery) == 0 {
		g.spawner.Wave(g.world)
	}

	if g.publisher != nil && g.tick%uint64(g.opts.BroadcastEvery) == 0 {
		g.publisher.PublishFrame(g.frameLocked())
	}
}

// Pause stops the loop from advancing the world
func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.paused = true
	g.logger.Info("paused", "tick", g.tick)
	g.publish(EventMsg{Kind: EventPause, Episode: g.ship.Episode, Tick: g.tick})
}

// Resume lets the loop advance again
func (g *Game) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	g.logger.Info("resumed", "tick", g.tick)
	g.publish(EventMsg{Kind: EventResume, Episode: g.ship.Episode, Tick: g.tick})
}

// Reset clears the arena and starts a new episode
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := *g.ship
	g.world = g.newWorld()
	g.ship.Respawn()
	g.last = pilot.Decision{}
	g.logger.Info("episode reset",
		"previous", prev.Episode, "frames", prev.Frames, "crashes", prev.Crashes,
		"episode", g.ship.Episode)
	g.telemetry.Track(EvtEpisodeStart, g.ship.Episode, "previous", prev.Episode)
	g.publish(EventMsg{Kind: EventReset, Episode: g.ship.Episode, Tick: g.tick})
}

func (g *Game) publish(ev EventMsg) {
	if g.publisher != nil {
		g.publisher.PublishEvent(ev)
	}
}

// Episode returns the current episode id
func (g *Game) Episode() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ship.Episode
}

// Tick returns the number of frames simulated
func (g *Game) Tick() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tick
}

// Variant returns the name of the rule set in play
func (g *Game) Variant() string {
	return g.variant.Name
}

// Arena returns the arena size
func (g *Game) Arena() pilot.Arena {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.Arena
}

// TickRate returns frames per second
func (g *Game) TickRate() int {
	return g.opts.TickRate
}

// World returns a copy of the live world
func (g *Game) World() *pilot.World {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.Clone()
}

// Snapshot returns the current frame
func (g *Game) Snapshot() FrameState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frameLocked()
}

// Stats returns the live summary
func (g *Game) Stats() GameStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return GameStats{
		Episode:     g.ship.Episode,
		Variant:     g.variant.Name,
		Tick:        g.tick,
		Paused:      g.paused,
		Rocks:       len(g.world.Rocks),
		Frames:      g.ship.Frames,
		Crashes:     g.ship.Crashes,
		CrashFrames: g.ship.CrashFrames,
		BestStreak:  g.ship.BestStreak,
		Uptime:      time.Since(g.startedAt).Seconds(),
		LastSearch:  g.last.Stats,
	}
}

// frameLocked builds a frame; callers hold g.mu
func (g *Game) frameLocked() FrameState {
	frame := FrameState{
		Tick:    g.tick,
		Episode: g.ship.Episode,
		Variant: g.variant.Name,
		Arena:   g.world.Arena,
		Ship:    g.ship.ToState(g.world.Ship),
		Rocks:   make([]RockState, 0, len(g.world.Rocks)),
		Control: g.last.Control,
		Search:  g.last.Stats,
		Crashes: g.ship.Crashes,
		Paused:  g.paused,
	}
	for _, r := range g.world.Rocks {
		if !r.Alive {
			continue
		}
		frame.Rocks = append(frame.Rocks, RockState{X: r.X, Y: r.Y, R: r.R})
	}

	n := min(len(g.last.Results), g.opts.Trails)
	frame.Trails = make([]TrailState, 0, n)
	for _, res := range g.last.Results[:n] {
		xy := make([]float32, 0, 2*len(res.Path))
		for _, p := range res.Path {
			xy = append(xy, float32(p.X), float32(p.Y))
		}
		frame.Trails = append(frame.Trails, TrailState{Alive: res.Alive, XY: xy})
	}
	return frame
}
