package main

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"autopilot/pilot"
)

// Event types for telemetry tracking
const (
	EvtEpisodeStart   = "episode_start"
	EvtCrash          = "crash"
	EvtSearchRetry    = "search_retry"
	EvtSearchGiveUp   = "search_giveup"
	EvtSpectatorJoin  = "spectator_join"
	EvtSpectatorLeave = "spectator_leave"
)

// TelemetryEvent represents a single trackable event
type TelemetryEvent struct {
	Type      string
	Episode   string
	Fields    []any // alternating key/value pairs
	Timestamp time.Time
}

// TelemetrySnapshot is the aggregate view served by /api/stats
type TelemetrySnapshot struct {
	Counts       map[string]int `json:"counts"`
	Dropped      int            `json:"dropped"`
	Searches     uint64         `json:"searches"`
	Rollouts     uint64         `json:"rollouts"`
	MaxRollouts  int            `json:"max_rollouts"`
	GiveUps      uint64         `json:"give_ups"`
	LastFlushed  time.Time      `json:"last_flushed"`
	FlushedTotal int            `json:"flushed_total"`
}

// Telemetry tracks events with batched background flushes. Tracking never
// blocks the game loop; a full queue drops the event.
type Telemetry struct {
	events chan TelemetryEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	logger *log.Logger

	flushEvery time.Duration
	batchSize  int

	mu   sync.RWMutex
	snap TelemetrySnapshot
}

// NewTelemetry creates and starts the background writer
func NewTelemetry(cfg TelemetryConfig, logger *log.Logger) *Telemetry {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = log.Default()
	}
	t := &Telemetry{
		events:     make(chan TelemetryEvent, 1024),
		stop:       make(chan struct{}),
		logger:     logger.WithPrefix("telemetry"),
		flushEvery: cfg.FlushInterval,
		batchSize:  cfg.BatchSize,
		snap:       TelemetrySnapshot{Counts: make(map[string]int)},
	}
	t.wg.Add(1)
	go t.writer()
	return t
}

// Track enqueues an event for the writer (non-blocking)
func (t *Telemetry) Track(evtType, episode string, fields ...any) {
	if t == nil {
		return
	}
	select {
	case t.events <- TelemetryEvent{
		Type:      evtType,
		Episode:   episode,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}:
	default:
		t.mu.Lock()
		t.snap.Dropped++
		t.mu.Unlock()
	}
}

// ObserveSearch folds one search's work into the live metrics
func (t *Telemetry) ObserveSearch(s pilot.SearchStats) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Searches++
	t.snap.Rollouts += uint64(s.Rollouts)
	if s.Rollouts > t.snap.MaxRollouts {
		t.snap.MaxRollouts = s.Rollouts
	}
	if s.GaveUp {
		t.snap.GiveUps++
	}
}

// Snapshot returns a copy of the aggregated metrics
func (t *Telemetry) Snapshot() TelemetrySnapshot {
	if t == nil {
		return TelemetrySnapshot{Counts: map[string]int{}}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	s.Counts = make(map[string]int, len(t.snap.Counts))
	for k, v := range t.snap.Counts {
		s.Counts[k] = v
	}
	return s
}

// Stop flushes what is queued and shuts the writer down
func (t *Telemetry) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		close(t.stop)
		t.wg.Wait()
	})
}

// writer is the background goroutine that batches events
func (t *Telemetry) writer() {
	defer t.wg.Done()

	batch := make([]TelemetryEvent, 0, t.batchSize)
	ticker := time.NewTicker(t.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-t.events:
			batch = append(batch, evt)
			if len(batch) >= t.batchSize {
				t.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}
		case <-t.stop:
			// Drain what is already queued
			for {
				select {
				case evt := <-t.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						t.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush logs a batch and folds it into the counters
func (t *Telemetry) flush(events []TelemetryEvent) {
	counts := make(map[string]int)
	for _, evt := range events {
		counts[evt.Type]++
		kv := append([]any{"type", evt.Type, "episode", evt.Episode, "at", evt.Timestamp}, evt.Fields...)
		t.logger.Debug("event", kv...)
	}

	t.mu.Lock()
	for k, v := range counts {
		t.snap.Counts[k] += v
	}
	t.snap.FlushedTotal += len(events)
	t.snap.LastFlushed = time.Now().UTC()
	t.mu.Unlock()

	t.logger.Info("flushed events", "batch", len(events), "crashes", counts[EvtCrash], "retries", counts[EvtSearchRetry])
}
