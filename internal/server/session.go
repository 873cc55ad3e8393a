package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/stadtaev/racereplay/internal/race"
	"github.com/stadtaev/racereplay/internal/replay"
)

// Session hosts one replay engine. The engine itself is passive and
// single-threaded; the session provides its scheduler (a fixed-interval
// ticker goroutine feeding wall-clock deltas) and serializes every engine
// call behind one mutex, so a seek issued between ticks is applied
// atomically and no partial cursor state is ever observable.
type Session struct {
	ID     string
	RaceID string

	mu       sync.Mutex
	engine   *replay.Engine
	lastTick time.Time

	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

func newSession(id string, bundle *race.Bundle, broker *Broker, interval time.Duration, logger *slog.Logger) *Session {
	s := &Session{
		ID:       id,
		RaceID:   bundle.ID,
		interval: interval,
		stop:     make(chan struct{}),
		logger:   logger,
	}
	s.engine = replay.NewEngine(replay.Config{
		Frames:      bundle.Positions,
		Records:     bundle.ScoringRecords(),
		Entities:    bundle.EntityIDs(),
		Start:       bundle.Metadata.StartTime,
		End:         bundle.Metadata.EndTime,
		TotalStages: bundle.Metadata.TotalStages,
		Sink: func(n replay.Notification) {
			broker.Publish(id, n)
		},
	})
	// Apply everything at the window start so the first state query sees
	// initial positions rather than an empty engine.
	s.engine.SeekTime(bundle.Metadata.StartTime)

	go s.run()
	return s
}

// run drives the engine until the session closes. The wall delta is
// measured per ticker fire; the engine ignores ticks while paused, and the
// baseline is at most one interval old when playback resumes, so paused
// time never counts toward the virtual clock.
func (s *Session) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			if s.engine.IsPlaying() && !s.lastTick.IsZero() {
				s.engine.Tick(now.Sub(s.lastTick).Seconds())
			}
			s.lastTick = now
			s.mu.Unlock()
		}
	}
}

// Close stops the ticker goroutine. Idempotent.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = time.Time{}
	return s.engine.Play()
}

func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Pause()
}

func (s *Session) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = time.Time{}
	return s.engine.Toggle()
}

func (s *Session) SetSpeed(mult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetSpeed(mult)
}

func (s *Session) SeekTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SeekTime(t)
}

func (s *Session) SeekPercent(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SeekPercent(p)
}

func (s *Session) Snapshot() replay.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Speed()
}

func (s *Session) Progress() (progress, duration, now float64, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Progress(), s.engine.Duration(), s.engine.Now(), s.engine.IsPlaying()
}

// Timeline returns the session's full derived event timeline.
func (s *Session) Timeline() []replay.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Events()
}
