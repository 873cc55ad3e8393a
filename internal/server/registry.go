package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/stadtaev/racereplay/internal/race"
)

// SessionRegistry owns all live replay sessions. Sessions are in-process
// only; nothing about playback position survives a restart.
type SessionRegistry struct {
	broker   *Broker
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRegistry(logger *slog.Logger, interval time.Duration) *SessionRegistry {
	return &SessionRegistry{
		broker:   NewBroker(),
		interval: interval,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (r *SessionRegistry) Broker() *Broker { return r.broker }

// Create builds an engine from the loaded bundle and starts its ticker.
func (r *SessionRegistry) Create(bundle *race.Bundle) *Session {
	id := newSessionID()
	s := newSession(id, bundle, r.broker, r.interval, r.logger)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("replay session created", "session", id, "race", bundle.ID)
	return s
}

func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

// Delete stops the session's ticker and removes it. Missing IDs are a no-op.
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
		r.logger.Info("replay session closed", "session", id)
	}
}

// Close stops every session; used at shutdown.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}

func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
