package server

import (
	"encoding/json"
	"sync"

	"github.com/stadtaev/racereplay/internal/replay"
)

// sseMessage is one pre-encoded event for an SSE subscriber.
type sseMessage struct {
	event string
	data  []byte
}

// Broker is an in-process pub/sub for engine notifications, keyed by
// session ID. Notifications are encoded once per publish and fanned out to
// every subscriber of that session.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan sseMessage]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan sseMessage]struct{}),
	}
}

// Subscribe returns a channel that receives the session's notifications.
func (b *Broker) Subscribe(sessionID string) chan sseMessage {
	ch := make(chan sseMessage, 64)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan sseMessage]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan sseMessage) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends a notification to all subscribers of the session. The
// engine emits synchronously from inside tick/seek, so sends never block:
// a slow subscriber drops messages rather than stalling playback.
func (b *Broker) Publish(sessionID string, n replay.Notification) {
	data, _ := json.Marshal(n)
	msg := sseMessage{event: string(n.Kind), data: data}
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
