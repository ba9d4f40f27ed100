package pubsub

import (
	"context"
	"sync"

	"beacon/internal/domain"
)

// Sink is one live subscriber connection. Deliver must be safe for concurrent
// use and must respect ctx deadlines; a Deliver that keeps failing gets the
// whole session dropped by the dispatcher.
type Sink interface {
	SessionID() string
	Deliver(ctx context.Context, ev domain.Event) error
}

// Registry owns the live channel -> subscriber mapping. Channels exist
// implicitly: the first subscribe creates one, the last unsubscribe removes it.
type Registry struct {
	mu sync.RWMutex
	// channel -> session id -> sink
	channels map[string]map[string]Sink
	// session id -> channels it subscribed to, for DropSession
	sessions map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]Sink),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Subscribe is idempotent: subscribing the same session twice to one channel
// keeps a single entry.
func (r *Registry) Subscribe(sink Sink, channel string) {
	id := sink.SessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.channels[channel]
	if !ok {
		subs = make(map[string]Sink)
		r.channels[channel] = subs
	}
	subs[id] = sink

	chans, ok := r.sessions[id]
	if !ok {
		chans = make(map[string]struct{})
		r.sessions[id] = chans
	}
	chans[channel] = struct{}{}
}

func (r *Registry) Unsubscribe(sessionID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID, channel)
}

// DropSession removes every subscription held by the session. Safe to call
// for a session that never subscribed to anything.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel := range r.sessions[sessionID] {
		r.removeLocked(sessionID, channel)
	}
	delete(r.sessions, sessionID)
}

func (r *Registry) removeLocked(sessionID, channel string) {
	if subs, ok := r.channels[channel]; ok {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
	}
	if chans, ok := r.sessions[sessionID]; ok {
		delete(chans, channel)
		if len(chans) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}

// SubscribersOf returns a snapshot of the channel's sinks. The dispatcher
// delivers against the snapshot so no lock is held across network writes.
func (r *Registry) SubscribersOf(channel string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.channels[channel]
	out := make([]Sink, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	return out
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, subs := range r.channels {
		n += len(subs)
	}
	return n
}

func (r *Registry) IsSubscribed(sessionID, channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[channel][sessionID]
	return ok
}
