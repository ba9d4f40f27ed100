package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

// State is the subscriber session lifecycle:
// Connecting -> Active -> (Draining | Disconnected).
type State int32

// writeTimeout bounds a single frame write so one stuck client cannot hold
// the session mutex forever.
const writeTimeout = 10 * time.Second

const (
	StateConnecting State = iota
	StateActive
	StateDraining
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	default:
		return "disconnected"
	}
}

// Frame is the wire envelope in both directions.
type Frame struct {
	// Inbound fields.
	Op      string `json:"op,omitempty"` // subscribe | unsubscribe | pong
	Channel string `json:"channel,omitempty"`

	// Outbound fields.
	Type     string        `json:"type,omitempty"` // event | heartbeat | drain | error | subscribed | unsubscribed
	Sequence uint64        `json:"sequence,omitempty"`
	Event    *domain.Event `json:"event,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// Session is one live subscriber connection. It implements pubsub.Sink.
type Session struct {
	id   string
	conn *websocket.Conn

	mu      sync.Mutex // guards state, missed and encoder writes
	state   State
	missed  int
	encoder *json.Encoder
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		state:   StateConnecting,
		encoder: json.NewEncoder(conn),
	}
}

func (s *Session) SessionID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) activate() {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateActive
	}
	s.mu.Unlock()
}

// drain marks the session server-side done: no further events are delivered
// and the client is told to reconnect elsewhere.
func (s *Session) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive && s.state != StateConnecting {
		return
	}
	s.state = StateDraining
	_ = s.writeLocked(Frame{Type: "drain", Message: "server draining, reconnect"})
}

func (s *Session) disconnect() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	_ = s.conn.Close()
}

// Deliver pushes one event frame. Only Active sessions receive events; a
// Draining or Disconnected session reports ErrSessionClosed so the dispatcher
// drops it instead of retrying forever.
func (s *Session) Deliver(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return fmt.Errorf("session %s: %w", s.id, e.ErrSessionClosed)
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return s.writeWithDeadline(Frame{
		Type:     "event",
		Channel:  ev.Channel,
		Sequence: ev.Sequence,
		Event:    &ev,
	}, deadline)
}

// heartbeat sends a ping frame and counts it against the miss budget until a
// pong comes back. Returns false once the budget is exhausted.
func (s *Session) heartbeat(maxMissed int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return false
	}
	s.missed++
	if s.missed > maxMissed {
		return false
	}
	if err := s.writeLocked(Frame{Type: "heartbeat"}); err != nil {
		return false
	}
	return true
}

func (s *Session) pong() {
	s.mu.Lock()
	s.missed = 0
	s.mu.Unlock()
}

func (s *Session) send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(f)
}

// Every write arms its own deadline; a deadline left over from an earlier
// write would otherwise fail control frames sent on an idle connection.
func (s *Session) writeLocked(f Frame) error {
	return s.writeWithDeadline(f, time.Now().Add(writeTimeout))
}

func (s *Session) writeWithDeadline(f Frame, deadline time.Time) error {
	_ = s.conn.SetWriteDeadline(deadline)
	return s.encoder.Encode(f)
}
