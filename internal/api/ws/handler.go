package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/websocket"

	"beacon/internal/config"
	"beacon/internal/observability"
	"beacon/internal/pubsub"
)

const maxDecodeErrorsPerConn = 8

// Handler upgrades live-subscription connections and owns session lifecycle:
// heartbeats, subscription bookkeeping and drop-on-disconnect.
type Handler struct {
	registry *pubsub.Registry
	logger   *slog.Logger
	cfg      config.WSConfig
	clock    clockwork.Clock
	metrics  *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
	draining bool
}

func NewHandler(registry *pubsub.Registry, logger *slog.Logger, cfg config.WSConfig, clock clockwork.Clock, metrics *observability.Metrics) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		cfg:      cfg,
		clock:    clock,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	websocket.Handler(h.handleConn).ServeHTTP(w, r)
}

func (h *Handler) handleConn(conn *websocket.Conn) {
	// The HTTP server's read/write deadlines were armed before the hijack;
	// clear them so a long-lived session is not cut off mid-stream.
	_ = conn.SetDeadline(time.Time{})

	session := newSession(uuid.NewString(), conn)

	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		session.drain()
		_ = conn.Close()
		return
	}
	h.sessions[session.id] = session
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveSessions.Inc()
	}
	session.activate()
	h.logger.Debug("session connected", slog.String("session_id", session.id))

	stopHeartbeat := make(chan struct{})
	go h.heartbeatLoop(session, stopHeartbeat)

	h.readLoop(session)

	close(stopHeartbeat)
	h.teardown(session)
}

func (h *Handler) readLoop(session *Session) {
	decoder := json.NewDecoder(session.conn)
	decodeErrors := 0

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || session.State() != StateActive {
				return
			}
			decodeErrors++
			_ = session.send(Frame{Type: "error", Message: "invalid frame payload"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Op {
		case "subscribe":
			channel := strings.TrimSpace(frame.Channel)
			if channel == "" {
				_ = session.send(Frame{Type: "error", Message: "channel is required"})
				continue
			}
			h.registry.Subscribe(session, channel)
			h.syncSubscriptionGauge()
			_ = session.send(Frame{Type: "subscribed", Channel: channel})
		case "unsubscribe":
			channel := strings.TrimSpace(frame.Channel)
			if channel == "" {
				_ = session.send(Frame{Type: "error", Message: "channel is required"})
				continue
			}
			h.registry.Unsubscribe(session.id, channel)
			h.syncSubscriptionGauge()
			_ = session.send(Frame{Type: "unsubscribed", Channel: channel})
		case "pong":
			session.pong()
		default:
			_ = session.send(Frame{Type: "error", Message: "unsupported op"})
		}
	}
}

// heartbeatLoop pings on the configured interval; a client that misses the
// configured number of consecutive heartbeats is disconnected.
func (h *Handler) heartbeatLoop(session *Session, stop <-chan struct{}) {
	ticker := h.clock.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !session.heartbeat(h.cfg.MaxMissedHeartbeats) {
				h.logger.Info("session missed heartbeats, disconnecting",
					slog.String("session_id", session.id),
				)
				session.disconnect()
				return
			}
		}
	}
}

func (h *Handler) teardown(session *Session) {
	session.disconnect()
	h.registry.DropSession(session.id)
	h.syncSubscriptionGauge()

	h.mu.Lock()
	delete(h.sessions, session.id)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveSessions.Dec()
	}
	h.logger.Debug("session disconnected", slog.String("session_id", session.id))
}

// DrainAll tells every live session to reconnect elsewhere and stops
// accepting new connections. Called on graceful shutdown.
func (h *Handler) DrainAll() {
	h.mu.Lock()
	h.draining = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.drain()
		s.disconnect()
	}
}

func (h *Handler) syncSubscriptionGauge() {
	if h.metrics != nil {
		h.metrics.Subscriptions.Set(float64(h.registry.SubscriptionCount()))
	}
}
