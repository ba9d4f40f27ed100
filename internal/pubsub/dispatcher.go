package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"beacon/internal/domain"
	"beacon/internal/observability"
)

type DispatcherConfig struct {
	MaxAttempts    int           // per-session delivery attempts
	AttemptTimeout time.Duration // budget for a single Deliver call
	RetryBackoff   time.Duration // base backoff between attempts
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 2 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

// Dispatcher fans committed events out to the current subscribers of a
// channel. Publishes to the same channel are serialized so every subscriber
// observes them in publish order; channels do not order against each other.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	cfg      DispatcherConfig
	clock    clockwork.Clock
	metrics  *observability.Metrics

	mu       sync.Mutex
	channels map[string]*channelState
}

type channelState struct {
	mu  sync.Mutex // serializes publishes on this channel
	seq uint64
}

func NewDispatcher(registry *Registry, logger *slog.Logger, cfg DispatcherConfig, clock clockwork.Clock, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		clock:    clock,
		channels: make(map[string]*channelState),
		metrics:  metrics,
	}
}

func (d *Dispatcher) channel(name string) *channelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	cs, ok := d.channels[name]
	if !ok {
		cs = &channelState{}
		d.channels[name] = cs
	}
	return cs
}

// Publish assigns the next per-channel sequence number and delivers the event
// to every subscriber registered at publish time. Delivery to one session is
// best-effort with bounded retry; a session that exhausts its retries is
// dropped from the registry so a dead client cannot stall future fanout.
func (d *Dispatcher) Publish(ctx context.Context, channel, name string, payload any) (domain.DeliveryReport, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.DeliveryReport{Channel: channel}, err
	}

	cs := d.channel(channel)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.seq++
	ev := domain.Event{
		Channel:   channel,
		Sequence:  cs.seq,
		Name:      name,
		Timestamp: d.clock.Now().UTC(),
		Payload:   body,
	}

	report := domain.DeliveryReport{Channel: channel, Sequence: ev.Sequence}
	if d.metrics != nil {
		d.metrics.PublishTotal.WithLabelValues(channel).Inc()
	}

	// The event is already committed once fanout starts; a caller hanging up
	// on its own request must not cost other subscribers their delivery or
	// their registration. Each attempt still runs under AttemptTimeout.
	fanoutCtx := context.WithoutCancel(ctx)

	for _, sink := range d.registry.SubscribersOf(channel) {
		if err := d.deliverWithRetry(fanoutCtx, sink, ev); err != nil {
			report.Failed++
			d.registry.DropSession(sink.SessionID())
			report.Dropped++
			if d.metrics != nil {
				d.metrics.DeliveriesTotal.WithLabelValues(channel, "dropped").Inc()
			}
			d.logger.Warn("subscriber dropped after failed delivery",
				slog.String("channel", channel),
				slog.String("session_id", sink.SessionID()),
				slog.Uint64("sequence", ev.Sequence),
				slog.Any("error", err),
			)
			continue
		}
		report.Delivered++
		if d.metrics != nil {
			d.metrics.DeliveriesTotal.WithLabelValues(channel, "ok").Inc()
		}
	}

	d.logger.Debug("event published",
		slog.String("channel", channel),
		slog.Uint64("sequence", ev.Sequence),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, sink Sink, ev domain.Event) error {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		err := sink.Deliver(attemptCtx, ev)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < d.cfg.MaxAttempts {
			if d.metrics != nil {
				d.metrics.DeliveryRetries.Inc()
			}
			d.clock.Sleep(time.Duration(attempt) * d.cfg.RetryBackoff)
		}
	}
	return lastErr
}

// Sequence reports the last sequence number assigned on the channel.
func (d *Dispatcher) Sequence(channel string) uint64 {
	cs := d.channel(channel)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.seq
}
