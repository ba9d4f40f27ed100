package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"beacon/internal/config"
	"beacon/internal/domain"
	"beacon/internal/observability"
	"beacon/internal/redis"
	"beacon/pkg/e"
)

// AlertSender drains the Redis alert queue and POSTs operator webhooks with
// bounded retry. Broadcast health never depends on it: it runs strictly after
// the durability boundary.
type AlertSender struct {
	logger  *slog.Logger
	cfg     config.WebhookConfig
	queue   *redis.AlertQueue
	http    *http.Client
	clock   clockwork.Clock
	metrics *observability.Metrics
}

func NewAlertSender(logger *slog.Logger, cfg config.WebhookConfig, q *redis.AlertQueue, clock clockwork.Clock, metrics *observability.Metrics) *AlertSender {
	return &AlertSender{
		logger:  logger,
		cfg:     cfg,
		queue:   q,
		http:    &http.Client{Timeout: 5 * time.Second},
		clock:   clock,
		metrics: metrics,
	}
}

func (s *AlertSender) Run(ctx context.Context) {
	s.logger.Info("alert sender started", slog.String("url", s.cfg.URL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert sender stopped", slog.String("reason", ctx.Err().Error()))
			return
		default:
		}

		payload, err := s.queue.BRPop(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, e.ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("BRPop failed", slog.Any("error", err))
			s.clock.Sleep(500 * time.Millisecond)
			continue
		}

		s.sendWithRetry(ctx, payload)
	}
}

func (s *AlertSender) sendWithRetry(ctx context.Context, p domain.AlertPayload) {
	const maxRetries = 3

	body, err := json.Marshal(p)
	if err != nil {
		s.logger.Error("marshal alert payload failed", slog.String("error", err.Error()))
		return
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
		if err != nil {
			s.logger.Error("create alert request failed", slog.String("error", err.Error()))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			if s.metrics != nil {
				s.metrics.WebhooksSent.WithLabelValues("ok").Inc()
			}
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		reason := "unknown"
		if err != nil {
			reason = err.Error()
		} else if resp != nil {
			reason = resp.Status
		}
		s.logger.Warn("alert webhook failed",
			slog.Int("attempt", attempt),
			slog.String("incident_id", p.IncidentID.String()),
			slog.String("reason", reason),
		)
		s.clock.Sleep(time.Duration(attempt) * time.Second)
	}
	if s.metrics != nil {
		s.metrics.WebhooksSent.WithLabelValues("error").Inc()
	}
}
