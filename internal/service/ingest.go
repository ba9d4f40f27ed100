package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"beacon/internal/config"
	"beacon/internal/domain"
	"beacon/internal/observability"
	"beacon/pkg/e"
	"beacon/pkg/validator"
)

type ingestService struct {
	repo    IncidentRepository
	pub     Publisher
	alerts  AlertQueue
	cache   IncidentCache
	logger  *slog.Logger
	cfg     config.IngestConfig
	clock   clockwork.Clock
	metrics *observability.Metrics
}

func NewIngestService(
	repo IncidentRepository,
	pub Publisher,
	alerts AlertQueue,
	cache IncidentCache,
	logger *slog.Logger,
	cfg config.IngestConfig,
	clock clockwork.Clock,
	metrics *observability.Metrics,
) IngestService {
	return &ingestService{
		repo:    repo,
		pub:     pub,
		alerts:  alerts,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
	}
}

// Report persists the incident, then publishes it. The order is the central
// invariant: no subscriber ever sees an event for data that is not durably
// stored. A degraded broadcast after a successful commit comes back as a
// DispatchWarning, never as a failure.
func (s *ingestService) Report(ctx context.Context, req domain.ReportIncidentRequest) (*domain.Incident, *domain.DispatchWarning, error) {
	if err := s.validate(req); err != nil {
		if s.metrics != nil {
			s.metrics.ValidationFailures.Inc()
		}
		return nil, nil, err
	}

	draft := &domain.Incident{
		Type:        req.Type,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusPending,
	}

	inc, err := s.createWithRetry(ctx, draft)
	if err != nil {
		return nil, nil, err
	}
	if s.metrics != nil {
		s.metrics.IncidentsReported.Inc()
	}

	s.logger.Info("incident reported",
		slog.String("id", inc.ID.String()),
		slog.String("type", string(inc.Type)),
	)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidate failed", slog.Any("error", err))
		}
	}

	if s.alerts != nil {
		payload := domain.AlertPayload{
			IncidentID:  inc.ID,
			Type:        inc.Type,
			Lat:         inc.Lat,
			Lng:         inc.Lng,
			Description: inc.Description,
			ReportedAt:  inc.ReportedAt,
		}
		if err := s.alerts.Enqueue(ctx, payload); err != nil {
			s.logger.Error("alert enqueue failed", slog.String("id", inc.ID.String()), slog.Any("error", err))
		}
	}

	report, err := s.pub.Publish(ctx, domain.ChannelIncidents, domain.EventIncidentNew, inc)
	if err != nil || report.Degraded() {
		if s.metrics != nil {
			s.metrics.DispatchWarnings.Inc()
		}
		warn := &domain.DispatchWarning{
			Message: "incident persisted but broadcast degraded",
			Report:  report,
		}
		if err != nil {
			warn.Message = fmt.Sprintf("incident persisted but broadcast failed: %v", err)
		}
		s.logger.Warn("dispatch degraded",
			slog.String("id", inc.ID.String()),
			slog.Int("failed", report.Failed),
			slog.Any("error", err),
		)
		return inc, warn, nil
	}

	return inc, nil, nil
}

// validate is pure: a rejected payload never touches storage.
func (s *ingestService) validate(req domain.ReportIncidentRequest) error {
	if err := validator.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: description must not be blank", e.ErrInvalidInput)
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, e.ErrInvalidCoordinates)
	}
	return nil
}

// createWithRetry retries transient storage failures with exponential backoff
// up to the configured attempt count. Permanent failures surface immediately.
func (s *ingestService) createWithRetry(ctx context.Context, draft *domain.Incident) (*domain.Incident, error) {
	backoff := s.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.StorageRetries.Inc()
			}
			select {
			case <-ctx.Done():
				return nil, e.WrapError(ctx, "service.Ingest.Report", ctx.Err())
			case <-s.clock.After(backoff):
			}
			backoff *= 2
		}

		storeCtx := ctx
		var cancel context.CancelFunc
		if s.cfg.StoreTimeout > 0 {
			storeCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
		}
		inc, err := s.repo.Create(storeCtx, draft)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return inc, nil
		}
		lastErr = err
		if !e.IsTransient(err) {
			return nil, err
		}
		s.logger.Warn("incident create failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
	}
	return nil, lastErr
}
