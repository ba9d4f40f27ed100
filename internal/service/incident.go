package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

type incidentService struct {
	repo   IncidentRepository
	pub    Publisher
	cache  IncidentCache
	logger *slog.Logger
}

func NewIncidentService(repo IncidentRepository, pub Publisher, cache IncidentCache, logger *slog.Logger) IncidentService {
	return &incidentService{repo: repo, pub: pub, cache: cache, logger: logger}
}

func (s *incidentService) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.repo.Get(ctx, id)
}

func (s *incidentService) List(ctx context.Context, filter domain.IncidentFilter, cursor string, limit int) (domain.ListIncidentsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cur, err := domain.DecodeCursor(cursor)
	if err != nil {
		return domain.ListIncidentsResponse{}, fmt.Errorf("%w: bad cursor", e.ErrInvalidInput)
	}

	// The unfiltered first page is the initial load of every map/dashboard
	// client; serve it from cache when possible.
	cacheable := s.cache != nil && filter == (domain.IncidentFilter{}) && cur.IsZero() && limit == 20
	if cacheable {
		if cached, err := s.cache.GetFirstPage(ctx); err == nil && cached != nil {
			return listResponse(cached, limit), nil
		} else if err != nil {
			s.logger.Warn("incident cache read failed", slog.Any("error", err))
		}
	}

	incidents, next, err := s.repo.List(ctx, filter, cur, limit)
	if err != nil {
		return domain.ListIncidentsResponse{}, err
	}

	if cacheable {
		if err := s.cache.SetFirstPage(ctx, incidents); err != nil {
			s.logger.Warn("incident cache write failed", slog.Any("error", err))
		}
	}

	resp := domain.ListIncidentsResponse{Incidents: incidents}
	if !next.IsZero() {
		resp.NextCursor = next.Encode()
	}
	return resp, nil
}

func listResponse(incidents []domain.Incident, limit int) domain.ListIncidentsResponse {
	resp := domain.ListIncidentsResponse{Incidents: incidents}
	if len(incidents) == limit {
		last := incidents[limit-1]
		resp.NextCursor = domain.Cursor{ReportedAt: last.ReportedAt, ID: last.ID}.Encode()
	}
	return resp
}

// UpdateStatus applies an authorized transition and broadcasts the change the
// same persist-then-publish way as new reports.
func (s *incidentService) UpdateStatus(ctx context.Context, id uuid.UUID, req domain.UpdateStatusRequest) (*domain.Incident, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, req.Status)
	}

	inc, err := s.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidate failed", slog.Any("error", err))
		}
	}

	if _, err := s.pub.Publish(ctx, domain.ChannelIncidents, domain.EventIncidentStatus, inc); err != nil {
		s.logger.Warn("status broadcast failed",
			slog.String("id", inc.ID.String()),
			slog.Any("error", err),
		)
	}

	return inc, nil
}
