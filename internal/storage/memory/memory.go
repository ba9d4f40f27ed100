// Package memory provides in-process implementations of the storage
// repositories, selected with STORAGE_BACKEND=memory. It backs demo
// deployments without a database and keeps unit tests off the network.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

type Store struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]domain.Incident
	chat      []domain.ChatMessage
}

func NewStore() *Store {
	return &Store{incidents: make(map[uuid.UUID]domain.Incident)}
}

func (s *Store) Create(ctx context.Context, draft *domain.Incident) (*domain.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, "memory.Incident.Create", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	inc := domain.Incident{
		ID:          uuid.New(),
		Type:        draft.Type,
		Lat:         draft.Lat,
		Lng:         draft.Lng,
		Description: draft.Description,
		Status:      draft.Status,
		ReportedAt:  now,
		UpdatedAt:   now,
	}
	if inc.Status == "" {
		inc.Status = domain.StatusPending
	}
	s.incidents[inc.ID] = inc
	return &inc, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("memory.Incident.Get: %w", e.ErrNotFound)
	}
	return &inc, nil
}

func (s *Store) List(ctx context.Context, filter domain.IncidentFilter, cursor domain.Cursor, limit int) ([]domain.Incident, domain.Cursor, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	s.mu.RLock()
	all := make([]domain.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Type != "" && inc.Type != filter.Type {
			continue
		}
		all = append(all, inc)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].ReportedAt.Equal(all[j].ReportedAt) {
			return all[i].ReportedAt.After(all[j].ReportedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	start := 0
	if !cursor.IsZero() {
		for i, inc := range all {
			if inc.ReportedAt.Before(cursor.ReportedAt) ||
				(inc.ReportedAt.Equal(cursor.ReportedAt) && inc.ID.String() < cursor.ID.String()) {
				start = i
				break
			}
			start = len(all)
		}
	}
	all = all[start:]

	var next domain.Cursor
	if len(all) > limit {
		all = all[:limit]
		last := all[limit-1]
		next = domain.Cursor{ReportedAt: last.ReportedAt, ID: last.ID}
	}
	return all, next, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.IncidentStatus) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("memory.Incident.UpdateStatus: %w", e.ErrNotFound)
	}
	if !inc.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("memory.Incident.UpdateStatus: %w", e.ErrInvalidTransition)
	}
	inc.Status = status
	inc.UpdatedAt = time.Now().UTC()
	s.incidents[id] = inc
	return &inc, nil
}

func (s *Store) Save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.ChatMessage{
		ID:     uuid.New(),
		Sender: msg.Sender,
		Body:   msg.Body,
		SentAt: time.Now().UTC(),
	}
	s.chat = append(s.chat, out)
	return &out, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chat) > limit {
		return append([]domain.ChatMessage(nil), s.chat[len(s.chat)-limit:]...), nil
	}
	return append([]domain.ChatMessage(nil), s.chat...), nil
}

func (s *Store) IncidentStats(ctx context.Context, minutes int) (*domain.IncidentStats, error) {
	if minutes <= 0 || minutes > 1440 {
		return nil, fmt.Errorf("memory.Stats.IncidentStats: %w", e.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	stats := &domain.IncidentStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
		Minutes:  minutes,
	}
	for _, inc := range s.incidents {
		if inc.ReportedAt.Before(since) {
			continue
		}
		stats.ByStatus[string(inc.Status)]++
		stats.ByType[string(inc.Type)]++
		stats.Total++
	}
	return stats, nil
}
