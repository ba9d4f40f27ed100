package service

import (
	"context"

	"beacon/internal/domain"
)

type statsService struct {
	repo StatsRepository
}

func NewStatsService(repo StatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) GetStats(ctx context.Context, req domain.StatsRequest) (*domain.IncidentStats, error) {
	minutes := req.Minutes
	if minutes == 0 {
		minutes = 60
	}
	return s.repo.IncidentStats(ctx, minutes)
}
