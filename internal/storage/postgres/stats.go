package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

type StatsRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStats(pool *pgxpool.Pool, logger *slog.Logger) *StatsRepo {
	return &StatsRepo{pool: pool, logger: logger}
}

func (p *StatsRepo) IncidentStats(ctx context.Context, minutes int) (*domain.IncidentStats, error) {
	const op = "postgres.Stats.IncidentStats"

	if minutes <= 0 || minutes > 1440 {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	const query = `
		SELECT status, type, COUNT(*)
		FROM incidents
		WHERE reported_at >= NOW() - ($1 * INTERVAL '1 minute')
		GROUP BY status, type
	`

	rows, err := p.pool.Query(ctx, query, minutes)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	stats := &domain.IncidentStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
		Minutes:  minutes,
	}
	for rows.Next() {
		var status, typ string
		var count int64
		if err := rows.Scan(&status, &typ, &count); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		stats.ByStatus[status] += count
		stats.ByType[typ] += count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return stats, nil
}
