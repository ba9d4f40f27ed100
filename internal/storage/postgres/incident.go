package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

type IncidentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIncidentRepo(pool *pgxpool.Pool, logger *slog.Logger) *IncidentRepo {
	return &IncidentRepo{pool: pool, logger: logger}
}

// Create assigns id and timestamps and commits the row atomically. Callers
// never observe a partially written incident: the committed record comes back
// from the same INSERT.
func (p *IncidentRepo) Create(ctx context.Context, draft *domain.Incident) (*domain.Incident, error) {
	const op = "postgres.Incident.Create"

	const query = `
		INSERT INTO incidents (id, type, lat, lng, description, status, reported_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, type, lat, lng, description, status, reported_at, updated_at
	`

	now := time.Now().UTC()
	id := uuid.New()
	status := draft.Status
	if status == "" {
		status = domain.StatusPending
	}

	var inc domain.Incident
	err := p.pool.QueryRow(ctx, query,
		id,
		draft.Type,
		draft.Lat,
		draft.Lng,
		draft.Description,
		status,
		now,
	).Scan(
		&inc.ID,
		&inc.Type,
		&inc.Lat,
		&inc.Lng,
		&inc.Description,
		&inc.Status,
		&inc.ReportedAt,
		&inc.UpdatedAt,
	)
	if err != nil {
		p.logger.Error("db insert failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return &inc, nil
}

func (p *IncidentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "postgres.Incident.Get"

	const query = `
		SELECT id, type, lat, lng, description, status, reported_at, updated_at
		FROM incidents
		WHERE id = $1
	`

	var inc domain.Incident
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&inc.ID,
		&inc.Type,
		&inc.Lat,
		&inc.Lng,
		&inc.Description,
		&inc.Status,
		&inc.ReportedAt,
		&inc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return &inc, nil
}

// List pages on (reported_at DESC, id DESC). The returned cursor restarts the
// sequence exactly after the last row of this page; a zero cursor means the
// listing is exhausted.
func (p *IncidentRepo) List(ctx context.Context, filter domain.IncidentFilter, cursor domain.Cursor, limit int) ([]domain.Incident, domain.Cursor, error) {
	const op = "postgres.Incident.List"

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, type, lat, lng, description, status, reported_at, updated_at
		FROM incidents
		WHERE 1=1
	`
	args := make([]any, 0, 5)
	n := 0

	if filter.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		n++
		query += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, filter.Type)
	}
	if !cursor.IsZero() {
		query += fmt.Sprintf(" AND (reported_at, id) < ($%d, $%d)", n+1, n+2)
		args = append(args, cursor.ReportedAt, cursor.ID)
		n += 2
	}
	query += fmt.Sprintf(" ORDER BY reported_at DESC, id DESC LIMIT $%d", n+1)
	args = append(args, limit+1) // one extra row to detect the next page

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, domain.Cursor{}, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0, limit)
	for rows.Next() {
		var inc domain.Incident
		if err := rows.Scan(
			&inc.ID,
			&inc.Type,
			&inc.Lat,
			&inc.Lng,
			&inc.Description,
			&inc.Status,
			&inc.ReportedAt,
			&inc.UpdatedAt,
		); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, domain.Cursor{}, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, domain.Cursor{}, e.WrapError(ctx, op, err)
	}

	var next domain.Cursor
	if len(incidents) > limit {
		incidents = incidents[:limit]
		last := incidents[limit-1]
		next = domain.Cursor{ReportedAt: last.ReportedAt, ID: last.ID}
	}

	return incidents, next, nil
}

// UpdateStatus applies the transition rule inside the UPDATE guard so a
// concurrent update cannot slip an illegal transition through. Zero rows
// affected means either the id is unknown or the transition is illegal; a
// follow-up Get tells the two apart.
func (p *IncidentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.IncidentStatus) (*domain.Incident, error) {
	const op = "postgres.Incident.UpdateStatus"

	const query = `
		UPDATE incidents
		SET status = $2, updated_at = $3
		WHERE id = $1
		  AND (
			(status = 'pending'     AND $2 IN ('in_progress', 'resolved')) OR
			(status = 'in_progress' AND $2 = 'resolved')
		  )
		RETURNING id, type, lat, lng, description, status, reported_at, updated_at
	`

	var inc domain.Incident
	err := p.pool.QueryRow(ctx, query, id, status, time.Now().UTC()).Scan(
		&inc.ID,
		&inc.Type,
		&inc.Lat,
		&inc.Lng,
		&inc.Description,
		&inc.Status,
		&inc.ReportedAt,
		&inc.UpdatedAt,
	)
	if err == nil {
		return &inc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	if _, getErr := p.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidTransition)
}
