package postgres

import (
	"context"

	"github.com/google/uuid"

	"beacon/internal/domain"
)

type IncidentRepository interface {
	Create(ctx context.Context, draft *domain.Incident) (*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, filter domain.IncidentFilter, cursor domain.Cursor, limit int) ([]domain.Incident, domain.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.IncidentStatus) (*domain.Incident, error)
}

type ChatRepository interface {
	Save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

type StatsRepository interface {
	IncidentStats(ctx context.Context, minutes int) (*domain.IncidentStats, error)
}

func (p *Postgres) Incidents() IncidentRepository { return p.Incident }
func (p *Postgres) Chat() ChatRepository          { return p.ChatRepo }
func (p *Postgres) Stats() StatsRepository        { return p.Stat }
