package service

import (
	"context"

	"github.com/google/uuid"

	"beacon/internal/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// IngestService is the single authorized write path for incident reports.
type IngestService interface {
	Report(ctx context.Context, req domain.ReportIncidentRequest) (*domain.Incident, *domain.DispatchWarning, error)
}

// IncidentService serves the read path and authorized status updates.
type IncidentService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, filter domain.IncidentFilter, cursor string, limit int) (domain.ListIncidentsResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req domain.UpdateStatusRequest) (*domain.Incident, error)
}

type ChatService interface {
	Send(ctx context.Context, req domain.SendChatMessageRequest) (*domain.ChatMessage, *domain.DispatchWarning, error)
	Recent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

type StatsService interface {
	GetStats(ctx context.Context, req domain.StatsRequest) (*domain.IncidentStats, error)
}

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

// Publisher hands a committed record to the broadcast dispatcher.
type Publisher interface {
	Publish(ctx context.Context, channel, name string, payload any) (domain.DeliveryReport, error)
}

type AlertQueue interface {
	Enqueue(ctx context.Context, payload domain.AlertPayload) error
}

// IncidentCache holds the hot first page of the incident list.
type IncidentCache interface {
	GetFirstPage(ctx context.Context) ([]domain.Incident, error)
	SetFirstPage(ctx context.Context, incidents []domain.Incident) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	IngestService   IngestService
	IncidentService IncidentService
	ChatService     ChatService
	StatsService    StatsService
}

func NewService(
	ingest IngestService,
	incidents IncidentService,
	chat ChatService,
	stats StatsService,
) *Service {
	return &Service{
		IngestService:   ingest,
		IncidentService: incidents,
		ChatService:     chat,
		StatsService:    stats,
	}
}
