package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"beacon/internal/domain"
	"beacon/pkg/e"
	"beacon/pkg/validator"
)

type chatService struct {
	repo   ChatRepository
	pub    Publisher
	logger *slog.Logger
}

func NewChatService(repo ChatRepository, pub Publisher, logger *slog.Logger) ChatService {
	return &chatService{repo: repo, pub: pub, logger: logger}
}

// Send persists the message, then broadcasts it on the chat channel. Clients
// append only on the broadcast frame, never optimistically.
func (s *chatService) Send(ctx context.Context, req domain.SendChatMessageRequest) (*domain.ChatMessage, *domain.DispatchWarning, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, nil, fmt.Errorf("%w: body must not be blank", e.ErrInvalidInput)
	}

	msg, err := s.repo.Save(ctx, &domain.ChatMessage{
		Sender: strings.TrimSpace(req.Sender),
		Body:   strings.TrimSpace(req.Body),
	})
	if err != nil {
		return nil, nil, err
	}

	report, err := s.pub.Publish(ctx, domain.ChannelChat, domain.EventChatMessage, msg)
	if err != nil || report.Degraded() {
		warn := &domain.DispatchWarning{
			Message: "message persisted but broadcast degraded",
			Report:  report,
		}
		s.logger.Warn("chat dispatch degraded",
			slog.String("id", msg.ID.String()),
			slog.Any("error", err),
		)
		return msg, warn, nil
	}

	return msg, nil, nil
}

func (s *chatService) Recent(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	return s.repo.ListRecent(ctx, limit)
}
