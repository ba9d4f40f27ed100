package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

type ChatMessages struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewChatRepo(pool *pgxpool.Pool, logger *slog.Logger) *ChatMessages {
	return &ChatMessages{pool: pool, logger: logger}
}

func (p *ChatMessages) Save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	const op = "postgres.Chat.Save"

	const query = `
		INSERT INTO chat_messages (id, sender, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sender, body, sent_at
	`

	var out domain.ChatMessage
	err := p.pool.QueryRow(ctx, query,
		uuid.New(),
		msg.Sender,
		msg.Body,
		time.Now().UTC(),
	).Scan(&out.ID, &out.Sender, &out.Body, &out.SentAt)
	if err != nil {
		p.logger.Error("db insert failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return &out, nil
}

// ListRecent returns the most recent messages in chronological order, the
// shape a reconnecting client needs for catch-up.
func (p *ChatMessages) ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	const op = "postgres.Chat.ListRecent"

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const query = `
		SELECT id, sender, body, sent_at FROM (
			SELECT id, sender, body, sent_at
			FROM chat_messages
			ORDER BY sent_at DESC
			LIMIT $1
		) recent
		ORDER BY sent_at ASC
	`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.SentAt); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return msgs, nil
}
