package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID     uuid.UUID `json:"id"`
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

type SendChatMessageRequest struct {
	Sender string `json:"sender" validate:"required,max=64"`
	Body   string `json:"body" validate:"required,max=2000"`
}
