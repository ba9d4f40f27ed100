package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Cursor is an opaque keyset-pagination token over
// (reported_at DESC, id DESC). A restarted list with the returned cursor
// continues exactly where the previous page stopped.
type Cursor struct {
	ReportedAt time.Time `json:"reported_at"`
	ID         uuid.UUID `json:"id"`
}

func (c Cursor) IsZero() bool {
	return c.ID == uuid.Nil && c.ReportedAt.IsZero()
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	if s == "" {
		return c, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}
