package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertPayload is the operator webhook body enqueued for each committed incident.
type AlertPayload struct {
	IncidentID  uuid.UUID    `json:"incident_id"`
	Type        IncidentType `json:"type"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	Description string       `json:"description"`
	ReportedAt  time.Time    `json:"reported_at"`
}
