package domain

import (
	"time"

	"github.com/google/uuid"
)

type IncidentType string

const (
	IncidentFlood      IncidentType = "flood"
	IncidentFire       IncidentType = "fire"
	IncidentEarthquake IncidentType = "earthquake"
	IncidentMedical    IncidentType = "medical"
	IncidentOther      IncidentType = "other"
)

type IncidentStatus string

const (
	StatusPending    IncidentStatus = "pending"
	StatusInProgress IncidentStatus = "in_progress"
	StatusResolved   IncidentStatus = "resolved"
)

// CanTransitionTo enforces pending -> in_progress -> resolved. Responders may
// resolve directly from pending; going backwards is never allowed.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusResolved
	case StatusInProgress:
		return next == StatusResolved
	default:
		return false
	}
}

func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

type Incident struct {
	ID          uuid.UUID      `json:"id"`
	Type        IncidentType   `json:"type"`
	Lat         float64        `json:"lat"` // -90..90
	Lng         float64        `json:"lng"` // -180..180
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	ReportedAt  time.Time      `json:"reported_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
