package domain

type ReportIncidentRequest struct {
	Type        IncidentType `json:"type" validate:"required,incident_type"`
	Lat         float64      `json:"latitude" validate:"lat"`
	Lng         float64      `json:"longitude" validate:"lng"`
	Description string       `json:"description" validate:"required"`
}

type UpdateStatusRequest struct {
	Status IncidentStatus `json:"status" validate:"required,oneof=pending in_progress resolved"`
}

// IncidentFilter narrows the read path; zero values mean "any".
type IncidentFilter struct {
	Status IncidentStatus
	Type   IncidentType
}

type ListIncidentsResponse struct {
	Incidents  []Incident `json:"incidents"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
