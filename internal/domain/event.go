package domain

import (
	"encoding/json"
	"time"
)

// Well-known broadcast channels. Other channels are created implicitly on
// first subscribe.
const (
	ChannelIncidents = "incidents"
	ChannelChat      = "chat"
)

// Event is an immutable notification derived from a committed record.
// Sequence is assigned by the dispatcher, monotonically per channel, so a
// subscriber can detect gaps after a reconnect.
type Event struct {
	Channel   string          `json:"channel"`
	Sequence  uint64          `json:"sequence"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	EventIncidentNew    = "incident.new"
	EventIncidentStatus = "incident.status"
	EventChatMessage    = "chat.message"
)

// DeliveryReport summarizes one fanout pass over a channel.
type DeliveryReport struct {
	Channel   string `json:"channel"`
	Sequence  uint64 `json:"sequence"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Dropped   int    `json:"dropped"`
}

// Degraded reports whether at least one live subscriber missed the event.
func (r DeliveryReport) Degraded() bool {
	return r.Failed > 0
}

// DispatchWarning surfaces a degraded broadcast after a successful commit.
// It is deliberately not an error: durability already held.
type DispatchWarning struct {
	Message string         `json:"message"`
	Report  DeliveryReport `json:"report"`
}
