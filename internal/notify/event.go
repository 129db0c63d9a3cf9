package notify

import (
	"time"

	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/google/uuid"
)

type EventType string

const (
	// EventIncidentNew carries the full record of a freshly created incident.
	EventIncidentNew EventType = "incident:new"
	// EventIncidentUpdate carries the full record after a state change. It is
	// fanned out to the all-incidents channel and the per-incident channel.
	EventIncidentUpdate EventType = "incident:update"
	// EventEmergencyBroadcast carries a free-text admin message.
	EventEmergencyBroadcast EventType = "emergency:broadcast"
)

// Event is the envelope published to subscribers: a type tag, a payload and
// an ISO-8601 timestamp.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`

	// IncidentID addresses the per-incident channel; nil for broadcasts.
	IncidentID *uuid.UUID `json:"-"`
}

func NewIncidentEvent(incident *models.Incident) Event {
	return Event{
		Type:      EventIncidentNew,
		Payload:   incident,
		Timestamp: time.Now().UTC(),
	}
}

func IncidentUpdateEvent(incident *models.Incident) Event {
	id := incident.ID
	return Event{
		Type:       EventIncidentUpdate,
		Payload:    incident,
		Timestamp:  time.Now().UTC(),
		IncidentID: &id,
	}
}

func EmergencyBroadcastEvent(message string) Event {
	return Event{
		Type:      EventEmergencyBroadcast,
		Payload:   map[string]string{"message": message},
		Timestamp: time.Now().UTC(),
	}
}
