package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminNote is an immutable administrative annotation on an incident.
// Notes are owned by the incident and removed with it.
type AdminNote struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
