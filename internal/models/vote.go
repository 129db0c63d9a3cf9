package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote records a single authenticated upvote. The database enforces at most
// one row per (incident, user) pair; anonymous upvotes never create a Vote.
type Vote struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	UserID     uuid.UUID `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
