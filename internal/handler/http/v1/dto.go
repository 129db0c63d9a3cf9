package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest is a citizen report submission (multipart form; the
// optional media file is read separately).
// @Description Citizen incident report submission
type CreateIncidentRequest struct {
	Type        string  `form:"type" json:"type" validate:"required"`
	Description string  `form:"description" json:"description" validate:"required,min=10,max=2000"`
	Latitude    float64 `form:"latitude" json:"latitude" validate:"latitude"`
	Longitude   float64 `form:"longitude" json:"longitude" validate:"longitude"`
	Severity    string  `form:"severity" json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// UpdateStatusRequest is an administrative status change with an optional
// triage note.
// @Description Administrative status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=REPORTED VERIFIED IN_PROGRESS RESOLVED FLAGGED"`
	Note   string `json:"note" validate:"omitempty,max=1000"`
}

// UpdateSeverityRequest is an administrative severity change.
// @Description Administrative severity change
type UpdateSeverityRequest struct {
	Severity string `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH"`
}

// AddNoteRequest attaches a standalone admin annotation.
// @Description Standalone admin annotation
type AddNoteRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

// BroadcastRequest is an admin-triggered emergency message.
// @Description Emergency broadcast message
type BroadcastRequest struct {
	Message string `json:"message" validate:"required,min=1,max=500"`
}

// VoteResponse describes one recorded authenticated upvote.
type VoteResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteResponse describes one admin annotation.
type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IncidentResponse is the public incident representation. Votes and notes
// are attached on single-incident reads only.
// @Description Incident representation
type IncidentResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Severity    string          `json:"severity"`
	Status      string          `json:"status"`
	UpvoteCount int             `json:"upvote_count"`
	MediaURL    *string         `json:"media_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Votes       []*VoteResponse `json:"votes,omitempty"`
	Notes       []*NoteResponse `json:"notes,omitempty"`
}

// ListIncidentsResponse is one page of incidents plus pagination metadata.
// @Description Paginated incident listing
type ListIncidentsResponse struct {
	Incidents  []*IncidentResponse `json:"incidents"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// UpvoteResponse reports the incident state after an upvote attempt.
// @Description Upvote outcome
type UpvoteResponse struct {
	Incident     *IncidentResponse `json:"incident"`
	AlreadyVoted bool              `json:"already_voted"`
}

// StatsResponse summarizes incident counts by triage state.
// @Description Incident counts by triage state
type StatsResponse struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Active   int64 `json:"active"`
	Resolved int64 `json:"resolved"`
}
