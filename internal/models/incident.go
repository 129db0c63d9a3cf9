package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the lifecycle state of a report.
type IncidentStatus string

const (
	StatusReported   IncidentStatus = "REPORTED"
	StatusVerified   IncidentStatus = "VERIFIED"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusFlagged    IncidentStatus = "FLAGGED"
)

// IncidentType is the fixed category set for reports, stored uppercase.
type IncidentType string

const (
	TypeFire           IncidentType = "FIRE"
	TypeFlood          IncidentType = "FLOOD"
	TypeEarthquake     IncidentType = "EARTHQUAKE"
	TypeAccident       IncidentType = "ACCIDENT"
	TypeMedical        IncidentType = "MEDICAL"
	TypeCrime          IncidentType = "CRIME"
	TypeInfrastructure IncidentType = "INFRASTRUCTURE"
	TypeEnvironmental  IncidentType = "ENVIRONMENTAL"
	TypeOther          IncidentType = "OTHER"
)

type IncidentSeverity string

const (
	SeverityLow    IncidentSeverity = "LOW"
	SeverityMedium IncidentSeverity = "MEDIUM"
	SeverityHigh   IncidentSeverity = "HIGH"
)

// DuplicateMarker prefixes the description of a report flagged as a
// near-duplicate of an earlier one.
const DuplicateMarker = "[POSSIBLE DUPLICATE] "

type Incident struct {
	ID          uuid.UUID        `json:"id"`
	Type        IncidentType     `json:"type"`
	Description string           `json:"description"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Severity    IncidentSeverity `json:"severity"`
	Status      IncidentStatus   `json:"status"`
	UpvoteCount int              `json:"upvote_count"`
	MediaURL    *string          `json:"media_url,omitempty"`
	ReporterID  *uuid.UUID       `json:"reporter_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Populated on single-incident reads only.
	Votes []*Vote      `json:"votes,omitempty"`
	Notes []*AdminNote `json:"notes,omitempty"`
}

// ValidStatus reports whether s is one of the defined lifecycle states.
func ValidStatus(s IncidentStatus) bool {
	switch s {
	case StatusReported, StatusVerified, StatusInProgress, StatusResolved, StatusFlagged:
		return true
	}
	return false
}

func ValidSeverity(s IncidentSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// NormalizeType uppercases a raw type value; unknown values map to OTHER.
func NormalizeType(raw string) IncidentType {
	t := IncidentType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TypeFire, TypeFlood, TypeEarthquake, TypeAccident, TypeMedical,
		TypeCrime, TypeInfrastructure, TypeEnvironmental, TypeOther:
		return t
	}
	return TypeOther
}
