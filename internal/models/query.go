package models

// Sort keys accepted by incident listing.
const (
	SortByCreatedAt   = "createdAt"
	SortByUpdatedAt   = "updatedAt"
	SortBySeverity    = "severity"
	SortByUpvoteCount = "upvoteCount"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilter narrows and orders an incident listing. Zero values mean
// "no constraint"; each bounding-box side is independent and optional.
type ListFilter struct {
	Status   IncidentStatus
	Type     IncidentType
	Severity IncidentSeverity

	MinLat *float64
	MaxLat *float64
	MinLon *float64
	MaxLon *float64

	SortBy  string
	SortDir string

	Page     int
	PageSize int
}

// IncidentPage is one page of a listing plus its pagination metadata.
type IncidentPage struct {
	Incidents  []*Incident `json:"incidents"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Stats summarizes incident counts by triage state.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Active   int64 `json:"active"`
	Resolved int64 `json:"resolved"`
}
