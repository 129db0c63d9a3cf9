package v1

import "github.com/citywatch/incident_reporting_system/internal/models"

// ModelToIncidentResponse converts a domain incident into a response DTO.
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:          model.ID,
		Type:        string(model.Type),
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		Severity:    string(model.Severity),
		Status:      string(model.Status),
		UpvoteCount: model.UpvoteCount,
		MediaURL:    model.MediaURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if len(model.Votes) > 0 {
		resp.Votes = make([]*VoteResponse, len(model.Votes))
		for i, vote := range model.Votes {
			resp.Votes[i] = &VoteResponse{
				ID:        vote.ID,
				UserID:    vote.UserID,
				CreatedAt: vote.CreatedAt,
			}
		}
	}
	if len(model.Notes) > 0 {
		resp.Notes = make([]*NoteResponse, len(model.Notes))
		for i, note := range model.Notes {
			resp.Notes[i] = &NoteResponse{
				ID:        note.ID,
				AuthorID:  note.AuthorID,
				Text:      note.Text,
				CreatedAt: note.CreatedAt,
			}
		}
	}
	return resp
}

// PageToListResponse converts a listing page into its response DTO.
func PageToListResponse(page *models.IncidentPage) *ListIncidentsResponse {
	incidents := make([]*IncidentResponse, len(page.Incidents))
	for i, incident := range page.Incidents {
		incidents[i] = ModelToIncidentResponse(incident)
	}
	return &ListIncidentsResponse{
		Incidents:  incidents,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

// StatsToResponse converts domain stats into the response DTO.
func StatsToResponse(stats *models.Stats) *StatsResponse {
	return &StatsResponse{
		Total:    stats.Total,
		Pending:  stats.Pending,
		Active:   stats.Active,
		Resolved: stats.Resolved,
	}
}
