package service

import (
	"context"
	"fmt"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/config"
	"github.com/citywatch/incident_reporting_system/internal/geo"
	"github.com/citywatch/incident_reporting_system/internal/media"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/citywatch/incident_reporting_system/internal/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncidentRepository is the persistence contract consumed by the engine.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int64, error)
	FindRecentCandidates(ctx context.Context, incidentType models.IncidentType, box geo.BoundingBox, since time.Time, limit int) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error)
	UpdateSeverity(ctx context.Context, id uuid.UUID, severity models.IncidentSeverity) (*models.Incident, error)
	AddNote(ctx context.Context, note *models.AdminNote) error
	AddVote(ctx context.Context, incidentID, userID uuid.UUID) (*models.Incident, bool, error)
	IncrementUpvote(ctx context.Context, incidentID uuid.UUID) (*models.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.Stats, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// CreateIncidentInput is a citizen report submission. Media is optional raw
// bytes; ReporterID is nil for anonymous submissions.
type CreateIncidentInput struct {
	Type        string
	Description string
	Latitude    float64
	Longitude   float64
	Severity    string
	Media       []byte
	ReporterID  *uuid.UUID
}

// IncidentService is the incident lifecycle engine contract.
type IncidentService interface {
	Create(ctx context.Context, input CreateIncidentInput) (*models.Incident, error)
	List(ctx context.Context, filter models.ListFilter) (*models.IncidentPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, adminID uuid.UUID, note string) (*models.Incident, error)
	UpdateSeverity(ctx context.Context, id uuid.UUID, severity models.IncidentSeverity) (*models.Incident, error)
	AddNote(ctx context.Context, id, adminID uuid.UUID, text string) (*models.Incident, error)
	Upvote(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.Incident, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.Stats, error)
	BroadcastEmergency(ctx context.Context, message string) error
}

type incidentService struct {
	repo       IncidentRepository
	logger     *logrus.Logger
	cfg        *config.Config
	publisher  notify.EventPublisher
	mediaStore media.Store
	detector   *DuplicateDetector
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger, cfg *config.Config, publisher notify.EventPublisher, mediaStore media.Store) IncidentService {
	return &incidentService{
		repo:       repo,
		logger:     logger,
		cfg:        cfg,
		publisher:  publisher,
		mediaStore: mediaStore,
		detector:   NewDuplicateDetector(repo, logger, cfg),
	}
}

// publish is best-effort fan-out: a failed broadcast is logged, never
// propagated, so a flaky sink cannot fail a committed state change.
func (s *incidentService) publish(ctx context.Context, log *logrus.Entry, event notify.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish event")
	}
}

// Create stores media (if any), runs duplicate detection, persists the
// incident with its derived initial status and broadcasts incident:new.
// Duplicates are flagged, never rejected.
func (s *incidentService) Create(ctx context.Context, input CreateIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Create",
		"type":    input.Type,
	})
	log.Info("Attempting to create a new incident")

	severity := models.IncidentSeverity(input.Severity)
	if severity == "" {
		severity = models.SeverityMedium
	}
	if !models.ValidSeverity(severity) {
		return nil, models.ErrInvalidSeverity
	}

	incident := &models.Incident{
		Type:        models.NormalizeType(input.Type),
		Description: input.Description,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Severity:    severity,
		Status:      models.StatusReported,
		ReporterID:  input.ReporterID,
	}

	// Media goes first; a storage failure aborts the creation outright so no
	// incident row ever references a missing file.
	if len(input.Media) > 0 {
		stored, err := s.mediaStore.Store(ctx, input.Media, "incidents")
		if err != nil {
			log.WithError(err).Error("Failed to store incident media")
			return nil, fmt.Errorf("service: could not store media: %w", err)
		}
		incident.MediaURL = &stored.URL
	}

	dup, err := s.detector.Check(ctx, incident.Type, incident.Latitude, incident.Longitude)
	if err != nil {
		log.WithError(err).Error("Duplicate detection failed")
		return nil, fmt.Errorf("service: duplicate detection failed: %w", err)
	}
	if dup.IsDuplicate {
		log.WithField("matched_incident_id", dup.MatchedIncidentID).Info("Incident flagged as duplicate")
		incident.Status = models.StatusFlagged
		incident.Description = models.DuplicateMarker + incident.Description
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	s.publish(ctx, log, notify.NewIncidentEvent(incident))

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return incident, nil
}

// List returns a page of incidents with the total and page count. Page and
// page size are clamped to their documented bounds.
func (s *incidentService) List(ctx context.Context, filter models.ListFilter) (*models.IncidentPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = s.cfg.DefaultPageSize
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "List",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
	log.Info("Listing incidents")

	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return &models.IncidentPage{
		Incidents:  incidents,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByID fetches an incident with its votes and notes, via the cache when
// possible.
func (s *incidentService) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetByID",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache lookup failed")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// UpdateStatus applies an administrative status change. Any status may be
// set from any status; admin privilege is the only restriction, enforced at
// the caller boundary. An optional note is recorded as an AdminNote.
// Broadcasts incident:update.
func (s *incidentService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, adminID uuid.UUID, note string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": id,
		"status":      status,
	})
	log.Info("Attempting to update incident status")

	if !models.ValidStatus(status) {
		return nil, models.ErrInvalidStatus
	}

	incident, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		log.WithError(err).Error("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	if note != "" {
		adminNote := &models.AdminNote{
			IncidentID: id,
			AuthorID:   adminID,
			Text:       fmt.Sprintf("Status changed to %s: %s", status, note),
		}
		if err := s.repo.AddNote(ctx, adminNote); err != nil {
			log.WithError(err).Error("Failed to record status change note")
			return nil, fmt.Errorf("service: could not record status note: %w", err)
		}
		incident.Notes = append(incident.Notes, adminNote)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.publish(ctx, log, notify.IncidentUpdateEvent(incident))

	log.Info("Incident status updated successfully")
	return incident, nil
}

// UpdateSeverity applies an administrative severity change and broadcasts
// incident:update.
func (s *incidentService) UpdateSeverity(ctx context.Context, id uuid.UUID, severity models.IncidentSeverity) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateSeverity",
		"incident_id": id,
		"severity":    severity,
	})
	log.Info("Attempting to update incident severity")

	if !models.ValidSeverity(severity) {
		return nil, models.ErrInvalidSeverity
	}

	incident, err := s.repo.UpdateSeverity(ctx, id, severity)
	if err != nil {
		log.WithError(err).Error("Failed to update incident severity in repository")
		return nil, fmt.Errorf("service: could not update incident severity: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.publish(ctx, log, notify.IncidentUpdateEvent(incident))

	log.Info("Incident severity updated successfully")
	return incident, nil
}

// AddNote attaches a standalone admin annotation. It publishes no event and
// does not touch status.
func (s *incidentService) AddNote(ctx context.Context, id, adminID uuid.UUID, text string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AddNote",
		"incident_id": id,
	})
	log.Info("Attempting to add admin note")

	note := &models.AdminNote{
		IncidentID: id,
		AuthorID:   adminID,
		Text:       text,
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		log.WithError(err).Error("Failed to add admin note in repository")
		return nil, fmt.Errorf("service: could not add note: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to reload incident after note")
		return nil, fmt.Errorf("service: could not reload incident: %w", err)
	}

	log.Info("Admin note added successfully")
	return incident, nil
}

// Upvote records a community upvote and returns the incident plus an
// alreadyVoted flag.
//
// Authenticated callers get idempotent votes: the vote row and the counter
// increment commit atomically, and a repeat (or a lost race) reports
// alreadyVoted with the incident unchanged. Crossing the verification
// threshold promotes a REPORTED incident to VERIFIED and broadcasts
// incident:update; a plain increment broadcasts nothing.
//
// Anonymous callers bypass vote rows entirely and are never deduplicated;
// repeated anonymous calls keep incrementing. That is the documented
// contract, abuse vector included. Throttling belongs to the transport
// boundary, not here.
func (s *incidentService) Upvote(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.Incident, bool, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Upvote",
		"incident_id": id,
	})

	if userID == nil {
		log.Info("Recording anonymous upvote")
		incident, err := s.repo.IncrementUpvote(ctx, id)
		if err != nil {
			log.WithError(err).Error("Failed to increment upvote count")
			return nil, false, fmt.Errorf("service: could not record upvote: %w", err)
		}
		if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
		return incident, false, nil
	}

	log = log.WithField("user_id", *userID)
	log.Info("Recording authenticated upvote")

	incident, alreadyVoted, err := s.repo.AddVote(ctx, id, *userID)
	if err != nil {
		log.WithError(err).Error("Failed to record vote")
		return nil, false, fmt.Errorf("service: could not record upvote: %w", err)
	}
	if alreadyVoted {
		log.Info("User already voted, returning current state")
		return incident, true, nil
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	if incident.Status == models.StatusReported && incident.UpvoteCount >= s.cfg.VerificationThreshold {
		log.WithField("upvote_count", incident.UpvoteCount).Info("Verification threshold reached, promoting incident")
		incident, err = s.repo.UpdateStatus(ctx, id, models.StatusVerified)
		if err != nil {
			log.WithError(err).Error("Failed to promote incident to verified")
			return nil, false, fmt.Errorf("service: could not promote incident: %w", err)
		}
		if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
		s.publish(ctx, log, notify.IncidentUpdateEvent(incident))
	}

	return incident, false, nil
}

// Delete removes an incident and, by cascade, its votes and notes.
func (s *incidentService) Delete(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Delete",
		"incident_id": id,
	})
	log.Info("Attempting to delete incident")

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident deleted successfully")
	return nil
}

// Stats returns incident counts by triage state.
func (s *incidentService) Stats(ctx context.Context) (*models.Stats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Stats",
	})

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get stats from repository")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return stats, nil
}

// BroadcastEmergency publishes an admin-triggered emergency:broadcast to all
// subscribers. Unlike lifecycle events, a publish failure is the failure of
// the whole operation.
func (s *incidentService) BroadcastEmergency(ctx context.Context, message string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "BroadcastEmergency",
	})
	log.Info("Broadcasting emergency message")

	if err := s.publisher.Publish(ctx, notify.EmergencyBroadcastEvent(message)); err != nil {
		log.WithError(err).Error("Failed to publish emergency broadcast")
		return fmt.Errorf("service: could not broadcast emergency: %w", err)
	}
	return nil
}
