package service

import (
	"context"
	"fmt"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/config"
	"github.com/citywatch/incident_reporting_system/internal/geo"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// candidateLimit caps how many recent same-type incidents the coarse query
// returns for the precise pass.
const candidateLimit = 20

// DuplicateResult is the outcome of a near-duplicate check. It only affects
// the initial status and description of a new report; creation is never
// blocked.
type DuplicateResult struct {
	IsDuplicate       bool       `json:"is_duplicate"`
	MatchedIncidentID *uuid.UUID `json:"matched_incident_id,omitempty"`
	Reason            string     `json:"reason,omitempty"`
}

// DuplicateDetector finds recent nearby incidents of the same type in two
// phases: a cheap bounding-box query against the store, then a precise
// great-circle distance check per candidate. The two-phase shape avoids
// trigonometry on every row and must be preserved.
//
// Known limitation: the bounding box degrades near the poles, where the
// longitude delta is clamped to a full hemisphere.
type DuplicateDetector struct {
	repo   IncidentRepository
	logger *logrus.Logger
	cfg    *config.Config
}

func NewDuplicateDetector(repo IncidentRepository, logger *logrus.Logger, cfg *config.Config) *DuplicateDetector {
	return &DuplicateDetector{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
	}
}

// Check reports whether a near-duplicate of the given report already exists:
// same type, created within the configured window, within the configured
// distance, and not already RESOLVED or FLAGGED. The most recent matching
// candidate wins.
func (d *DuplicateDetector) Check(ctx context.Context, incidentType models.IncidentType, lat, lon float64) (*DuplicateResult, error) {
	log := d.logger.WithFields(logrus.Fields{
		"service": "duplicate_detector",
		"method":  "Check",
		"type":    incidentType,
	})

	since := time.Now().Add(-d.cfg.DuplicateWindow)
	box := geo.NewBoundingBox(lat, lon, d.cfg.DuplicateDistanceMeters)

	candidates, err := d.repo.FindRecentCandidates(ctx, incidentType, box, since, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidates: %w", err)
	}

	// Candidates arrive in descending recency; the first one inside the true
	// radius is the match.
	for _, candidate := range candidates {
		distance := geo.Distance(lat, lon, candidate.Latitude, candidate.Longitude)
		if distance <= d.cfg.DuplicateDistanceMeters {
			id := candidate.ID
			log.WithFields(logrus.Fields{
				"matched_incident_id": id,
				"distance_meters":     distance,
			}).Info("Duplicate candidate matched")
			return &DuplicateResult{
				IsDuplicate:       true,
				MatchedIncidentID: &id,
				Reason: fmt.Sprintf("similar %s incident %s reported %.0f m away within the last %s",
					incidentType, id, distance, d.cfg.DuplicateWindow),
			}, nil
		}
	}

	return &DuplicateResult{IsDuplicate: false}, nil
}
