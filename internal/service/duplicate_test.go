package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/geo"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/citywatch/incident_reporting_system/internal/service"
	"github.com/citywatch/incident_reporting_system/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestDetector(t *testing.T) (*service.DuplicateDetector, *mocks.MockIncidentRepository) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIncidentRepository(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	return service.NewDuplicateDetector(mockRepo, logger, testConfig()), mockRepo
}

func TestDetectorCheck_NoCandidates(t *testing.T) {
	detector, mockRepo := newTestDetector(t)

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFlood, gomock.Any(), gomock.Any(), 20).
		Return(nil, nil).Times(1)

	result, err := detector.Check(context.Background(), models.TypeFlood, 40.0, -75.0)

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Nil(t, result.MatchedIncidentID)
}

func TestDetectorCheck_QueryUsesWindowAndBox(t *testing.T) {
	detector, mockRepo := newTestDetector(t)

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeAccident, gomock.Any(), gomock.Any(), 20).
		DoAndReturn(func(_ context.Context, _ models.IncidentType, box geo.BoundingBox, since time.Time, _ int) ([]*models.Incident, error) {
			// The box must contain the report point and the window must be
			// ten minutes back from now.
			assert.True(t, box.MinLat < 40.0 && box.MaxLat > 40.0)
			assert.True(t, box.MinLon < -75.0 && box.MaxLon > -75.0)
			assert.WithinDuration(t, time.Now().Add(-10*time.Minute), since, 5*time.Second)
			return nil, nil
		}).Times(1)

	_, err := detector.Check(context.Background(), models.TypeAccident, 40.0, -75.0)

	require.NoError(t, err)
}

func TestDetectorCheck_MostRecentMatchWins(t *testing.T) {
	detector, mockRepo := newTestDetector(t)

	newer := &models.Incident{
		ID:        uuid.New(),
		Latitude:  40.0003,
		Longitude: -75.0003,
		CreatedAt: time.Now().Add(-1 * time.Minute),
	}
	older := &models.Incident{
		ID:        uuid.New(),
		Latitude:  40.0001,
		Longitude: -75.0001,
		CreatedAt: time.Now().Add(-8 * time.Minute),
	}

	// Descending recency, both inside the radius.
	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFire, gomock.Any(), gomock.Any(), 20).
		Return([]*models.Incident{newer, older}, nil).Times(1)

	result, err := detector.Check(context.Background(), models.TypeFire, 40.0, -75.0)

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	require.NotNil(t, result.MatchedIncidentID)
	assert.Equal(t, newer.ID, *result.MatchedIncidentID)
	assert.Contains(t, result.Reason, "FIRE")
}

func TestDetectorCheck_CandidateOutsideRadius(t *testing.T) {
	detector, mockRepo := newTestDetector(t)

	// Inside the bounding box corner, outside the 200 m circle.
	corner := &models.Incident{
		ID:        uuid.New(),
		Latitude:  40.0017,
		Longitude: -74.9978,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFire, gomock.Any(), gomock.Any(), 20).
		Return([]*models.Incident{corner}, nil).Times(1)

	result, err := detector.Check(context.Background(), models.TypeFire, 40.0, -75.0)

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestDetectorCheck_RepoErrorPropagates(t *testing.T) {
	detector, mockRepo := newTestDetector(t)

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down")).Times(1)

	_, err := detector.Check(context.Background(), models.TypeFire, 40.0, -75.0)

	require.Error(t, err)
}
