package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/config"
	"github.com/citywatch/incident_reporting_system/internal/media"
	mediamocks "github.com/citywatch/incident_reporting_system/internal/media/mocks"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/citywatch/incident_reporting_system/internal/notify"
	notifymocks "github.com/citywatch/incident_reporting_system/internal/notify/mocks"
	"github.com/citywatch/incident_reporting_system/internal/service"
	"github.com/citywatch/incident_reporting_system/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	return &config.Config{
		VerificationThreshold:   5,
		DuplicateDistanceMeters: 200,
		DuplicateWindow:         10 * time.Minute,
		DefaultPageSize:         20,
	}
}

// newTestIncidentService wires the engine to mocked collaborators.
func newTestIncidentService(t *testing.T) (service.IncidentService, *mocks.MockIncidentRepository, *notifymocks.MockEventPublisher, *mediamocks.MockStore) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIncidentRepository(ctrl)
	mockPublisher := notifymocks.NewMockEventPublisher(ctrl)
	mockMedia := mediamocks.NewMockStore(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Silence logs in tests

	svc := service.NewIncidentService(mockRepo, logger, testConfig(), mockPublisher, mockMedia)
	return svc, mockRepo, mockPublisher, mockMedia
}

func validInput() service.CreateIncidentInput {
	return service.CreateIncidentInput{
		Type:        "FIRE",
		Description: "Smoke rising from the old mill on River Road",
		Latitude:    40.0,
		Longitude:   -75.0,
	}
}

func TestCreate_FreshIncident(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFire, gomock.Any(), gomock.Any(), 20).
		Return(nil, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			incident.CreatedAt = time.Now()
			incident.UpdatedAt = incident.CreatedAt
			return nil
		}).Times(1)
	mockPublisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event notify.Event) error {
			assert.Equal(t, notify.EventIncidentNew, event.Type)
			assert.False(t, event.Timestamp.IsZero())
			return nil
		}).Times(1)

	incident, err := svc.Create(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, incident.Status)
	assert.Equal(t, models.SeverityMedium, incident.Severity)
	assert.Equal(t, models.TypeFire, incident.Type)
	assert.NotEqual(t, uuid.Nil, incident.ID)
}

func TestCreate_DuplicateFlaggedNotRejected(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	// ~70 m from the new report, well inside the 200 m radius.
	earlier := &models.Incident{
		ID:        uuid.New(),
		Type:      models.TypeFire,
		Latitude:  40.0005,
		Longitude: -75.0005,
		Status:    models.StatusReported,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFire, gomock.Any(), gomock.Any(), 20).
		Return([]*models.Incident{earlier}, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			return nil
		}).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	input := validInput()
	incident, err := svc.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, incident.Status)
	assert.Equal(t, models.DuplicateMarker+input.Description, incident.Description)
}

func TestCreate_CandidateBeyondRadiusNotDuplicate(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Inside the coarse bounding box corner but ~265 m away on the sphere.
	corner := &models.Incident{
		ID:        uuid.New(),
		Type:      models.TypeFire,
		Latitude:  40.0017,
		Longitude: -74.9978,
		Status:    models.StatusReported,
		CreatedAt: time.Now().Add(-time.Minute),
	}

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeFire, gomock.Any(), gomock.Any(), 20).
		Return([]*models.Incident{corner}, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			return nil
		}).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	input := validInput()
	incident, err := svc.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, incident.Status)
	assert.Equal(t, input.Description, incident.Description)
}

func TestCreate_MediaFailureAbortsCreation(t *testing.T) {
	svc, mockRepo, mockPublisher, mockMedia := newTestIncidentService(t)
	ctx := context.Background()

	mockMedia.EXPECT().
		Store(gomock.Any(), gomock.Any(), "incidents").
		Return(nil, models.ErrMediaRejected).Times(1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	input := validInput()
	input.Media = []byte("not an image")
	_, err := svc.Create(ctx, input)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMediaRejected)
}

func TestCreate_MediaURLAttached(t *testing.T) {
	svc, mockRepo, mockPublisher, mockMedia := newTestIncidentService(t)
	ctx := context.Background()

	mockMedia.EXPECT().
		Store(gomock.Any(), gomock.Any(), "incidents").
		Return(&media.StoredMedia{URL: "/media/incidents/abc.png"}, nil).Times(1)
	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			return nil
		}).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	input := validInput()
	input.Media = []byte{0x89, 0x50, 0x4E, 0x47}
	incident, err := svc.Create(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, incident.MediaURL)
	assert.Equal(t, "/media/incidents/abc.png", *incident.MediaURL)
}

func TestCreate_InvalidSeverity(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	input := validInput()
	input.Severity = "CRITICAL"
	_, err := svc.Create(ctx, input)

	assert.ErrorIs(t, err, models.ErrInvalidSeverity)
}

func TestCreate_UnknownTypeFallsBackToOther(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), models.TypeOther, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			return nil
		}).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	input := validInput()
	input.Type = "graffiti"
	incident, err := svc.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, models.TypeOther, incident.Type)
}

func TestCreate_PublishFailureDoesNotFailCreation(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().
		FindRecentCandidates(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).Times(1)
	mockRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			incident.ID = uuid.New()
			return nil
		}).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(1)

	_, err := svc.Create(ctx, validInput())

	assert.NoError(t, err)
}

func TestList_TotalPagesRoundsUp(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	incidents := make([]*models.Incident, 10)
	for i := range incidents {
		incidents[i] = &models.Incident{ID: uuid.New()}
	}

	mockRepo.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return(incidents, int64(25), nil).Times(1)

	page, err := svc.List(ctx, models.ListFilter{Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestList_ClampsPagination(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter models.ListFilter) ([]*models.Incident, int64, error) {
			assert.Equal(t, 1, filter.Page)
			assert.Equal(t, 20, filter.PageSize)
			return nil, 0, nil
		}).Times(1)

	page, err := svc.List(ctx, models.ListFilter{Page: 0, PageSize: 500})

	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 0, page.TotalPages)
}

func TestGetByID_CacheHit(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	cached := &models.Incident{ID: incidentID}

	mockRepo.EXPECT().GetIncidentFromCache(gomock.Any(), incidentID).Return(cached, nil).Times(1)
	mockRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	incident, err := svc.GetByID(ctx, incidentID)

	require.NoError(t, err)
	assert.Equal(t, incidentID, incident.ID)
}

func TestGetByID_CacheMissFillsCache(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	stored := &models.Incident{ID: incidentID}

	mockRepo.EXPECT().GetIncidentFromCache(gomock.Any(), incidentID).Return(nil, nil).Times(1)
	mockRepo.EXPECT().GetByID(gomock.Any(), incidentID).Return(stored, nil).Times(1)
	mockRepo.EXPECT().SetIncidentCache(gomock.Any(), stored).Return(nil).Times(1)

	incident, err := svc.GetByID(ctx, incidentID)

	require.NoError(t, err)
	assert.Equal(t, incidentID, incident.ID)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	mockRepo.EXPECT().GetIncidentFromCache(gomock.Any(), incidentID).Return(nil, nil).Times(1)
	mockRepo.EXPECT().GetByID(gomock.Any(), incidentID).Return(nil, models.ErrNotFound).Times(1)

	_, err := svc.GetByID(ctx, incidentID)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatus_WithNote(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	adminID := uuid.New()
	updated := &models.Incident{ID: incidentID, Status: models.StatusResolved}

	mockRepo.EXPECT().UpdateStatus(gomock.Any(), incidentID, models.StatusResolved).Return(updated, nil).Times(1)
	mockRepo.EXPECT().
		AddNote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, note *models.AdminNote) error {
			assert.Equal(t, incidentID, note.IncidentID)
			assert.Equal(t, adminID, note.AuthorID)
			assert.Equal(t, "Status changed to RESOLVED: crew finished repairs", note.Text)
			return nil
		}).Times(1)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event notify.Event) error {
			assert.Equal(t, notify.EventIncidentUpdate, event.Type)
			require.NotNil(t, event.IncidentID)
			assert.Equal(t, incidentID, *event.IncidentID)
			return nil
		}).Times(1)

	incident, err := svc.UpdateStatus(ctx, incidentID, models.StatusResolved, adminID, "crew finished repairs")

	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, incident.Status)
	require.Len(t, incident.Notes, 1)
}

func TestUpdateStatus_WithoutNote(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	updated := &models.Incident{ID: incidentID, Status: models.StatusInProgress}

	mockRepo.EXPECT().UpdateStatus(gomock.Any(), incidentID, models.StatusInProgress).Return(updated, nil).Times(1)
	mockRepo.EXPECT().AddNote(gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	incident, err := svc.UpdateStatus(ctx, incidentID, models.StatusInProgress, uuid.New(), "")

	require.NoError(t, err)
	assert.Empty(t, incident.Notes)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.UpdateStatus(ctx, uuid.New(), "ARCHIVED", uuid.New(), "")

	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestUpdateSeverity_Success(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	updated := &models.Incident{ID: incidentID, Severity: models.SeverityHigh}

	mockRepo.EXPECT().UpdateSeverity(gomock.Any(), incidentID, models.SeverityHigh).Return(updated, nil).Times(1)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	incident, err := svc.UpdateSeverity(ctx, incidentID, models.SeverityHigh)

	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, incident.Severity)
}

func TestAddNote_NoEventPublished(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	adminID := uuid.New()
	reloaded := &models.Incident{ID: incidentID, Notes: []*models.AdminNote{{Text: "called the utility company"}}}

	mockRepo.EXPECT().
		AddNote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, note *models.AdminNote) error {
			assert.Equal(t, "called the utility company", note.Text)
			return nil
		}).Times(1)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockRepo.EXPECT().GetByID(gomock.Any(), incidentID).Return(reloaded, nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	incident, err := svc.AddNote(ctx, incidentID, adminID, "called the utility company")

	require.NoError(t, err)
	require.Len(t, incident.Notes, 1)
}

func TestUpvote_AnonymousAlwaysIncrements(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Anonymous calls never create vote rows and never promote, even at the
	// threshold.
	incident := &models.Incident{ID: incidentID, Status: models.StatusReported, UpvoteCount: 7}

	mockRepo.EXPECT().IncrementUpvote(gomock.Any(), incidentID).Return(incident, nil).Times(1)
	mockRepo.EXPECT().AddVote(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, alreadyVoted, err := svc.Upvote(ctx, incidentID, nil)

	require.NoError(t, err)
	assert.False(t, alreadyVoted)
	assert.Equal(t, 7, result.UpvoteCount)
	assert.Equal(t, models.StatusReported, result.Status)
}

func TestUpvote_BelowThresholdNoPromotion(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	userID := uuid.New()
	incident := &models.Incident{ID: incidentID, Status: models.StatusReported, UpvoteCount: 4}

	mockRepo.EXPECT().AddVote(gomock.Any(), incidentID, userID).Return(incident, false, nil).Times(1)
	mockRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, alreadyVoted, err := svc.Upvote(ctx, incidentID, &userID)

	require.NoError(t, err)
	assert.False(t, alreadyVoted)
	assert.Equal(t, models.StatusReported, result.Status)
}

func TestUpvote_ThresholdPromotesToVerified(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	userID := uuid.New()
	atThreshold := &models.Incident{ID: incidentID, Status: models.StatusReported, UpvoteCount: 5}
	verified := &models.Incident{ID: incidentID, Status: models.StatusVerified, UpvoteCount: 5}

	mockRepo.EXPECT().AddVote(gomock.Any(), incidentID, userID).Return(atThreshold, false, nil).Times(1)
	mockRepo.EXPECT().UpdateStatus(gomock.Any(), incidentID, models.StatusVerified).Return(verified, nil).Times(1)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(2)
	mockPublisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event notify.Event) error {
			assert.Equal(t, notify.EventIncidentUpdate, event.Type)
			return nil
		}).Times(1)

	result, alreadyVoted, err := svc.Upvote(ctx, incidentID, &userID)

	require.NoError(t, err)
	assert.False(t, alreadyVoted)
	assert.Equal(t, models.StatusVerified, result.Status)
}

func TestUpvote_AlreadyVotedIsIdempotent(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	userID := uuid.New()
	incident := &models.Incident{ID: incidentID, Status: models.StatusReported, UpvoteCount: 1}

	mockRepo.EXPECT().AddVote(gomock.Any(), incidentID, userID).Return(incident, true, nil).Times(1)
	mockRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), gomock.Any()).Times(0)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, alreadyVoted, err := svc.Upvote(ctx, incidentID, &userID)

	require.NoError(t, err)
	assert.True(t, alreadyVoted)
	assert.Equal(t, 1, result.UpvoteCount)
}

func TestUpvote_VerifiedIncidentNotRepromoted(t *testing.T) {
	svc, mockRepo, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	userID := uuid.New()
	incident := &models.Incident{ID: incidentID, Status: models.StatusVerified, UpvoteCount: 9}

	mockRepo.EXPECT().AddVote(gomock.Any(), incidentID, userID).Return(incident, false, nil).Times(1)
	mockRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, _, err := svc.Upvote(ctx, incidentID, &userID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, result.Status)
}

func TestUpvote_NotFound(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	userID := uuid.New()

	mockRepo.EXPECT().AddVote(gomock.Any(), incidentID, userID).Return(nil, false, models.ErrNotFound).Times(1)

	_, _, err := svc.Upvote(ctx, incidentID, &userID)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete_Success(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	mockRepo.EXPECT().Delete(gomock.Any(), incidentID).Return(nil).Times(1)
	mockRepo.EXPECT().InvalidateIncidentCache(gomock.Any(), incidentID).Return(nil).Times(1)

	assert.NoError(t, svc.Delete(ctx, incidentID))
}

func TestDelete_NotFound(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	mockRepo.EXPECT().Delete(gomock.Any(), incidentID).Return(models.ErrNotFound).Times(1)

	err := svc.Delete(ctx, incidentID)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStats_Passthrough(t *testing.T) {
	svc, mockRepo, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockRepo.EXPECT().
		Stats(gomock.Any()).
		Return(&models.Stats{Total: 12, Pending: 5, Active: 3, Resolved: 2}, nil).Times(1)

	stats, err := svc.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Total)
	assert.Equal(t, int64(5), stats.Pending)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(2), stats.Resolved)
}

func TestBroadcastEmergency_Success(t *testing.T) {
	svc, _, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockPublisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event notify.Event) error {
			assert.Equal(t, notify.EventEmergencyBroadcast, event.Type)
			payload, ok := event.Payload.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, "Evacuate the riverfront", payload["message"])
			return nil
		}).Times(1)

	assert.NoError(t, svc.BroadcastEmergency(ctx, "Evacuate the riverfront"))
}

func TestBroadcastEmergency_PublishFailurePropagates(t *testing.T) {
	svc, _, mockPublisher, _ := newTestIncidentService(t)
	ctx := context.Background()

	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(1)

	err := svc.BroadcastEmergency(ctx, "Evacuate the riverfront")

	require.Error(t, err)
}
