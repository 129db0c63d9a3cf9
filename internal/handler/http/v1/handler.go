package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/citywatch/incident_reporting_system/internal/config"
	"github.com/citywatch/incident_reporting_system/internal/media"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/citywatch/incident_reporting_system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondServiceError maps engine errors onto HTTP statuses.
func respondServiceError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		log.WithError(err).Warn("Incident not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidSeverity),
		errors.Is(err, models.ErrMediaRejected):
		log.WithError(err).Warn("Request rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Service call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Submit an incident report
// @Description Submit a geotagged incident report with an optional media attachment. Duplicates are flagged, never rejected.
// @Tags Incidents
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Incident type"
// @Param description formData string true "Description (10-2000 chars)"
// @Param latitude formData number true "Latitude"
// @Param longitude formData number true "Longitude"
// @Param severity formData string false "Severity (LOW|MEDIUM|HIGH)"
// @Param media formData file false "Media attachment (image or video, max 10 MB)"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if err := c.ShouldBind(&input); err != nil {
		log.WithError(err).Warn("Failed to bind request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mediaBytes, err := h.readMediaFile(c)
	if err != nil {
		log.WithError(err).Warn("Failed to read media attachment")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media attachment"})
		return
	}

	incident, err := h.incidentService.Create(c.Request.Context(), service.CreateIncidentInput{
		Type:        input.Type,
		Description: input.Description,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Severity:    input.Severity,
		Media:       mediaBytes,
		ReporterID:  currentUserID(c),
	})
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// readMediaFile returns the optional "media" form file as bytes. The read is
// capped one byte above the limit so oversized uploads still reach the media
// store's own rejection.
func (h *Handler) readMediaFile(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("media")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, media.MaxMediaBytes+1))
}

// @Summary List incidents
// @Description List incidents with optional status/type/severity filters, an optional bounding box, sorting and pagination.
// @Tags Incidents
// @Produce json
// @Param status query string false "Exact status filter"
// @Param type query string false "Incident type filter (case-insensitive)"
// @Param severity query string false "Severity filter"
// @Param minLat query number false "Bounding box south edge"
// @Param maxLat query number false "Bounding box north edge"
// @Param minLon query number false "Bounding box west edge"
// @Param maxLon query number false "Bounding box east edge"
// @Param sortBy query string false "Sort key (createdAt|updatedAt|severity|upvoteCount)" default(createdAt)
// @Param sortDir query string false "Sort direction (asc|desc)" default(desc)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size (1-100)" default(20)
// @Success 200 {object} ListIncidentsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "0"))

	filter := models.ListFilter{
		Status:   models.IncidentStatus(c.Query("status")),
		Type:     models.IncidentType(c.Query("type")),
		Severity: models.IncidentSeverity(c.Query("severity")),
		MinLat:   queryFloat(c, "minLat"),
		MaxLat:   queryFloat(c, "maxLat"),
		MinLon:   queryFloat(c, "minLon"),
		MaxLon:   queryFloat(c, "maxLon"),
		SortBy:   c.DefaultQuery("sortBy", models.SortByCreatedAt),
		SortDir:  c.DefaultQuery("sortDir", models.SortDesc),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.incidentService.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PageToListResponse(result))
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

// @Summary Get incident by ID
// @Description Get a single incident with its votes and admin notes.
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetByID(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update incident status
// @Description Administrative status change; any status may be set from any status. An optional note is recorded against the incident.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body UpdateStatusRequest true "Status change request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Admin privilege required"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := currentUserID(c)
	if adminID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	incident, err := h.incidentService.UpdateStatus(c.Request.Context(), id, models.IncidentStatus(input.Status), *adminID, input.Note)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update incident severity
// @Description Administrative severity change.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body UpdateSeverityRequest true "Severity change request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/severity [patch]
func (h *Handler) updateSeverity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "updateSeverity").WithField("id", id)

	var input UpdateSeverityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.UpdateSeverity(c.Request.Context(), id, models.IncidentSeverity(input.Severity))
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Add an admin note
// @Description Attach a standalone admin annotation to an incident.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body AddNoteRequest true "Note request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/notes [post]
func (h *Handler) addNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "addNote").WithField("id", id)

	var input AddNoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := currentUserID(c)
	if adminID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	incident, err := h.incidentService.AddNote(c.Request.Context(), id, *adminID, input.Text)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Upvote an incident
// @Description Upvote an incident. Authenticated callers are deduplicated; a repeat reports already_voted instead of failing. Anonymous callers always increment.
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} UpvoteResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/upvote [post]
func (h *Handler) upvoteIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "upvoteIncident").WithField("id", id)

	incident, alreadyVoted, err := h.incidentService.Upvote(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, UpvoteResponse{
		Incident:     ModelToIncidentResponse(incident),
		AlreadyVoted: alreadyVoted,
	})
}

// @Summary Delete an incident
// @Description Administrative deletion; votes and notes cascade.
// @Tags Incidents
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)

	if err := h.incidentService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Incident statistics
// @Description Incident counts by triage state.
// @Tags Incidents
// @Produce json
// @Success 200 {object} StatsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.incidentService.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, StatsToResponse(stats))
}

// @Summary Emergency broadcast
// @Description Broadcast a free-text emergency message to all subscribers.
// @Tags Broadcast
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BroadcastRequest true "Broadcast request"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Admin privilege required"
// @Router /broadcast [post]
func (h *Handler) broadcastEmergency(c *gin.Context) {
	log := h.logger.WithField("method", "broadcastEmergency")

	var input BroadcastRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.incidentService.BroadcastEmergency(c.Request.Context(), input.Message); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "broadcast queued"})
}

// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
