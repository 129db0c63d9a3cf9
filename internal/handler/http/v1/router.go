package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all API v1 routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	optionalAuth := OptionalJWTAuthMiddleware(h.cfg, h.logger)
	requireAuth := JWTAuthMiddleware(h.cfg, h.logger)
	requireAdmin := RequireAdmin(h.logger)

	incidents := api.Group("/incidents")
	{
		incidents.POST("", optionalAuth, h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/upvote", optionalAuth, h.upvoteIncident)

		admin := incidents.Group("", requireAuth, requireAdmin)
		{
			admin.PATCH("/:id/status", h.updateStatus)
			admin.PATCH("/:id/severity", h.updateSeverity)
			admin.POST("/:id/notes", h.addNote)
			admin.DELETE("/:id", h.deleteIncident)
		}
	}

	api.POST("/broadcast", requireAuth, requireAdmin, h.broadcastEmergency)

	api.GET("/system/health", h.healthCheck)
}
