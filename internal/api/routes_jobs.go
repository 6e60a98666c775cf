package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/models"
)

func registerJobRoutes(r *gin.Engine, h *handlers.JobHandler, requireAuth gin.HandlerFunc) {
	r.GET("/jobs", h.List)

	job := r.Group("/job")
	job.GET("", h.List)
	job.GET("/", h.List)
	job.POST("/:id/apply", requireAuth, middleware.RequireRole(models.RoleCandidate), h.Apply)
	job.POST("/create", requireAuth, middleware.RequireRole(models.RoleCompany), h.CreateDraft)
}
