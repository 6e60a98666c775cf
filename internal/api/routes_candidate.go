package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/models"
)

func registerCandidateRoutes(r *gin.Engine, h *handlers.CandidateHandler, requireAuth gin.HandlerFunc) {
	candidate := r.Group("/candidate")
	candidate.POST("/signup", h.Signup)

	member := roleGroup(candidate, requireAuth, models.RoleCandidate)
	{
		member.GET("/profile", h.Profile)
		member.PUT("/update", h.Update)
		member.GET("/completion", h.Completion)
		member.GET("/dashboard", h.Dashboard)
		member.GET("/applications", h.Applications)
		member.GET("/jobs", h.Jobs)
		member.GET("/job/:id", h.Job)
		member.GET("/saved-jobs", h.SavedJobs)
		member.POST("/save-job", h.SaveJob)
		member.POST("/unsave-job", h.UnsaveJob)
	}
}
