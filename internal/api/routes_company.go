package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/models"
)

func registerCompanyRoutes(r *gin.Engine, h *handlers.CompanyHandler, requireAuth gin.HandlerFunc) {
	company := r.Group("/company")
	company.POST("/signup", h.Signup)

	member := roleGroup(company, requireAuth, models.RoleCompany)
	{
		member.GET("/profile", h.Profile)
		member.PUT("/profile", h.UpdateProfile)
		member.PUT("/update", h.UpdateProfile)
		member.GET("/candidates", h.Candidates)
		member.GET("/verification-status", h.VerificationStatus)
		member.POST("/request-verification", h.RequestVerification)

		member.GET("/jobs", h.Jobs)
		member.POST("/jobs", h.CreateJob)
		member.PUT("/jobs/:id", h.UpdateJob)
		member.PUT("/jobs/:id/status", h.UpdateJobStatus)
		member.GET("/jobs/:id/applicants", h.Applicants)
	}
}
