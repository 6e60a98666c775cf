package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/models"
)

func registerAdminRoutes(r *gin.Engine, h *handlers.AdminHandler, requireAuth gin.HandlerFunc) {
	admin := roleGroup(r.Group("/admin"), requireAuth, models.RoleAdmin)

	admin.GET("/users", h.Users)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.PUT("/candidates/:id/status", h.CandidateStatus)
	admin.PUT("/companies/:id/status", h.CompanyStatus)
	admin.POST("/candidates/:id/approve", h.ApproveCandidate)
	admin.GET("/candidates/:id/admin-cv", h.AdminCV)
	admin.POST("/candidates/:id/admin-cv", h.UploadAdminCV)
	admin.GET("/stats", h.Stats)

	notifications := admin.Group("/notifications")
	{
		notifications.GET("", h.Notifications)
		notifications.DELETE("", h.ClearNotifications)
		notifications.PUT("/bulk-approve", h.BulkApprove)
		notifications.PUT("/bulk-reject", h.BulkReject)
		notifications.PUT("/:id/approve", h.ApproveNotification)
		notifications.PUT("/:id/reject", h.RejectNotification)
		notifications.PUT("/:id/mark-read", h.MarkRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}
}
