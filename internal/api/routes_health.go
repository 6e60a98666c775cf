package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/app"
	"github.com/growcoach/jobboard/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, health *handlers.HealthHandler) {
	r.GET("/", health.Root)

	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		r.GET("/health/live", disabledHealthHandler)
		r.GET("/health/ready", disabledHealthHandler)
		return
	}

	r.GET("/health", health.Health)
	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
