package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/pkg/response"
)

// HealthHandler serves the service banner and liveness/readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
	version string
}

// NewHealthHandler constructs a health handler. A nil manager reports every
// probe as up.
func NewHealthHandler(manager *monitoring.HealthManager, version string) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager(0)
	}
	return &HealthHandler{manager: manager, version: version}
}

// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"name":    "GrowCoach API",
		"status":  "running",
		"version": h.version,
	})
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	writeHealthReport(c, h.manager.Evaluate(requestContext(c), monitoring.Liveness, monitoring.Readiness))
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.manager.Evaluate(requestContext(c), monitoring.Liveness))
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	writeHealthReport(c, h.manager.Evaluate(requestContext(c), monitoring.Readiness))
}

// writeHealthReport answers 503 only when a probe is down; degraded
// dependencies keep the instance in rotation.
func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
