package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/pkg/metrics"
)

// Metrics records request latency metrics for each HTTP request. Unmatched
// routes share a single label to keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(duration)
	}
}
