package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS builds the cross-origin policy. An empty origin list allows any origin
// without credentials.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	config.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
	config.MaxAge = 12 * time.Hour

	var allowed []string
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowed = nil
			break
		}
		if origin != "" {
			allowed = append(allowed, origin)
		}
	}

	if len(allowed) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowed
		config.AllowCredentials = true
	}
	return cors.New(config)
}
