package checks

import (
	"context"
	"time"

	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/monitoring"
)

// Cache probes the shared cache. A failing cache degrades the service rather
// than taking it down since callers fall back to the database.
func Cache(name string, pinger cache.Pinger) monitoring.Check {
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if pinger == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "not configured"}
		}
		if err := pinger.Ping(ctx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
