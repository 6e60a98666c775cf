package checks

import (
	"context"
	"strings"
	"time"

	"github.com/growcoach/jobboard/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance verifies that background jobs run successfully within the expected interval.
// When maxAge is zero, a default window (6h) is used.
func Maintenance(tracker *monitoring.MaintenanceTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if tracker == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}
		jobs := tracker.Snapshot()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no maintenance jobs registered",
				Duration: time.Since(start),
			}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var notes []string

		for _, job := range jobs {
			if job.TotalRuns == 0 {
				notes = append(notes, job.Job+": pending first run")
				continue
			}
			if job.ConsecutiveFailures > 0 {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": "+job.LastError)
			}
			if now.Sub(job.LastRunAt) > maxAge {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(notes, "; "),
			Duration: time.Since(start),
		}
	})
}

func worstStatus(current, candidate monitoring.ProbeStatus) monitoring.ProbeStatus {
	if current == monitoring.StatusDown || candidate == monitoring.StatusDown {
		return monitoring.StatusDown
	}
	if current == monitoring.StatusDegraded || candidate == monitoring.StatusDegraded {
		return monitoring.StatusDegraded
	}
	return monitoring.StatusUp
}
