package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/growcoach/jobboard/pkg/metrics"
)

// MaintenanceJob summarises the run history of one background job.
type MaintenanceJob struct {
	Job                 string    `json:"job"`
	TotalRuns           uint64    `json:"total_runs"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastResult          string    `json:"last_result"`
	LastError           string    `json:"last_error,omitempty"`
	LastRemoved         int64     `json:"last_removed"`
}

// MaintenanceTracker remembers the outcome of maintenance jobs for the
// readiness probe and exports counters to Prometheus.
type MaintenanceTracker struct {
	mu   sync.RWMutex
	jobs map[string]*MaintenanceJob
	now  func() time.Time
}

// NewMaintenanceTracker returns an empty tracker.
func NewMaintenanceTracker() *MaintenanceTracker {
	return &MaintenanceTracker{
		jobs: make(map[string]*MaintenanceJob),
		now:  time.Now,
	}
}

// Register makes a job visible before its first run.
func (t *MaintenanceTracker) Register(job string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &MaintenanceJob{Job: job}
	}
}

// Record stores the outcome of a run. A nil err counts as success.
func (t *MaintenanceTracker) Record(job string, removed int64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.jobs[job]
	if !ok {
		entry = &MaintenanceJob{Job: job}
		t.jobs[job] = entry
	}
	entry.TotalRuns++
	entry.LastRunAt = t.now()
	entry.LastResult = result
	entry.LastRemoved = removed
	if err != nil {
		entry.ConsecutiveFailures++
		entry.LastError = err.Error()
		return
	}
	entry.ConsecutiveFailures = 0
	entry.LastError = ""
}

// Snapshot returns a copy of every job ordered by name.
func (t *MaintenanceTracker) Snapshot() []MaintenanceJob {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]MaintenanceJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
