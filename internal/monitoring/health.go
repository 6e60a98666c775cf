package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// Probe selects which endpoint a check answers for.
type Probe string

const (
	// Liveness checks only what the process itself owns (upload directory).
	Liveness Probe = "live"
	// Readiness checks the dependencies requests need (database, cache, cron).
	Readiness Probe = "ready"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport is the payload of /health, /health/live and /health/ready.
// Success stays true while the service is usable: a degraded cache or a late
// maintenance run still serves traffic.
type HealthReport struct {
	Success   bool          `json:"success"`
	Status    ProbeStatus   `json:"status"`
	Checks    []ProbeResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Check is a named dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck builds a check. A nil fn always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// DefaultCheckTimeout bounds each probe when the manager has no explicit timeout.
const DefaultCheckTimeout = 3 * time.Second

// HealthManager holds the GrowCoach probes and evaluates them concurrently.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[Probe][]Check
	timeout time.Duration
	now     func() time.Time
}

// NewHealthManager returns a manager whose probes are each bounded by
// timeout (DefaultCheckTimeout when zero).
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &HealthManager{
		checks:  make(map[Probe][]Check),
		timeout: timeout,
		now:     time.Now,
	}
}

// Register adds checks to a probe. A check with the name of an existing one
// replaces it, so re-wiring a dependency never duplicates its row.
func (m *HealthManager) Register(probe Probe, checks ...Check) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, check := range checks {
		if check.Name == "" {
			continue
		}
		existing := m.checks[probe]
		replaced := false
		for i := range existing {
			if existing[i].Name == check.Name {
				existing[i] = check
				replaced = true
				break
			}
		}
		if !replaced {
			m.checks[probe] = append(existing, check)
		}
	}
}

// Evaluate runs the checks of every listed probe in registration order and
// folds them into one report.
func (m *HealthManager) Evaluate(ctx context.Context, probes ...Probe) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.RLock()
	var checks []Check
	for _, probe := range probes {
		checks = append(checks, m.checks[probe]...)
	}
	m.mu.RUnlock()

	results := make([]ProbeResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = runCheck(ctx, check, m.timeout)
		}(i, check)
	}
	wg.Wait()

	report := HealthReport{Status: overallStatus(results), Checks: results, CheckedAt: m.now().UTC()}
	report.Success = report.Status != StatusDown
	return report
}

func overallStatus(results []ProbeResult) ProbeStatus {
	status := StatusUp
	for _, result := range results {
		switch result.Status {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

func runCheck(ctx context.Context, check Check, timeout time.Duration) (result ProbeResult) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(ctx)
}

// ResultFromError maps a probe error to a result. Timeouts and cancellations
// are degraded rather than down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{Component: component, Status: status, Details: err.Error(), Duration: duration}
}
