package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by method (password|google) and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// Registrations counts new accounts by role.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_registrations_total",
			Help: "Total number of account registrations",
		},
		[]string{"role"},
	)

	// WorkflowActions counts status workflow actions by outcome (applied|invalid|not_found|error).
	WorkflowActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_workflow_actions_total",
			Help: "Total number of account status workflow actions",
		},
		[]string{"action", "result"},
	)

	// Applications counts job application attempts (submitted|duplicate).
	Applications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_job_applications_total",
			Help: "Total number of job application attempts",
		},
		[]string{"result"},
	)

	// EmailDeliveries counts outbound email attempts by kind and result.
	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_email_deliveries_total",
			Help: "Total number of outbound email attempts",
		},
		[]string{"kind", "result"},
	)

	// MaintenanceRuns counts maintenance jobs by job name and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growcoach_maintenance_runs_total",
			Help: "Total number of maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "growcoach_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
