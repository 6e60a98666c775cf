package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/pkg/logger"
)

// Job names reported to the tracker and the maintenance_runs metric.
const (
	JobResetCodes    = "reset_codes"
	JobRevokedTokens = "revoked_tokens"
	JobCacheEntries  = "cache_entries"
)

const (
	defaultResetCodeSpec = "@hourly"
	defaultTokenSpec     = "@hourly"
	defaultCacheSpec     = "*/15 * * * *"
)

// ResetCodePurger removes expired or consumed password reset codes.
type ResetCodePurger interface {
	PurgeResetCodes(ctx context.Context, now time.Time) (int64, error)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background maintenance tasks: purging spent reset
// codes, expired revoked-token rows and expired cache rows.
type Cleaner struct {
	resetCodes ResetCodePurger
	tokens     cache.Purger
	cacheRows  cache.Purger
	tracker    *monitoring.MaintenanceTracker
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger

	resetCodeSchedule string
	tokenSchedule     string
	cacheSchedule     string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithTracker records every run so the readiness probe can report on it.
func WithTracker(tracker *monitoring.MaintenanceTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithCachePurger enables purging of expired rows from a SQL-backed cache.
func WithCachePurger(p cache.Purger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cacheRows = p
	}
}

// WithResetCodeSchedule overrides the cron specification for reset code cleanup.
func WithResetCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.resetCodeSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron specification for revoked token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(resetCodes ResetCodePurger, tokens cache.Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		resetCodes:        resetCodes,
		tokens:            tokens,
		now:               time.Now,
		resetCodeSchedule: defaultResetCodeSpec,
		tokenSchedule:     defaultTokenSpec,
		cacheSchedule:     defaultCacheSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	if cleaner.tracker != nil {
		for _, j := range cleaner.jobs() {
			cleaner.tracker.Register(j.name)
		}
	}

	return cleaner
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.resetCodes != nil {
		jobs = append(jobs, job{name: JobResetCodes, schedule: c.resetCodeSchedule, run: c.resetCodes.PurgeResetCodes})
	}
	if c.tokens != nil {
		jobs = append(jobs, job{name: JobRevokedTokens, schedule: c.tokenSchedule, run: c.tokens.PurgeExpired})
	}
	if c.cacheRows != nil {
		jobs = append(jobs, job{name: JobCacheEntries, schedule: c.cacheSchedule, run: c.cacheRows.PurgeExpired})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			_ = c.runJob(context.Background(), j)
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used during
// graceful shutdown and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.runJob(ctx, j))
	}
	return errs
}

func (c *Cleaner) runJob(ctx context.Context, j job) error {
	removed, err := j.run(ctx, c.now())
	if c.tracker != nil {
		c.tracker.Record(j.name, removed, err)
	}
	if err != nil {
		c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if removed > 0 {
		c.log.Debug("maintenance job completed", zap.String("job", j.name), zap.Int64("removed", removed))
	}
	return nil
}
