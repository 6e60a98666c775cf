package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/growcoach/jobboard/internal/app"
	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
)

// Dependencies are the long-lived services the router hands to handlers.
type Dependencies struct {
	Config        *app.Config
	JWT           *iauth.JWTService
	Revocations   middleware.RevocationChecker
	Auth          *services.AuthService
	Accounts      *services.AccountService
	Workflow      *services.WorkflowService
	Notifications *services.NotificationService
	Jobs          *services.JobService
	Files         *storage.FileStore
	Health        *monitoring.HealthManager
	RateStore     middleware.RateStore
	// OAuth is nil when Google sign-in is not configured.
	OAuth   handlers.OAuthProvider
	Version string
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Auth == nil, d.Accounts == nil, d.Workflow == nil, d.Notifications == nil, d.Jobs == nil:
		return errors.New("domain services must be provided")
	case d.Files == nil:
		return errors.New("file store must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route group.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.Origins))

	requireAuth := middleware.Auth(deps.JWT, deps.Revocations)
	limits := newRateLimits(cfg.RateLimit, deps.RateStore)

	registerHealthRoutes(r, cfg, handlers.NewHealthHandler(deps.Health, deps.Version))
	registerUploadRoutes(r, handlers.NewUploadHandler(deps.Files))

	registerAuthRoutes(r, authRouteDeps{
		Handler:     handlers.NewAuthHandler(deps.Auth, deps.Accounts, deps.OAuth, cfg.Server.FrontendURL),
		RequireAuth: requireAuth,
		Limits:      limits,
	})

	jobHandler := handlers.NewJobHandler(deps.Jobs)
	registerCandidateRoutes(r, handlers.NewCandidateHandler(deps.Accounts, deps.Jobs, deps.Files), requireAuth)
	registerCompanyRoutes(r, handlers.NewCompanyHandler(deps.Accounts, deps.Jobs, deps.Files), requireAuth)
	registerJobRoutes(r, jobHandler, requireAuth)
	registerAdminRoutes(r, handlers.NewAdminHandler(deps.Accounts, deps.Workflow, deps.Notifications, deps.Files), requireAuth)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// rateLimits hands out per-route limiters; disabled limits become no-ops.
type rateLimits struct {
	enabled bool
	window  time.Duration
	store   middleware.RateStore
	cfg     app.RateLimitConfig
}

func newRateLimits(cfg app.RateLimitConfig, store middleware.RateStore) rateLimits {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return rateLimits{
		enabled: cfg.Enabled && store != nil,
		window:  window,
		store:   store,
		cfg:     cfg,
	}
}

func (l rateLimits) limit(max int) gin.HandlerFunc {
	if !l.enabled || max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(l.store, max, l.window)
}

func roleGroup(parent gin.IRouter, requireAuth gin.HandlerFunc, role models.AccountRole) *gin.RouterGroup {
	return parent.Group("", requireAuth, middleware.RequireRole(role))
}
