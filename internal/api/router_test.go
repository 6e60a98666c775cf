package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/app"
	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/cache"
	testutil "github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
)

func newTestDependencies(t *testing.T) Dependencies {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret", Issuer: "test", AccessTokenTTL: 15 * time.Minute})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}
	denylist, err := iauth.NewTokenDenylist(db, cache.NewDatabaseStore(db))
	if err != nil {
		t.Fatalf("denylist: %v", err)
	}
	workflow, err := services.NewWorkflowService(db)
	if err != nil {
		t.Fatalf("workflow service: %v", err)
	}
	notifications, err := services.NewNotificationService(db, workflow)
	if err != nil {
		t.Fatalf("notification service: %v", err)
	}
	accounts, err := services.NewAccountService(db, notifications)
	if err != nil {
		t.Fatalf("account service: %v", err)
	}
	jobs, err := services.NewJobService(db)
	if err != nil {
		t.Fatalf("job service: %v", err)
	}
	authSvc, err := services.NewAuthService(db, accounts, jwtSvc, denylist)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"

	return Dependencies{
		Config:        cfg,
		JWT:           jwtSvc,
		Revocations:   denylist,
		Auth:          authSvc,
		Accounts:      accounts,
		Workflow:      workflow,
		Notifications: notifications,
		Jobs:          jobs,
		Files:         files,
		RateStore:     middleware.NewMemoryRateStore(),
		Version:       "test",
	}
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	deps := newTestDependencies(t)

	missingConfig := deps
	missingConfig.Config = nil
	if _, err := NewRouter(missingConfig); err == nil {
		t.Fatal("expected error without config")
	}

	missingFiles := deps
	missingFiles.Files = nil
	if _, err := NewRouter(missingFiles); err == nil {
		t.Fatal("expected error without file store")
	}

	missingJobs := deps
	missingJobs.Jobs = nil
	if _, err := NewRouter(missingJobs); err == nil {
		t.Fatal("expected error without job service")
	}
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, err := NewRouter(newTestDependencies(t))
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	for _, path := range []string{"/", "/health", "/jobs", "/job/"} {
		if rec := serve(router, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/check-auth"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/candidate/profile"},
		{http.MethodGet, "/company/jobs"},
		{http.MethodPut, "/company/update"},
		{http.MethodPost, "/job/some-id/apply"},
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/notifications"},
	}
	for _, route := range protected {
		if rec := serve(router, route.method, route.path); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s %s without token, got %d", route.method, route.path, rec.Code)
		}
	}

	if rec := serve(router, http.MethodGet, "/api/jobs"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, err := NewRouter(newTestDependencies(t))
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	if rec := serve(router, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", rec.Code)
	}

	rec := serve(router, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "growcoach_api_latency_seconds") {
		t.Fatalf("expected api latency metric in output")
	}
}

func TestRouter_DisabledMonitoring(t *testing.T) {
	deps := newTestDependencies(t)
	deps.Config.Monitoring.Health.Enabled = false
	deps.Config.Monitoring.Prometheus.Enabled = false

	router, err := NewRouter(deps)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	if rec := serve(router, http.MethodGet, "/health"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled health, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled metrics, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/"); rec.Code != http.StatusOK {
		t.Fatalf("expected banner to stay available, got %d", rec.Code)
	}
}

func TestRateLimitsDisabledByDefault(t *testing.T) {
	limits := newRateLimits(app.RateLimitConfig{}, middleware.NewMemoryRateStore())
	if limits.enabled {
		t.Fatal("expected limits to be disabled")
	}
	if limits.window != time.Minute {
		t.Fatalf("expected default window of one minute, got %s", limits.window)
	}
}
