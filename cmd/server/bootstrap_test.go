package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/growcoach/jobboard/internal/app"
	"github.com/growcoach/jobboard/pkg/mail"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &app.Config{}
	cfg.Server.FrontendURL = "http://localhost:3000"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(dir, "growcoach.sqlite")
	cfg.Auth.JWT.Secret = "bootstrap-test-secret-bootstrap-test"
	cfg.Auth.JWT.Issuer = "growcoach"
	cfg.Auth.Admin.Email = "Admin@Example.test"
	cfg.Auth.Admin.Password = "Admin1234"
	cfg.Email.Provider = app.EmailProviderNone
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")
	cfg.Uploads.MaxBytes = 1 << 20
	cfg.Monitoring.Health.Enabled = true
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.ResetCodeSchedule = "@hourly"
	cfg.Maintenance.TokenSchedule = "@hourly"
	cfg.Maintenance.CacheSchedule = "*/15 * * * *"
	return cfg
}

func TestBootstrapRuntimeServesRequests(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "maintenance")

	body := strings.NewReader(`{"email":"admin@example.test","password":"Admin1234"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBootstrapRuntimeRejectsUnknownMailer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.Provider = "pigeon"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported email provider")
}

func TestNewMailerSelectsProvider(t *testing.T) {
	mailer, err := newMailer(context.Background(), app.EmailConfig{Provider: "none"})
	require.NoError(t, err)
	require.IsType(t, mail.NopMailer{}, mailer)

	mailer, err = newMailer(context.Background(), app.EmailConfig{
		SMTP: app.SMTPConfig{Enabled: true, Host: "smtp.example.test", Port: 587, From: "noreply@example.test"},
	})
	require.NoError(t, err)
	require.IsType(t, &mail.SMTPMailer{}, mailer)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = " PostgreSQL "
	cfg.Database.LogLevel = "info"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     " db.internal ",
		Port:     5432,
		Database: "growcoach",
		Username: "growcoach",
		Password: "secret",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "growcoach", dbCfg.Name)
	require.Equal(t, "info", dbCfg.LogLevel)

	cfg.Database.Driver = ""
	require.Equal(t, "sqlite", convertDatabaseConfig(cfg).Driver)
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := &app.Config{}
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "  secret  "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "secret", cfg.Auth.JWT.Secret)

	cfg.Auth.OAuth.Google.Enabled = true
	require.Error(t, ensureSecretsPresent(cfg))
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
