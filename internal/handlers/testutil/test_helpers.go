package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/api"
	"github.com/growcoach/jobboard/internal/app"
	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/cache"
	sharedtestutil "github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/internal/monitoring/checks"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	"github.com/growcoach/jobboard/pkg/mail"
	"github.com/growcoach/jobboard/pkg/response"
)

// Seeded administrator credentials.
const (
	AdminEmail    = sharedtestutil.AdminEmail
	AdminPassword = sharedtestutil.AdminPassword
)

// DefaultPassword satisfies the password strength rule.
const DefaultPassword = "Secret123"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	JWT           *iauth.JWTService
	Files         *storage.FileStore
	Accounts      *services.AccountService
	Jobs          *services.JobService
	Notifications *services.NotificationService
	Mailer        *RecordingMailer
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	oauth     handlers.OAuthProvider
	rateLimit *app.RateLimitConfig
}

// WithOAuth enables the Google routes with the given provider.
func WithOAuth(provider handlers.OAuthProvider) EnvOption {
	return func(cfg *envConfig) {
		cfg.oauth = provider
	}
}

// WithRateLimit overrides the auth route limits, which are disabled by default.
func WithRateLimit(limits app.RateLimitConfig) EnvOption {
	return func(cfg *envConfig) {
		cfg.rateLimit = &limits
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	options := envConfig{}
	for _, opt := range opts {
		opt(&options)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db)
	denylist, err := iauth.NewTokenDenylist(db, store)
	require.NoError(t, err)

	workflow, err := services.NewWorkflowService(db)
	require.NoError(t, err)
	notifications, err := services.NewNotificationService(db, workflow)
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, notifications)
	require.NoError(t, err)
	jobs, err := services.NewJobService(db)
	require.NoError(t, err)

	mailer := &RecordingMailer{}
	authSvc, err := services.NewAuthService(db, accounts, jwtSvc, denylist, services.WithMailer(mailer))
	require.NoError(t, err)

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Server.FrontendURL = "http://frontend.test"
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	if options.rateLimit != nil {
		cfg.RateLimit = *options.rateLimit
	}

	health := monitoring.NewHealthManager(time.Second)
	health.Register(monitoring.Liveness, checks.UploadDir(files.Root()))
	health.Register(monitoring.Readiness, checks.Database(db))

	router, err := api.NewRouter(api.Dependencies{
		Config:        cfg,
		JWT:           jwtSvc,
		Revocations:   denylist,
		Auth:          authSvc,
		Accounts:      accounts,
		Workflow:      workflow,
		Notifications: notifications,
		Jobs:          jobs,
		Files:         files,
		Health:        health,
		RateStore:     middleware.NewMemoryRateStore(),
		OAuth:         options.oauth,
		Version:       "test",
	})
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		JWT:           jwtSvc,
		Files:         files,
		Accounts:      accounts,
		Jobs:          jobs,
		Notifications: notifications,
		Mailer:        mailer,
	}
}

// RecordingMailer keeps every message for assertions.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

// Send records the message.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// LoginResult mirrors the data payload of POST /auth/login.
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Email     string `json:"email"`
}

// Login authenticates and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// LoginAdmin signs in as the seeded administrator.
func (e *Env) LoginAdmin() string {
	e.T.Helper()
	return e.Login(AdminEmail, AdminPassword).Token
}

// AccountPayload captures the account fields returned by registration.
type AccountPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
	Name     string `json:"name"`
}

// RegisterCandidate signs up a candidate over HTTP and returns the account.
func (e *Env) RegisterCandidate(email string) AccountPayload {
	e.T.Helper()
	w := e.Request(http.MethodPost, "/candidate/signup", map[string]any{
		"first_name":       "Alice",
		"last_name":        "Martin",
		"email":            email,
		"password":         DefaultPassword,
		"confirm_password": DefaultPassword,
		"terms_accepted":   true,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var account AccountPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &account)
	return account
}

// RegisterCompany signs up a company over HTTP and returns the account.
func (e *Env) RegisterCompany(email string) AccountPayload {
	e.T.Helper()
	w := e.Request(http.MethodPost, "/company/signup", map[string]any{
		"company_name":     "Acme",
		"industry":         "Software",
		"email":            email,
		"password":         DefaultPassword,
		"confirm_password": DefaultPassword,
		"terms_accepted":   true,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var account AccountPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &account)
	return account
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.Do(req, token)
}

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart sends a multipart/form-data request with the given fields and files.
func (e *Env) Multipart(method, path string, fields map[string]string, files []FilePart, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		require.NoError(e.T, err)
		_, err = part.Write(file.Content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.Do(req, token)
}

// Do serves a prepared request, adding the bearer token when set.
func (e *Env) Do(req *http.Request, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
