package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/response"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

func newJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return jwtSvc
}

func issue(t *testing.T, jwtSvc *iauth.JWTService, id string, role models.AccountRole) (string, *iauth.Claims) {
	t.Helper()
	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{AccountID: id, Role: string(role)})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateAccessToken(token)
	require.NoError(t, err)
	return token, claims
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Error)
	return payload.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newJWT(t)
	token, _ := issue(t, jwtSvc, "user-123", models.RoleCandidate)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc, nil), func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    c.GetString(CtxRoleKey),
			"jti":     claims.ID,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	// Malformed token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, "candidate", payload["role"])
	require.NotEmpty(t, payload["jti"])
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newJWT(t)
	token, claims := issue(t, jwtSvc, "user-1", models.RoleCompany)
	revocations := &stubRevocations{revoked: map[string]bool{claims.ID: true}}

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc, revocations), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "TOKEN_REVOKED", errorCode(t, w))

	revocations.revoked = nil
	revocations.err = errors.New("db down")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newJWT(t)
	candidateToken, _ := issue(t, jwtSvc, "cand-1", models.RoleCandidate)
	adminToken, _ := issue(t, jwtSvc, "admin-1", models.RoleAdmin)

	r := gin.New()
	r.GET("/admin", Auth(jwtSvc, nil), RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/open", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"admin allowed", "/admin", adminToken, http.StatusOK},
		{"candidate forbidden", "/admin", candidateToken, http.StatusForbidden},
		{"without auth", "/open", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
		})
	}
}
