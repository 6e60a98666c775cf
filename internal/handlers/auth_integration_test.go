package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/growcoach/jobboard/internal/app"
	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/handlers/testutil"
)

func TestAuthHandler_LoginVerifyLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.Login(testutil.AdminEmail, testutil.AdminPassword)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, "admin", login.Role)
	require.Greater(t, login.ExpiresIn, int64(0))

	verify := env.Request(http.MethodGet, "/auth/verify-token", nil, login.Token)
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())
	var verified map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, verify).Data, &verified)
	require.Equal(t, true, verified["valid"])
	require.Equal(t, login.UserID, verified["user_id"])

	check := env.Request(http.MethodGet, "/auth/check-auth", nil, login.Token)
	require.Equal(t, http.StatusOK, check.Code, check.Body.String())
	var checked struct {
		Authenticated bool                   `json:"authenticated"`
		User          testutil.AccountPayload `json:"user"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, check).Data, &checked)
	require.True(t, checked.Authenticated)
	require.Equal(t, testutil.AdminEmail, checked.User.Email)

	logout := env.Request(http.MethodPost, "/auth/logout", nil, login.Token)
	require.Equal(t, http.StatusOK, logout.Code, logout.Body.String())

	revoked := env.Request(http.MethodGet, "/auth/verify-token", nil, login.Token)
	require.Equal(t, http.StatusUnauthorized, revoked.Code)
	decoded := testutil.DecodeResponse(t, revoked)
	require.False(t, decoded.Success)
	require.Equal(t, "TOKEN_REVOKED", decoded.Error.Code)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/auth/login", map[string]string{"email": " ", "password": ""}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	decoded := testutil.DecodeResponse(t, resp)
	require.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	require.Equal(t, "VALIDATION_ERROR", decoded.Error.Code)
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    testutil.AdminEmail,
		"password": "wrong-password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "INVALID_CREDENTIALS", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestAuthHandler_ProtectedRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/auth/check-auth", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.Request(http.MethodGet, "/auth/check-auth", nil, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthHandler_RegisterByRole(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/auth/register", map[string]any{
		"role":             "company",
		"email":            "hr@acme.test",
		"password":         testutil.DefaultPassword,
		"confirm_password": testutil.DefaultPassword,
		"company_name":     "Acme",
		"industry":         "Software",
		"terms_accepted":   true,
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var account testutil.AccountPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &account)
	require.Equal(t, "company", account.Role)
	require.Equal(t, "pending", account.Status)

	dup := env.Request(http.MethodPost, "/auth/register", map[string]any{
		"role":             "candidate",
		"email":            "HR@acme.test",
		"password":         testutil.DefaultPassword,
		"confirm_password": testutil.DefaultPassword,
		"first_name":       "Bob",
		"last_name":        "Stone",
		"terms_accepted":   true,
	}, "")
	require.Equal(t, http.StatusConflict, dup.Code, dup.Body.String())
	require.Equal(t, "EMAIL_TAKEN", testutil.DecodeResponse(t, dup).Error.Code)
}

var resetCodePattern = regexp.MustCompile(`code is (\d{6})`)

func TestAuthHandler_ForgotAndResetPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	env.RegisterCandidate("alice@example.test")

	forgot := env.Request(http.MethodPost, "/auth/forgot-password", map[string]string{"email": "alice@example.test"}, "")
	require.Equal(t, http.StatusOK, forgot.Code, forgot.Body.String())

	unknown := env.Request(http.MethodPost, "/auth/forgot-password", map[string]string{"email": "ghost@example.test"}, "")
	require.Equal(t, http.StatusOK, unknown.Code, "unknown addresses get the same answer")

	messages := env.Mailer.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{"alice@example.test"}, messages[0].To)
	match := resetCodePattern.FindStringSubmatch(messages[0].Body)
	require.Len(t, match, 2, messages[0].Body)
	code := match[1]

	wrong := env.Request(http.MethodPost, "/auth/verify-reset-code", map[string]string{
		"email": "alice@example.test",
		"code":  strings.Repeat("0", 6),
	}, "")
	if code != strings.Repeat("0", 6) {
		require.Equal(t, http.StatusBadRequest, wrong.Code, wrong.Body.String())
	}

	verify := env.Request(http.MethodPost, "/auth/verify-reset-code", map[string]string{
		"email": "alice@example.test",
		"code":  code,
	}, "")
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())

	reset := env.Request(http.MethodPost, "/auth/reset-password", map[string]string{
		"email":            "alice@example.test",
		"code":             code,
		"new_password":     "Changed123",
		"confirm_password": "Changed123",
	}, "")
	require.Equal(t, http.StatusOK, reset.Code, reset.Body.String())

	reused := env.Request(http.MethodPost, "/auth/reset-password", map[string]string{
		"email":            "alice@example.test",
		"code":             code,
		"new_password":     "Another123",
		"confirm_password": "Another123",
	}, "")
	require.Equal(t, http.StatusBadRequest, reused.Code, reused.Body.String())

	env.Login("alice@example.test", "Changed123")
}

func TestAuthHandler_OAuthDisabled(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/auth/oauth/google", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "OAUTH_DISABLED", testutil.DecodeResponse(t, resp).Error.Code)
}

type fakeGoogle struct {
	identity *iauth.GoogleIdentity
	err      error
}

func (f *fakeGoogle) Begin() (string, error) {
	return "https://accounts.google.test/auth?state=abc", nil
}

func (f *fakeGoogle) Callback(_ context.Context, state, code string) (*iauth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if state != "abc" || code != "xyz" {
		return nil, errors.New("bad state")
	}
	return f.identity, nil
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	provider := &fakeGoogle{identity: &iauth.GoogleIdentity{
		Subject:       "google-123",
		Email:         "Gina@Example.test",
		EmailVerified: true,
		GivenName:     "Gina",
		FamilyName:    "Lopez",
	}}
	env := testutil.NewEnv(t, testutil.WithOAuth(provider))

	begin := env.Request(http.MethodGet, "/auth/oauth/google", nil, "")
	require.Equal(t, http.StatusFound, begin.Code)
	require.Equal(t, "https://accounts.google.test/auth?state=abc", begin.Header().Get("Location"))

	callback := env.Request(http.MethodGet, "/auth/oauth/google/callback?state=abc&code=xyz", nil, "")
	require.Equal(t, http.StatusFound, callback.Code)
	location := callback.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "http://frontend.test/oauth-success?token="), location)

	token := strings.TrimPrefix(location, "http://frontend.test/oauth-success?token=")
	check := env.Request(http.MethodGet, "/auth/check-auth", nil, token)
	require.Equal(t, http.StatusOK, check.Code, check.Body.String())
	var checked struct {
		User testutil.AccountPayload `json:"user"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, check).Data, &checked)
	require.Equal(t, "gina@example.test", checked.User.Email)
	require.Equal(t, "candidate", checked.User.Role)
	require.Equal(t, "active", checked.User.Status)

	denied := env.Request(http.MethodGet, "/auth/oauth/google/callback?error=access_denied", nil, "")
	require.Equal(t, http.StatusFound, denied.Code)
	require.Equal(t, "http://frontend.test/login?error=oauth_denied", denied.Header().Get("Location"))

	bad := env.Request(http.MethodGet, "/auth/oauth/google/callback?state=forged&code=xyz", nil, "")
	require.Equal(t, http.StatusFound, bad.Code)
	require.Equal(t, "http://frontend.test/login?error=oauth_failed", bad.Header().Get("Location"))
}

func TestAuthHandler_LoginRateLimited(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithRateLimit(app.RateLimitConfig{
		Enabled:  true,
		Login:    2,
		Register: 5,
		Forgot:   3,
		Reset:    5,
	}))

	payload := map[string]string{"email": testutil.AdminEmail, "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		resp := env.Request(http.MethodPost, "/auth/login", payload, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	limited := env.Request(http.MethodPost, "/auth/login", payload, "")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", testutil.DecodeResponse(t, limited).Error.Code)
}
