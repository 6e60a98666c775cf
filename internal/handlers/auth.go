package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/response"
)

// ErrOAuthDisabled answers OAuth routes when no provider is configured.
var ErrOAuthDisabled = errors.New("OAUTH_DISABLED", "Google sign-in is not configured", http.StatusNotFound)

// OAuthProvider runs an external authorization-code flow.
type OAuthProvider interface {
	Begin() (string, error)
	Callback(ctx context.Context, state, code string) (*iauth.GoogleIdentity, error)
}

// AuthHandler manages authentication flows (login/register/logout/reset/oauth).
type AuthHandler struct {
	auth        *services.AuthService
	accounts    *services.AccountService
	google      OAuthProvider
	frontendURL string
}

// NewAuthHandler constructs an AuthHandler. google may be nil.
func NewAuthHandler(auth *services.AuthService, accounts *services.AccountService, google OAuthProvider, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		accounts:    accounts,
		google:      google,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Login successful", result)
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Register(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Registration successful. Your account is awaiting approval.", account)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	if err := h.auth.Logout(requestContext(c), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Logged out", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ForgotPassword(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "If an account exists for this email, a reset code has been sent", nil)
}

type verifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// POST /auth/verify-reset-code
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req verifyResetCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.VerifyResetCode(requestContext(c), req.Email, req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Reset code is valid", gin.H{"valid": true})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(requestContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Password has been reset", nil)
}

// GET /auth/verify-token
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"valid":      true,
		"user_id":    claims.AccountID,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAtTime(),
	})
}

// GET /auth/check-auth
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	account, err := h.auth.Me(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"authenticated": true,
		"user":          account,
	})
}

// GET /auth/oauth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		response.Error(c, ErrOAuthDisabled)
		return
	}
	redirect, err := h.google.Begin()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

// GET /auth/oauth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		response.Error(c, ErrOAuthDisabled)
		return
	}
	log := logger.WithModule("auth")

	if providerErr := c.Query("error"); providerErr != "" {
		log.Warn("google oauth declined", zap.String("error", providerErr))
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_denied"}})
		return
	}

	identity, err := h.google.Callback(requestContext(c), c.Query("state"), c.Query("code"))
	if err != nil {
		log.Warn("google oauth callback failed", zap.Error(err))
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_failed"}})
		return
	}

	result, err := h.auth.CompleteOAuth(requestContext(c), identity)
	if err != nil {
		appErr := errors.FromError(err)
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("google oauth sign in failed", zap.Error(err))
		}
		h.redirectFrontend(c, "/login", url.Values{"error": {strings.ToLower(appErr.Code)}})
		return
	}
	h.redirectFrontend(c, "/oauth-success", url.Values{"token": {result.Token}})
}

func (h *AuthHandler) redirectFrontend(c *gin.Context, path string, query url.Values) {
	target := h.frontendURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	c.Redirect(http.StatusFound, target)
}
