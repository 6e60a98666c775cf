package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/crypto"
	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/mail"
	"github.com/growcoach/jobboard/pkg/metrics"
	"github.com/growcoach/jobboard/pkg/validator"
)

// DefaultResetCodeLength is the number of digits in a password reset code.
const DefaultResetCodeLength = 6

var errInvalidResetCode = validationError("Invalid or expired reset code")

// LoginResult is returned after a successful sign in.
type LoginResult struct {
	Token       string               `json:"token"`
	TokenType   string               `json:"token_type"`
	ExpiresIn   int64                `json:"expires_in"`
	UserID      string               `json:"user_id"`
	Role        models.AccountRole   `json:"role"`
	Status      models.AccountStatus `json:"status"`
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	FirstName   string               `json:"first_name,omitempty"`
	LastName    string               `json:"last_name,omitempty"`
	CompanyName string               `json:"company_name,omitempty"`
	Verified    bool                 `json:"verified"`
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=NewPassword"`
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithMailer sets the transport used for reset codes.
func WithMailer(m mail.Mailer) AuthOption {
	return func(s *AuthService) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithResetCodeLength overrides the reset code length.
func WithResetCodeLength(n int) AuthOption {
	return func(s *AuthService) {
		if n >= 4 && n <= 10 {
			s.codeLength = n
		}
	}
}

// WithAuthClock overrides the service clock.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// AuthService handles sign in, sign out and password recovery.
type AuthService struct {
	db         *gorm.DB
	accounts   *AccountService
	jwt        *auth.JWTService
	denylist   *auth.TokenDenylist
	mailer     mail.Mailer
	codeLength int
	now        func() time.Time
	log        *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, accounts *AccountService, jwt *auth.JWTService, denylist *auth.TokenDenylist, opts ...AuthOption) (*AuthService, error) {
	switch {
	case db == nil:
		return nil, errors.New("auth service: db is required")
	case accounts == nil:
		return nil, errors.New("auth service: account service is required")
	case jwt == nil:
		return nil, errors.New("auth service: jwt service is required")
	case denylist == nil:
		return nil, errors.New("auth service: token denylist is required")
	}

	svc := &AuthService{
		db:         db,
		accounts:   accounts,
		jwt:        jwt,
		denylist:   denylist,
		mailer:     mail.NopMailer{},
		codeLength: DefaultResetCodeLength,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.WithModule("auth"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login verifies credentials and issues an access token. Pending accounts may
// sign in; blocked and rejected accounts may not.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			metrics.AuthAttempts.WithLabelValues("password", "invalid").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !crypto.VerifyPassword(account.Password, password) {
		metrics.AuthAttempts.WithLabelValues("password", "invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := loginAllowed(account); err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "denied").Inc()
		return nil, err
	}

	result, err := s.IssueToken(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return result, nil
}

func loginAllowed(account *models.Account) error {
	switch account.Status {
	case models.StatusBlocked:
		return ErrAccountBlocked
	case models.StatusRejected:
		return ErrAccountRejected
	}
	if !account.Status.CanLogin() {
		return apperrors.ErrForbidden
	}
	return nil
}

// IssueToken signs a token for the account and stamps last_login_at.
func (s *AuthService) IssueToken(ctx context.Context, account *models.Account) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	token, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{AccountID: account.ID, Role: string(account.Role)})
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", account.ID).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to record last login", zap.String("account_id", account.ID), zap.Error(err))
	}

	result := &LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwt.TTL().Seconds()),
		UserID:    account.ID,
		Role:      account.Role,
		Status:    account.Status,
		Email:     account.Email,
		Name:      account.DisplayName(),
		Verified:  account.Verified,
	}
	if p := account.CandidateProfile; p != nil {
		result.FirstName = p.FirstName
		result.LastName = p.LastName
	}
	if p := account.CompanyProfile; p != nil {
		result.CompanyName = p.CompanyName
	}
	return result, nil
}

// Logout revokes the presented token until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrUnauthorized
	}
	return s.denylist.Revoke(ensureContext(ctx), claims.ID, claims.AccountID, claims.ExpiresAtTime())
}

// Me returns the current account.
func (s *AuthService) Me(ctx context.Context, accountID string) (*AccountDTO, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return toAccountDTO(account), nil
}

// ForgotPassword mails a reset code to a known address. The outcome is never
// revealed to the caller and delivery failures are only logged.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)
	email = models.NormaliseEmail(email)
	if err := validator.ValidateVar(email, "required,email"); err != nil {
		return validationError("A valid email is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.log.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := crypto.GenerateNumericCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("auth service: generate reset code: %w", err)
	}

	now := s.now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	record := models.PasswordResetCode{
		AccountID: account.ID,
		Email:     account.Email,
		CodeHash:  crypto.HashToken(code),
		ExpiresAt: endOfDay,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ? AND used_at IS NULL", account.ID).Delete(&models.PasswordResetCode{}).Error; err != nil {
			return fmt.Errorf("auth service: clear reset codes: %w", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("auth service: store reset code: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      []string{account.Email},
		Subject: "Your GrowCoach password reset code",
		Body: fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It is valid until the end of the day (UTC).\n\nIf you did not ask to reset your password you can ignore this email.\n",
			account.DisplayName(), code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		result := "failed"
		if errors.Is(err, mail.ErrDisabled) {
			result = "disabled"
		}
		metrics.EmailDeliveries.WithLabelValues("password_reset", result).Inc()
		s.log.Warn("password reset email not delivered", zap.String("account_id", account.ID), zap.Error(err))
		return nil
	}
	metrics.EmailDeliveries.WithLabelValues("password_reset", "sent").Inc()
	return nil
}

// VerifyResetCode checks a code without consuming it.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	ctx = ensureContext(ctx)
	_, err := s.findResetCode(s.db.WithContext(ctx), email, code)
	return err
}

// ResetPassword consumes a code and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	ctx = ensureContext(ctx)
	input.Email = models.NormaliseEmail(input.Email)
	input.Code = strings.TrimSpace(input.Code)
	if err := validateInput(input); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.findResetCode(tx, input.Email, input.Code)
		if err != nil {
			return err
		}

		now := s.now()
		consumed := tx.Model(&models.PasswordResetCode{}).
			Where("id = ? AND used_at IS NULL", record.ID).
			Update("used_at", now)
		if consumed.Error != nil {
			return fmt.Errorf("auth service: consume reset code: %w", consumed.Error)
		}
		if consumed.RowsAffected != 1 {
			return errInvalidResetCode
		}

		if err := tx.Model(&models.Account{}).
			Where("id = ?", record.AccountID).
			Updates(map[string]any{"password": hash, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("auth service: update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("password reset completed")
	return nil
}

func (s *AuthService) findResetCode(db *gorm.DB, email, code string) (*models.PasswordResetCode, error) {
	email = models.NormaliseEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || !s.wellFormedCode(code) {
		return nil, errInvalidResetCode
	}

	var record models.PasswordResetCode
	err := db.Where("email = ? AND code_hash = ?", email, crypto.HashToken(code)).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidResetCode
		}
		return nil, fmt.Errorf("auth service: load reset code: %w", err)
	}
	if !record.Usable(s.now()) || !crypto.EqualHash(record.CodeHash, crypto.HashToken(code)) {
		return nil, errInvalidResetCode
	}
	return &record, nil
}

func (s *AuthService) wellFormedCode(code string) bool {
	if len(code) != s.codeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CompleteOAuth signs in the account behind a verified external identity.
func (s *AuthService) CompleteOAuth(ctx context.Context, identity *auth.GoogleIdentity) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	if identity == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !identity.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("google", "invalid").Inc()
		return nil, apperrors.ErrUnauthorized.WithMessage("Google account email is not verified")
	}

	account, created, err := s.accounts.ResolveOAuthCandidate(ctx, OAuthProfile{
		Provider:  models.AuthProviderGoogle,
		Subject:   identity.Subject,
		Email:     identity.Email,
		FirstName: identity.GivenName,
		LastName:  identity.FamilyName,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "error").Inc()
		return nil, err
	}
	if err := loginAllowed(account); err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "denied").Inc()
		return nil, err
	}

	result, err := s.IssueToken(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("google", "success").Inc()
	s.log.Info("oauth sign in", zap.String("account_id", account.ID), zap.Bool("created", created))
	return result, nil
}

// PurgeResetCodes removes expired and consumed reset codes.
func (s *AuthService) PurgeResetCodes(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("expires_at <= ? OR used_at IS NOT NULL", now.UTC()).
		Delete(&models.PasswordResetCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("auth service: purge reset codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
