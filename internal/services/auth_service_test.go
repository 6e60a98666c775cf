package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/models"
	apperrors "github.com/growcoach/jobboard/pkg/errors"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func mailedCode(t *testing.T, svc *testServices) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(svc.mailer.last().Body)
	require.Len(t, match, 2)
	return match[1]
}

func TestLoginStatuses(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	pending := svc.registerCandidate(t, "Alice", "Martin", "alice@example.com")
	result, err := svc.auth.Login(ctx, "ALICE@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, pending.ID, result.UserID)
	require.Equal(t, models.RoleCandidate, result.Role)
	require.Equal(t, "Alice", result.FirstName)

	claims, err := svc.jwt.ValidateAccessToken(result.Token)
	require.NoError(t, err)
	require.Equal(t, pending.ID, claims.AccountID)

	stored := svc.accountStatus(t, pending.ID)
	require.NotNil(t, stored.LastLoginAt)

	_, err = svc.auth.Login(ctx, "alice@example.com", "Wrong1234")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.auth.Login(ctx, "nobody@example.com", testPassword)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	rejected := svc.registerCandidate(t, "Rex", "Jones", "rex@example.com")
	_, err = svc.workflow.ApplyAction(ctx, rejected.ID, ActionReject)
	require.NoError(t, err)
	_, err = svc.auth.Login(ctx, "rex@example.com", testPassword)
	require.ErrorIs(t, err, ErrAccountRejected)

	blocked := svc.activeCandidate(t, "Bob", "bob@example.com")
	_, err = svc.workflow.ApplyAction(ctx, blocked.ID, ActionBlock)
	require.NoError(t, err)
	_, err = svc.auth.Login(ctx, "bob@example.com", testPassword)
	require.ErrorIs(t, err, ErrAccountBlocked)
	require.Equal(t, 403, apperrors.FromError(err).StatusCode)
}

func TestSeededAdminCanLogin(t *testing.T) {
	svc := newTestServices(t)
	result, err := svc.auth.Login(context.Background(), testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, result.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	svc.registerCandidate(t, "Alice", "Martin", "alice@example.com")

	result, err := svc.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	claims, err := svc.jwt.ValidateAccessToken(result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.auth.Logout(ctx, claims))

	denylist, err := auth.NewTokenDenylist(svc.db, nil)
	require.NoError(t, err)
	revoked, err := denylist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, revoked)

	require.ErrorIs(t, svc.auth.Logout(ctx, nil), apperrors.ErrUnauthorized)
}

func TestPasswordResetSurvivesMailerFailure(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	svc.registerCandidate(t, "Alice", "Martin", "alice@example.com")
	svc.mailer.err = errMailDown

	require.NoError(t, svc.auth.ForgotPassword(ctx, "alice@example.com"))
	code := mailedCode(t, svc)

	require.NoError(t, svc.auth.VerifyResetCode(ctx, "alice@example.com", code))
	require.ErrorIs(t, svc.auth.VerifyResetCode(ctx, "alice@example.com", "000000x"), apperrors.ErrValidation)

	err := svc.auth.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: code, NewPassword: "weak"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, svc.auth.ResetPassword(ctx, ResetPasswordInput{
		Email:           "alice@example.com",
		Code:            code,
		NewPassword:     "NewSecret9",
		ConfirmPassword: "NewSecret9",
	}))

	_, err = svc.auth.Login(ctx, "alice@example.com", testPassword)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.auth.Login(ctx, "alice@example.com", "NewSecret9")
	require.NoError(t, err)

	err = svc.auth.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: code, NewPassword: "Another99"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc := newTestServices(t)
	require.NoError(t, svc.auth.ForgotPassword(context.Background(), "ghost@example.com"))
	require.Empty(t, svc.mailer.messages)

	require.ErrorIs(t, svc.auth.ForgotPassword(context.Background(), "not-an-email"), apperrors.ErrValidation)
}

func TestForgotPasswordReplacesEarlierCodes(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	svc.registerCandidate(t, "Alice", "Martin", "alice@example.com")

	require.NoError(t, svc.auth.ForgotPassword(ctx, "alice@example.com"))
	first := mailedCode(t, svc)
	require.NoError(t, svc.auth.ForgotPassword(ctx, "alice@example.com"))
	second := mailedCode(t, svc)

	var count int64
	require.NoError(t, svc.db.Model(&models.PasswordResetCode{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	if first != second {
		require.ErrorIs(t, svc.auth.VerifyResetCode(ctx, "alice@example.com", first), apperrors.ErrValidation)
	}
	require.NoError(t, svc.auth.VerifyResetCode(ctx, "alice@example.com", second))
}

func TestResetCodeExpiresAtEndOfDay(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	svc.registerCandidate(t, "Alice", "Martin", "alice@example.com")

	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	svc.auth.now = func() time.Time { return now }

	require.NoError(t, svc.auth.ForgotPassword(ctx, "alice@example.com"))
	code := mailedCode(t, svc)

	var record models.PasswordResetCode
	require.NoError(t, svc.db.First(&record).Error)
	require.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC), record.ExpiresAt.UTC())

	now = now.Add(3 * time.Hour)
	require.ErrorIs(t, svc.auth.VerifyResetCode(ctx, "alice@example.com", code), apperrors.ErrValidation)

	purged, err := svc.auth.PurgeResetCodes(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestCompleteOAuthCreatesActiveCandidate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	result, err := svc.auth.CompleteOAuth(ctx, &auth.GoogleIdentity{
		Subject:       "google-1",
		Email:         "Grace@Gmail.com",
		EmailVerified: true,
		GivenName:     "Grace",
		FamilyName:    "Hopper",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleCandidate, result.Role)
	require.Equal(t, models.StatusActive, result.Status)
	require.Equal(t, "grace@gmail.com", result.Email)

	_, err = svc.auth.CompleteOAuth(ctx, &auth.GoogleIdentity{Email: "x@gmail.com"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestMeMissingAccount(t *testing.T) {
	svc := newTestServices(t)
	_, err := svc.auth.Me(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
