package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/growcoach/jobboard/pkg/errors"
)

var (
	// ErrInvalidAction is returned when a workflow action does not apply to the
	// account's role or current status.
	ErrInvalidAction = apperrors.New("INVALID_ACTION", "Action is not allowed for this account", http.StatusBadRequest)
	// ErrAlreadyApplied reports a second application to the same job.
	ErrAlreadyApplied = apperrors.New("ALREADY_APPLIED", "You have already applied to this job", http.StatusConflict)
	// ErrVerificationPending reports a duplicate verification request.
	ErrVerificationPending = apperrors.New("VERIFICATION_PENDING", "Verification request already pending", http.StatusConflict)
	// ErrRequestPending reports a duplicate unresolved notification.
	ErrRequestPending = apperrors.New("REQUEST_PENDING", "Request already pending", http.StatusConflict)
	// ErrEmailTaken reports a registration against an existing email.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email already registered", http.StatusConflict)
	// ErrAccountBlocked denies login to blocked accounts.
	ErrAccountBlocked = apperrors.New("ACCOUNT_BLOCKED", "Your account has been blocked", http.StatusForbidden)
	// ErrAccountRejected denies login to rejected registrations.
	ErrAccountRejected = apperrors.New("ACCOUNT_REJECTED", "Your registration has been rejected", http.StatusForbidden)

	ErrAccountNotFound      = apperrors.NewNotFound("Account not found")
	ErrNotificationNotFound = apperrors.NewNotFound("Notification not found")
	ErrJobNotFound          = apperrors.NewNotFound("Job not found")
	ErrFileNotFound         = apperrors.NewNotFound("File not found")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func validationError(message string) *apperrors.AppError {
	return apperrors.ErrValidation.WithMessage(message)
}
