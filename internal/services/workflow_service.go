package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/models"
	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/metrics"
)

// Action is an admin verb applied to an account.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionBlock    Action = "block"
	ActionUnblock  Action = "unblock"
	ActionVerify   Action = "verify"
	ActionUnverify Action = "unverify"
)

// ParseAction converts user input into a known action.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	switch action {
	case ActionApprove, ActionReject, ActionBlock, ActionUnblock, ActionVerify, ActionUnverify:
		return action, nil
	}
	return "", ErrInvalidAction.WithMessage(fmt.Sprintf("Unknown action %q", value))
}

type transition struct {
	from     []models.AccountStatus
	to       models.AccountStatus
	verified *bool
}

var (
	setVerified   = func(v bool) *bool { return &v }
	anyStatus     = []models.AccountStatus{models.StatusPending, models.StatusActive, models.StatusBlocked, models.StatusRejected}
	transitionMap = map[Action]transition{
		ActionApprove:  {from: []models.AccountStatus{models.StatusPending}, to: models.StatusActive},
		ActionReject:   {from: []models.AccountStatus{models.StatusPending}, to: models.StatusRejected},
		ActionBlock:    {from: []models.AccountStatus{models.StatusActive, models.StatusBlocked}, to: models.StatusBlocked},
		ActionUnblock:  {from: []models.AccountStatus{models.StatusBlocked, models.StatusActive}, to: models.StatusActive},
		ActionVerify:   {from: anyStatus, verified: setVerified(true)},
		ActionUnverify: {from: anyStatus, verified: setVerified(false)},
	}
	roleActions = map[models.AccountRole][]Action{
		models.RoleCandidate: {ActionApprove, ActionReject, ActionBlock, ActionUnblock},
		models.RoleCompany:   {ActionApprove, ActionReject, ActionBlock, ActionUnblock, ActionVerify, ActionUnverify},
	}
)

// AllowedActions lists the actions the workflow accepts for a role.
func AllowedActions(role models.AccountRole) []Action {
	return append([]Action(nil), roleActions[role]...)
}

// planTransition returns the status and verified flag an action produces, or
// ErrInvalidAction when the action does not apply.
func planTransition(account *models.Account, action Action) (models.AccountStatus, bool, error) {
	allowed := false
	for _, candidate := range roleActions[account.Role] {
		if candidate == action {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", false, ErrInvalidAction.WithMessage(fmt.Sprintf("Action %q is not allowed for %s accounts", action, account.Role))
	}

	rule := transitionMap[action]
	inSource := false
	for _, status := range rule.from {
		if status == account.Status {
			inSource = true
			break
		}
	}
	if !inSource {
		return "", false, ErrInvalidAction.WithMessage(fmt.Sprintf("Cannot %s an account that is %s", action, account.Status))
	}

	status := account.Status
	if rule.to != "" {
		status = rule.to
	}
	verified := account.Verified
	if rule.verified != nil {
		verified = *rule.verified
	}
	return status, verified, nil
}

// BulkItemResult reports the outcome for one notification in a bulk run.
type BulkItemResult struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BulkResult aggregates a bulk resolution.
type BulkResult struct {
	ProcessedCount int              `json:"processed_count"`
	FailedCount    int              `json:"failed_count"`
	Results        []BulkItemResult `json:"results"`
}

// ResolutionResult describes a resolved notification.
type ResolutionResult struct {
	NotificationID string                  `json:"notification_id"`
	Type           models.NotificationType `json:"type"`
	Outcome        models.Resolution       `json:"outcome"`
	Action         Action                  `json:"action,omitempty"`
	Account        *AccountDTO             `json:"account,omitempty"`
}

// WorkflowService applies account status transitions and resolves the admin
// notifications they answer, each within a single transaction.
type WorkflowService struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// NewWorkflowService constructs a WorkflowService.
func NewWorkflowService(db *gorm.DB) (*WorkflowService, error) {
	if db == nil {
		return nil, errors.New("workflow service: db is required")
	}
	return &WorkflowService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logger.WithModule("workflow"),
	}, nil
}

// ApplyAction transitions the account and removes the notification the action
// answers.
func (s *WorkflowService) ApplyAction(ctx context.Context, accountID string, action Action) (*AccountDTO, error) {
	return s.apply(ctx, accountID, "", action)
}

// ApplyRoleAction is ApplyAction restricted to accounts of one role. Accounts
// of another role are reported as not found.
func (s *WorkflowService) ApplyRoleAction(ctx context.Context, accountID string, role models.AccountRole, action Action) (*AccountDTO, error) {
	return s.apply(ctx, accountID, role, action)
}

func (s *WorkflowService) apply(ctx context.Context, accountID string, role models.AccountRole, action Action) (*AccountDTO, error) {
	ctx = ensureContext(ctx)
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrAccountNotFound
	}

	var account *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if role != "" {
			var count int64
			if err := tx.Model(&models.Account{}).Where("id = ? AND role = ?", accountID, role).Count(&count).Error; err != nil {
				return fmt.Errorf("workflow service: check role: %w", err)
			}
			if count == 0 {
				return ErrAccountNotFound
			}
		}
		var err error
		account, err = s.applyActionTx(tx, accountID, action)
		return err
	})
	s.record(action, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("account action applied",
		zap.String("account_id", account.ID),
		zap.String("action", string(action)),
		zap.String("status", string(account.Status)),
		zap.Bool("verified", account.Verified),
	)
	return toAccountDTO(account), nil
}

func (s *WorkflowService) applyActionTx(tx *gorm.DB, accountID string, action Action) (*models.Account, error) {
	var account models.Account
	if err := tx.Preload("CandidateProfile").Preload("CompanyProfile").First(&account, "id = ?", accountID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("workflow service: load account: %w", err)
	}

	status, verified, err := planTransition(&account, action)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := tx.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{"status": status, "verified": verified, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("workflow service: update account: %w", err)
	}
	account.Status = status
	account.Verified = verified
	account.UpdatedAt = now

	var resolved models.NotificationType
	switch action {
	case ActionApprove, ActionReject:
		resolved, _ = models.RegistrationNotificationFor(account.Role)
	case ActionVerify:
		resolved = models.NotificationVerificationRequest
	}
	if resolved != "" {
		if err := tx.Where("target_account_id = ? AND type = ?", account.ID, resolved).
			Delete(&models.Notification{}).Error; err != nil {
			return nil, fmt.Errorf("workflow service: resolve notifications: %w", err)
		}
	}

	return &account, nil
}

// actionForResolution maps a notification type and outcome to an account
// action. A rejected verification request changes nothing.
func actionForResolution(kind models.NotificationType, outcome models.Resolution) (Action, bool) {
	switch {
	case kind.IsRegistration() && outcome == models.ResolutionApproved:
		return ActionApprove, true
	case kind.IsRegistration() && outcome == models.ResolutionRejected:
		return ActionReject, true
	case kind == models.NotificationVerificationRequest && outcome == models.ResolutionApproved:
		return ActionVerify, true
	}
	return "", false
}

// ResolveNotification applies the outcome to the notification's account and
// deletes the notification. Only one caller can claim a given notification.
func (s *WorkflowService) ResolveNotification(ctx context.Context, notificationID string, outcome models.Resolution) (*ResolutionResult, error) {
	ctx = ensureContext(ctx)
	if !outcome.Final() {
		return nil, validationError("Outcome must be approved or rejected")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil, ErrNotificationNotFound
	}

	var (
		result *ResolutionResult
		action Action
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var notification models.Notification
		if err := tx.First(&notification, "id = ?", notificationID).Error; err != nil {
			if isNotFound(err) {
				return ErrNotificationNotFound
			}
			return fmt.Errorf("workflow service: load notification: %w", err)
		}

		claim := tx.Where("id = ?", notification.ID).Delete(&models.Notification{})
		if claim.Error != nil {
			return fmt.Errorf("workflow service: delete notification: %w", claim.Error)
		}
		if claim.RowsAffected != 1 {
			return ErrNotificationNotFound
		}

		result = &ResolutionResult{
			NotificationID: notification.ID,
			Type:           notification.Type,
			Outcome:        outcome,
		}

		var ok bool
		action, ok = actionForResolution(notification.Type, outcome)
		if !ok {
			return nil
		}
		result.Action = action

		account, err := s.applyActionTx(tx, notification.TargetAccountID, action)
		if err != nil {
			return err
		}
		result.Account = toAccountDTO(account)
		return nil
	})

	if action != "" {
		s.record(action, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BulkResolve resolves each notification in its own transaction and keeps
// going after failures.
func (s *WorkflowService) BulkResolve(ctx context.Context, ids []string, outcome models.Resolution) (*BulkResult, error) {
	ctx = ensureContext(ctx)
	if !outcome.Final() {
		return nil, validationError("Outcome must be approved or rejected")
	}
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil, validationError("notification_ids must contain at least one id")
	}

	result := &BulkResult{Results: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		item := BulkItemResult{NotificationID: id, Status: string(outcome)}
		if _, err := s.ResolveNotification(ctx, id, outcome); err != nil {
			appErr := apperrors.FromError(err)
			item.Status = "failed"
			item.ErrorCode = appErr.Code
			item.Error = appErr.Message
			result.FailedCount++
		} else {
			result.ProcessedCount++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

func (s *WorkflowService) record(action Action, err error) {
	result := "applied"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidAction):
		result = "invalid"
	case errors.Is(err, apperrors.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
		s.log.Error("workflow action failed", zap.String("action", string(action)), zap.Error(err))
	}
	metrics.WorkflowActions.WithLabelValues(string(action), result).Inc()
}
