package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/models"
)

// NotificationFilter narrows ListPending.
type NotificationFilter struct {
	Type            models.NotificationType
	TargetAccountID string
	UnreadOnly      bool
}

// NotificationService manages the admin review inbox.
type NotificationService struct {
	db       *gorm.DB
	workflow *WorkflowService
	now      func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, workflow *WorkflowService) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if workflow == nil {
		return nil, errors.New("notification service: workflow service is required")
	}
	return &NotificationService{
		db:       db,
		workflow: workflow,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Enqueue creates an unresolved notification.
func (s *NotificationService) Enqueue(ctx context.Context, kind models.NotificationType, targetAccountID, text string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var dto *NotificationDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		dto, err = s.EnqueueTx(tx, kind, targetAccountID, text)
		return err
	})
	return dto, err
}

// EnqueueTx creates an unresolved notification inside the caller's
// transaction. A second open notification of the same type for the same
// account is rejected by the unique index.
func (s *NotificationService) EnqueueTx(tx *gorm.DB, kind models.NotificationType, targetAccountID, text string) (*NotificationDTO, error) {
	if !kind.Valid() {
		return nil, validationError(fmt.Sprintf("Unknown notification type %q", kind))
	}
	targetAccountID = strings.TrimSpace(targetAccountID)
	if targetAccountID == "" {
		return nil, validationError("Notification target is required")
	}

	notification := models.Notification{
		Type:            kind,
		TargetAccountID: targetAccountID,
		Text:            strings.TrimSpace(text),
		Resolution:      models.ResolutionPending,
	}
	if err := tx.Create(&notification).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("notification service: enqueue: %w", err)
	}

	dto := toNotificationDTO(&notification)
	return &dto, nil
}

// ListPending returns unresolved notifications, newest first.
func (s *NotificationService) ListPending(ctx context.Context, filter NotificationFilter) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Preload("TargetAccount").
		Preload("TargetAccount.CandidateProfile").
		Preload("TargetAccount.CompanyProfile").
		Where("resolution IS NULL OR resolution NOT IN ?", []models.Resolution{models.ResolutionApproved, models.ResolutionRejected})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if id := strings.TrimSpace(filter.TargetAccountID); id != "" {
		query = query.Where("target_account_id = ?", id)
	}
	if filter.UnreadOnly {
		query = query.Where(map[string]any{"read": false})
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list pending: %w", err)
	}

	out := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toNotificationDTO(&rows[i]))
	}
	return out, nil
}

// HasPending reports whether an unresolved notification exists for the pair.
func (s *NotificationService) HasPending(ctx context.Context, kind models.NotificationType, targetAccountID string) (bool, error) {
	pending, err := s.ListPending(ctx, NotificationFilter{Type: kind, TargetAccountID: targetAccountID})
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// Resolve applies the outcome through the workflow engine. The notification is
// deleted in the same transaction as the account transition.
func (s *NotificationService) Resolve(ctx context.Context, id string, outcome models.Resolution) (*ResolutionResult, error) {
	return s.workflow.ResolveNotification(ctx, id, outcome)
}

// BulkResolve resolves many notifications with per-item results.
func (s *NotificationService) BulkResolve(ctx context.Context, ids []string, outcome models.Resolution) (*BulkResult, error) {
	return s.workflow.BulkResolve(ctx, ids, outcome)
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", strings.TrimSpace(id)).
		Updates(map[string]any{"read": true, "read_at": now})
	if result.Error != nil {
		return fmt.Errorf("notification service: mark read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// Delete removes a single notification without touching its account.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ClearAll removes every notification and returns how many were deleted.
func (s *NotificationService) ClearAll(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: clear: %w", result.Error)
	}
	return result.RowsAffected, nil
}
