package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	appErrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/response"
)

// AdminHandler serves the back office: user management, the approval inbox
// and the admin curated CVs.
type AdminHandler struct {
	accounts      *services.AccountService
	workflow      *services.WorkflowService
	notifications *services.NotificationService
	files         *storage.FileStore
	log           *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(accounts *services.AccountService, workflow *services.WorkflowService, notifications *services.NotificationService, files *storage.FileStore) *AdminHandler {
	return &AdminHandler{
		accounts:      accounts,
		workflow:      workflow,
		notifications: notifications,
		files:         files,
		log:           logger.WithModule("admin"),
	}
}

// GET /admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	perPage := parseIntQuery(c, "per_page", services.MaxUsersPerPage)
	page, perPage := services.ClampPage(parseIntQuery(c, "page", 1), perPage, services.MaxUsersPerPage)

	users, total, err := h.accounts.ListUsers(requestContext(c), services.UserFilter{
		Role:                  models.AccountRole(strings.ToLower(c.Query("type"))),
		Status:                models.AccountStatus(strings.ToLower(c.Query("status"))),
		Name:                  c.Query("name"),
		SortOrder:             c.Query("sort_order"),
		HasGrowcoachFormation: parseBoolQuery(c, "has_growcoach_formation"),
		Page:                  page,
		PerPage:               perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, response.NewMeta(page, perPage, total))
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	files, err := h.accounts.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	for _, name := range files {
		h.files.Remove(name)
	}
	response.SuccessMessage(c, http.StatusOK, "User deleted", gin.H{"id": c.Param("id")})
}

type statusActionRequest struct {
	Action string `json:"action" validate:"required"`
}

var (
	candidateStatusActions = []services.Action{services.ActionBlock, services.ActionUnblock}
	companyStatusActions   = []services.Action{services.ActionVerify, services.ActionUnverify, services.ActionBlock, services.ActionUnblock}
)

// PUT /admin/candidates/:id/status
func (h *AdminHandler) CandidateStatus(c *gin.Context) {
	h.applyStatusAction(c, models.RoleCandidate, candidateStatusActions)
}

// PUT /admin/companies/:id/status
func (h *AdminHandler) CompanyStatus(c *gin.Context) {
	h.applyStatusAction(c, models.RoleCompany, companyStatusActions)
}

func (h *AdminHandler) applyStatusAction(c *gin.Context, role models.AccountRole, allowed []services.Action) {
	var req statusActionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	action, err := services.ParseAction(req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !containsAction(allowed, action) {
		response.Error(c, services.ErrInvalidAction.WithMessage(fmt.Sprintf("Action %q is not available for %s accounts", action, role)))
		return
	}

	account, err := h.workflow.ApplyRoleAction(requestContext(c), c.Param("id"), role, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, fmt.Sprintf("Account %s applied", action), account)
}

func containsAction(actions []services.Action, action services.Action) bool {
	for _, candidate := range actions {
		if candidate == action {
			return true
		}
	}
	return false
}

// POST /admin/candidates/:id/approve
func (h *AdminHandler) ApproveCandidate(c *gin.Context) {
	account, err := h.workflow.ApplyRoleAction(requestContext(c), c.Param("id"), models.RoleCandidate, services.ActionApprove)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Candidate approved", account)
}

// GET /admin/notifications
func (h *AdminHandler) Notifications(c *gin.Context) {
	kind := models.NotificationType(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	if kind != "" && !kind.Valid() {
		response.Error(c, appErrors.ErrValidation.WithMessage(fmt.Sprintf("Unknown notification type %q", kind)))
		return
	}
	unread := parseBoolQuery(c, "unread_only")

	list, err := h.notifications.ListPending(requestContext(c), services.NotificationFilter{
		Type:       kind,
		UnreadOnly: unread != nil && *unread,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// PUT /admin/notifications/:id/approve
func (h *AdminHandler) ApproveNotification(c *gin.Context) {
	h.resolveNotification(c, models.ResolutionApproved)
}

// PUT /admin/notifications/:id/reject
func (h *AdminHandler) RejectNotification(c *gin.Context) {
	h.resolveNotification(c, models.ResolutionRejected)
}

func (h *AdminHandler) resolveNotification(c *gin.Context, outcome models.Resolution) {
	result, err := h.notifications.Resolve(requestContext(c), c.Param("id"), outcome)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, fmt.Sprintf("Notification %s", outcome), result)
}

// PUT /admin/notifications/:id/mark-read
func (h *AdminHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Notification marked as read", nil)
}

// DELETE /admin/notifications/:id
func (h *AdminHandler) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Notification deleted", nil)
}

// DELETE /admin/notifications
func (h *AdminHandler) ClearNotifications(c *gin.Context) {
	removed, err := h.notifications.ClearAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Notifications cleared", gin.H{"deleted_count": removed})
}

type bulkNotificationsRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}

type bulkNotificationsResponse struct {
	*services.BulkResult
	ApprovedCount *int `json:"approved_count,omitempty"`
	RejectedCount *int `json:"rejected_count,omitempty"`
}

// PUT /admin/notifications/bulk-approve
func (h *AdminHandler) BulkApprove(c *gin.Context) {
	h.bulkResolve(c, models.ResolutionApproved)
}

// PUT /admin/notifications/bulk-reject
func (h *AdminHandler) BulkReject(c *gin.Context) {
	h.bulkResolve(c, models.ResolutionRejected)
}

func (h *AdminHandler) bulkResolve(c *gin.Context, outcome models.Resolution) {
	var req bulkNotificationsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.notifications.BulkResolve(requestContext(c), req.NotificationIDs, outcome)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := fmt.Sprintf("%d notification(s) %s", result.ProcessedCount, outcome)
	if result.FailedCount > 0 {
		message += fmt.Sprintf(", %d failed", result.FailedCount)
	}

	payload := bulkNotificationsResponse{BulkResult: result}
	processed := result.ProcessedCount
	if outcome == models.ResolutionApproved {
		payload.ApprovedCount = &processed
	} else {
		payload.RejectedCount = &processed
	}
	response.SuccessMessage(c, http.StatusOK, message, payload)
}

// GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.accounts.Stats(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /admin/candidates/:id/admin-cv
func (h *AdminHandler) AdminCV(c *gin.Context) {
	name, err := h.accounts.AdminCV(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	path, err := h.files.Path(name)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, name)
}

// POST /admin/candidates/:id/admin-cv
func (h *AdminHandler) UploadAdminCV(c *gin.Context) {
	candidateID := c.Param("id")
	ctx := requestContext(c)

	name, err := saveUpload(c, h.files, "adminCV", "admincv", storage.SanitizeFilename(candidateID), storage.DocumentExtensions)
	if err != nil {
		response.Error(c, err)
		return
	}
	if name == "" {
		response.Error(c, appErrors.NewBadRequest("adminCV file is required"))
		return
	}

	previous, err := h.accounts.SetAdminCV(ctx, candidateID, name)
	if err != nil {
		h.files.Remove(name)
		response.Error(c, err)
		return
	}
	if previous != "" && previous != name {
		h.files.Remove(previous)
	}
	h.log.Info("admin cv uploaded", zap.String("candidate_id", candidateID), zap.String("file", name))
	response.SuccessMessage(c, http.StatusCreated, "Admin CV uploaded", gin.H{"admin_cv": name})
}
