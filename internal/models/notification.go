package models

import "time"

// NotificationType identifies what an admin inbox entry asks for.
type NotificationType string

const (
	NotificationCandidateRegistration NotificationType = "candidate_registration"
	NotificationCompanyRegistration   NotificationType = "company_registration"
	NotificationVerificationRequest   NotificationType = "verification_request"
)

// Valid reports whether the type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationCandidateRegistration, NotificationCompanyRegistration, NotificationVerificationRequest:
		return true
	}
	return false
}

// IsRegistration reports whether the notification announces a new account.
func (t NotificationType) IsRegistration() bool {
	return t == NotificationCandidateRegistration || t == NotificationCompanyRegistration
}

// RegistrationNotificationFor returns the registration type matching a role.
func RegistrationNotificationFor(role AccountRole) (NotificationType, bool) {
	switch role {
	case RoleCandidate:
		return NotificationCandidateRegistration, true
	case RoleCompany:
		return NotificationCompanyRegistration, true
	}
	return "", false
}

// Resolution is the admin outcome applied to a notification.
type Resolution string

const (
	ResolutionPending  Resolution = "pending"
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// Final reports whether the resolution closes the notification.
func (r Resolution) Final() bool {
	return r == ResolutionApproved || r == ResolutionRejected
}

// Notification is an admin inbox entry. Rows are deleted once resolved, so the
// unique index on (target_account_id, type) only ever covers open requests.
type Notification struct {
	BaseModel

	Type            NotificationType `gorm:"size:64;not null;uniqueIndex:idx_notifications_target_type,priority:2" json:"type"`
	TargetAccountID string           `gorm:"size:36;not null;uniqueIndex:idx_notifications_target_type,priority:1" json:"target_account_id"`
	Text            string           `gorm:"type:text;not null" json:"text"`
	Read            bool             `gorm:"not null;default:false;index" json:"read"`
	ReadAt          *time.Time       `json:"read_at"`
	Resolution      Resolution       `gorm:"size:16;not null;default:pending" json:"resolution"`

	TargetAccount *Account `gorm:"foreignKey:TargetAccountID;constraint:OnDelete:CASCADE" json:"-"`
}
