package models

import "time"

// PasswordResetCode stores the hash of a one-time code mailed to the user.
type PasswordResetCode struct {
	BaseModel

	AccountID string     `gorm:"size:36;not null;index" json:"account_id"`
	Email     string     `gorm:"size:320;not null;index" json:"email"`
	CodeHash  string     `gorm:"size:64;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}

// Usable reports whether the code may still be redeemed at now.
func (c *PasswordResetCode) Usable(now time.Time) bool {
	return c != nil && c.UsedAt == nil && now.Before(c.ExpiresAt)
}
