package models

import "time"

// RevokedToken records the jti of a logged out access token until it expires.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;column:jti;size:64"`
	AccountID string    `gorm:"size:36;index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
