package models

import (
	"strings"
	"time"
)

// AccountRole tags which profile an account carries.
type AccountRole string

const (
	RoleCandidate AccountRole = "candidate"
	RoleCompany   AccountRole = "company"
	RoleAdmin     AccountRole = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r AccountRole) Valid() bool {
	switch r {
	case RoleCandidate, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state driven by the status workflow.
type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusActive   AccountStatus = "active"
	StatusBlocked  AccountStatus = "blocked"
	StatusRejected AccountStatus = "rejected"
)

// Valid reports whether the status is one of the known states.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusBlocked, StatusRejected:
		return true
	}
	return false
}

// CanLogin reports whether a session may be issued for the status.
func (s AccountStatus) CanLogin() bool {
	return s == StatusPending || s == StatusActive
}

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

// Account is a candidate, company or admin login. Exactly one of the profile
// relations is populated for non-admin roles.
type Account struct {
	BaseModel

	Email           string        `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Password        string        `gorm:"not null" json:"-"`
	Role            AccountRole   `gorm:"size:16;not null;index" json:"role"`
	Status          AccountStatus `gorm:"size:16;not null;index;default:pending" json:"status"`
	Verified        bool          `gorm:"not null;default:false" json:"verified"`
	TermsAccepted   bool          `gorm:"not null;default:false" json:"terms_accepted"`
	AuthProvider    string        `gorm:"size:32;not null;default:local" json:"auth_provider"`
	ProviderSubject string        `gorm:"size:255" json:"-"`
	LastLoginAt     *time.Time    `json:"last_login_at"`

	CandidateProfile *CandidateProfile `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"candidate_profile,omitempty"`
	CompanyProfile   *CompanyProfile   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"company_profile,omitempty"`
}

// NormaliseEmail lower-cases and trims an address before storage or lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns the most human friendly name available for the account.
func (a *Account) DisplayName() string {
	if a == nil {
		return ""
	}
	switch {
	case a.CandidateProfile != nil:
		name := strings.TrimSpace(a.CandidateProfile.FirstName + " " + a.CandidateProfile.LastName)
		if name != "" {
			return name
		}
	case a.CompanyProfile != nil && a.CompanyProfile.CompanyName != "":
		return a.CompanyProfile.CompanyName
	}
	return a.Email
}
