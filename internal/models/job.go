package models

import "gorm.io/datatypes"

// JobStatus is the publication state of a job post.
type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobInactive JobStatus = "inactive"
	JobClosed   JobStatus = "closed"
	JobDraft    JobStatus = "draft"
)

// Valid reports whether the status is known.
func (s JobStatus) Valid() bool {
	switch s {
	case JobActive, JobInactive, JobClosed, JobDraft:
		return true
	}
	return false
}

// Job is a post owned by exactly one company account.
type Job struct {
	BaseModel

	CompanyID          string                      `gorm:"size:36;not null;index" json:"company_id"`
	JobTitle           string                      `gorm:"size:255;not null;index" json:"job_title"`
	Salary             string                      `gorm:"size:128;not null" json:"salary"`
	LookingForProfile  string                      `gorm:"size:255;not null" json:"looking_for_profile"`
	RequiredExperience string                      `gorm:"size:255;not null" json:"required_experience"`
	Description        string                      `gorm:"type:text" json:"description"`
	Location           string                      `gorm:"size:255;index" json:"location"`
	EmploymentType     string                      `gorm:"size:64;index" json:"employment_type"`
	Skills             datatypes.JSONSlice[string] `json:"skills"`
	Status             JobStatus                   `gorm:"size:16;not null;default:active;index" json:"status"`

	Company      *Account         `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
	Applications []JobApplication `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}
