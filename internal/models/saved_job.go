package models

import "time"

// SavedJob bookmarks a job for a candidate.
type SavedJob struct {
	CandidateID string    `gorm:"primaryKey;size:36" json:"candidate_id"`
	JobID       string    `gorm:"primaryKey;size:36;index" json:"job_id"`
	CreatedAt   time.Time `json:"created_at"`

	Job *Job `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"job,omitempty"`
}
