package models

// ApplicationSubmitted is the only status a fresh application carries.
const ApplicationSubmitted = "submitted"

// JobApplication links a candidate to a job. The composite unique index makes
// applying idempotent at the database level.
type JobApplication struct {
	BaseModel

	JobID       string `gorm:"size:36;not null;uniqueIndex:idx_job_applications_job_candidate,priority:1" json:"job_id"`
	CandidateID string `gorm:"size:36;not null;index;uniqueIndex:idx_job_applications_job_candidate,priority:2" json:"candidate_id"`
	Status      string `gorm:"size:32;not null;default:submitted" json:"status"`

	Job       *Job     `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
	Candidate *Account `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"-"`
}
