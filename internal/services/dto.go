package services

import (
	"time"

	"github.com/growcoach/jobboard/internal/models"
)

// AccountDTO is the API view of an account and its role profile.
type AccountDTO struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Role          models.AccountRole   `json:"role"`
	Status        models.AccountStatus `json:"status"`
	Verified      bool                 `json:"verified"`
	TermsAccepted bool                 `json:"terms_accepted"`
	AuthProvider  string               `json:"auth_provider"`
	Name          string               `json:"name"`
	LastLoginAt   *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	Candidate *models.CandidateProfile `json:"candidate,omitempty"`
	Company   *models.CompanyProfile   `json:"company,omitempty"`
}

func toAccountDTO(account *models.Account) *AccountDTO {
	if account == nil {
		return nil
	}
	return &AccountDTO{
		ID:            account.ID,
		Email:         account.Email,
		Role:          account.Role,
		Status:        account.Status,
		Verified:      account.Verified,
		TermsAccepted: account.TermsAccepted,
		AuthProvider:  account.AuthProvider,
		Name:          account.DisplayName(),
		LastLoginAt:   account.LastLoginAt,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
		Candidate:     account.CandidateProfile,
		Company:       account.CompanyProfile,
	}
}

// NotificationDTO is the admin inbox view of a notification.
type NotificationDTO struct {
	ID              string                  `json:"id"`
	Type            models.NotificationType `json:"type"`
	TargetAccountID string                  `json:"target_account_id"`
	Text            string                  `json:"text"`
	Read            bool                    `json:"read"`
	ReadAt          *time.Time              `json:"read_at,omitempty"`
	Resolution      models.Resolution       `json:"resolution"`
	CreatedAt       time.Time               `json:"created_at"`

	TargetEmail  string               `json:"target_email,omitempty"`
	TargetName   string               `json:"target_name,omitempty"`
	TargetStatus models.AccountStatus `json:"target_status,omitempty"`
}

func toNotificationDTO(n *models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:              n.ID,
		Type:            n.Type,
		TargetAccountID: n.TargetAccountID,
		Text:            n.Text,
		Read:            n.Read,
		ReadAt:          n.ReadAt,
		Resolution:      n.Resolution,
		CreatedAt:       n.CreatedAt,
	}
	if n.TargetAccount != nil {
		dto.TargetEmail = n.TargetAccount.Email
		dto.TargetName = n.TargetAccount.DisplayName()
		dto.TargetStatus = n.TargetAccount.Status
	}
	return dto
}

// CompanySummary is the company block embedded in job listings.
type CompanySummary struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Logo        string `json:"logo,omitempty"`
	Location    string `json:"location,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Verified    bool   `json:"verified"`
}

// JobDTO is the API view of a job post.
type JobDTO struct {
	ID                 string           `json:"id"`
	CompanyID          string           `json:"company_id"`
	JobTitle           string           `json:"job_title"`
	Salary             string           `json:"salary"`
	LookingForProfile  string           `json:"looking_for_profile"`
	RequiredExperience string           `json:"required_experience"`
	Description        string           `json:"description"`
	Location           string           `json:"location"`
	EmploymentType     string           `json:"employment_type"`
	Skills             []string         `json:"skills"`
	Status             models.JobStatus `json:"status"`
	ApplicantsCount    int64            `json:"applicants_count"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Company            *CompanySummary  `json:"company,omitempty"`
}

func toJobDTO(job *models.Job, applicants int64) JobDTO {
	skills := []string(job.Skills)
	if skills == nil {
		skills = []string{}
	}
	dto := JobDTO{
		ID:                 job.ID,
		CompanyID:          job.CompanyID,
		JobTitle:           job.JobTitle,
		Salary:             job.Salary,
		LookingForProfile:  job.LookingForProfile,
		RequiredExperience: job.RequiredExperience,
		Description:        job.Description,
		Location:           job.Location,
		EmploymentType:     job.EmploymentType,
		Skills:             skills,
		Status:             job.Status,
		ApplicantsCount:    applicants,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
	if job.Company != nil {
		summary := &CompanySummary{ID: job.Company.ID, Verified: job.Company.Verified}
		if profile := job.Company.CompanyProfile; profile != nil {
			summary.CompanyName = profile.CompanyName
			summary.Logo = profile.Logo
			summary.Location = profile.Location
			summary.Industry = profile.Industry
		}
		dto.Company = summary
	}
	return dto
}
