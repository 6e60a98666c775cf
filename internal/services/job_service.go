package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/growcoach/jobboard/internal/models"
	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/metrics"
)

// SkillList accepts either a JSON array or a comma separated string.
type SkillList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *SkillList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("skills must be a list or a comma separated string")
	}
	*l = SkillList{joined}
	return nil
}

// JobInput carries the editable fields of a job post.
type JobInput struct {
	JobTitle           string    `json:"job_title" validate:"required,max=255"`
	Salary             string    `json:"salary" validate:"required,max=128"`
	LookingForProfile  string    `json:"looking_for_profile" validate:"required,max=255"`
	RequiredExperience string    `json:"required_experience" validate:"required,max=255"`
	Description        string    `json:"description"`
	Location           string    `json:"location" validate:"max=255"`
	EmploymentType     string    `json:"employment_type" validate:"max=64"`
	Skills             SkillList `json:"skills"`
}

func (in *JobInput) normalise() {
	in.JobTitle = strings.ToLower(strings.TrimSpace(in.JobTitle))
	in.Salary = strings.TrimSpace(in.Salary)
	in.LookingForProfile = strings.ToLower(strings.TrimSpace(in.LookingForProfile))
	in.RequiredExperience = strings.TrimSpace(in.RequiredExperience)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.EmploymentType = strings.TrimSpace(in.EmploymentType)
	in.Skills = normaliseSkills(in.Skills)
}

// JobEntry selects the initial status of a new job.
type JobEntry int

const (
	// JobEntryCompany publishes immediately.
	JobEntryCompany JobEntry = iota
	// JobEntryDraft stores the job as a draft.
	JobEntryDraft
)

// JobFilter narrows the public job listing.
type JobFilter struct {
	Query          string
	Location       string
	EmploymentType string
	Page           int
	PerPage        int
}

// JobDetail is a job as seen by one candidate.
type JobDetail struct {
	JobDTO
	HasApplied bool `json:"has_applied"`
	Saved      bool `json:"saved"`
}

// ApplicantDTO is a candidate who applied to a job.
type ApplicantDTO struct {
	ApplicationID string      `json:"application_id"`
	Status        string      `json:"status"`
	AppliedAt     time.Time   `json:"applied_at"`
	Candidate     *AccountDTO `json:"candidate"`
}

// ApplicationDTO is an application as seen by the candidate.
type ApplicationDTO struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	AppliedAt time.Time `json:"applied_at"`
	Job       *JobDTO   `json:"job,omitempty"`
}

// MaxJobsPerPage caps the public job listing page size.
const MaxJobsPerPage = 50

// JobService manages job posts, applications and saved jobs.
type JobService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewJobService constructs a JobService.
func NewJobService(db *gorm.DB) (*JobService, error) {
	if db == nil {
		return nil, errors.New("job service: db is required")
	}
	return &JobService{db: db, log: logger.WithModule("jobs")}, nil
}

// CreateJob stores a new job for an existing company.
func (s *JobService) CreateJob(ctx context.Context, companyID string, input JobInput, entry JobEntry) (*JobDTO, error) {
	ctx = ensureContext(ctx)
	input.normalise()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	status := models.JobActive
	if entry == JobEntryDraft {
		status = models.JobDraft
	}

	var job models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := loadRoleAccount(tx, strings.TrimSpace(companyID), models.RoleCompany)
		if err != nil {
			return err
		}
		job = models.Job{
			CompanyID:          company.ID,
			JobTitle:           input.JobTitle,
			Salary:             input.Salary,
			LookingForProfile:  input.LookingForProfile,
			RequiredExperience: input.RequiredExperience,
			Description:        input.Description,
			Location:           input.Location,
			EmploymentType:     input.EmploymentType,
			Skills:             datatypes.JSONSlice[string](input.Skills),
			Status:             status,
			Company:            company,
		}
		if err := tx.Omit(clause.Associations).Create(&job).Error; err != nil {
			return fmt.Errorf("job service: create job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job created", zap.String("job_id", job.ID), zap.String("company_id", job.CompanyID), zap.String("status", string(status)))
	dto := toJobDTO(&job, 0)
	return &dto, nil
}

// UpdateJob edits a job owned by the company.
func (s *JobService) UpdateJob(ctx context.Context, jobID, companyID string, input JobInput) (*JobDTO, error) {
	ctx = ensureContext(ctx)
	input.normalise()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var dto JobDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := loadOwnedJob(tx, jobID, companyID)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"job_title":           input.JobTitle,
			"salary":              input.Salary,
			"looking_for_profile": input.LookingForProfile,
			"required_experience": input.RequiredExperience,
			"description":         input.Description,
			"location":            input.Location,
			"employment_type":     input.EmploymentType,
			"skills":              datatypes.JSONSlice[string](input.Skills),
		}
		if err := tx.Model(&models.Job{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("job service: update job: %w", err)
		}
		dto, err = getJobDTO(tx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// UpdateStatus changes the publication state of a job owned by the company.
func (s *JobService) UpdateStatus(ctx context.Context, jobID, companyID string, status models.JobStatus) (*JobDTO, error) {
	ctx = ensureContext(ctx)
	status = models.JobStatus(strings.ToLower(strings.TrimSpace(string(status))))
	switch status {
	case models.JobActive, models.JobInactive, models.JobClosed:
	default:
		return nil, validationError("status must be one of: active, inactive, closed")
	}

	var dto JobDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := loadOwnedJob(tx, jobID, companyID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", status).Error; err != nil {
			return fmt.Errorf("job service: update status: %w", err)
		}
		dto, err = getJobDTO(tx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Apply records a candidate application and returns the job's applicant count.
func (s *JobService) Apply(ctx context.Context, jobID, candidateID string) (int64, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	candidate, err := loadRoleAccount(db, strings.TrimSpace(candidateID), models.RoleCandidate)
	if err != nil {
		return 0, err
	}
	job, err := loadJob(db, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != models.JobActive {
		return 0, validationError("This job is not accepting applications")
	}

	application := models.JobApplication{
		JobID:       job.ID,
		CandidateID: candidate.ID,
		Status:      models.ApplicationSubmitted,
	}
	if err := db.Create(&application).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.Applications.WithLabelValues("duplicate").Inc()
			return 0, ErrAlreadyApplied
		}
		return 0, fmt.Errorf("job service: apply: %w", err)
	}
	metrics.Applications.WithLabelValues("submitted").Inc()

	count, err := countApplicants(db, job.ID)
	if err != nil {
		return 0, err
	}
	s.log.Info("application submitted", zap.String("job_id", job.ID), zap.String("candidate_id", candidate.ID))
	return count, nil
}

// GetJob returns a single job with its company summary.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*JobDTO, error) {
	ctx = ensureContext(ctx)
	dto, err := getJobDTO(s.db.WithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// GetJobForCandidate returns a job with the candidate's application and
// bookmark state.
func (s *JobService) GetJobForCandidate(ctx context.Context, jobID, candidateID string) (*JobDetail, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	dto, err := getJobDTO(db, jobID)
	if err != nil {
		return nil, err
	}
	detail := &JobDetail{JobDTO: dto}

	var applied, saved int64
	if err := db.Model(&models.JobApplication{}).Where("job_id = ? AND candidate_id = ?", dto.ID, candidateID).Count(&applied).Error; err != nil {
		return nil, fmt.Errorf("job service: check application: %w", err)
	}
	if err := db.Model(&models.SavedJob{}).Where("job_id = ? AND candidate_id = ?", dto.ID, candidateID).Count(&saved).Error; err != nil {
		return nil, fmt.Errorf("job service: check saved: %w", err)
	}
	detail.HasApplied = applied > 0
	detail.Saved = saved > 0
	return detail, nil
}

// ListPublicJobs returns active jobs matching the filter.
func (s *JobService) ListPublicJobs(ctx context.Context, filter JobFilter) ([]JobDTO, int64, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)
	page, perPage := ClampPage(filter.Page, filter.PerPage, MaxJobsPerPage)

	query := db.Model(&models.Job{}).Where("status = ?", models.JobActive)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		query = query.Where("LOWER(job_title) LIKE ? OR LOWER(looking_for_profile) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern, pattern)
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		query = query.Where("LOWER(location) LIKE ?", likePattern(location))
	}
	if kind := strings.TrimSpace(filter.EmploymentType); kind != "" {
		query = query.Where("LOWER(employment_type) = ?", strings.ToLower(kind))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("job service: count jobs: %w", err)
	}

	var jobs []models.Job
	err := query.
		Preload("Company").
		Preload("Company.CompanyProfile").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("job service: list jobs: %w", err)
	}

	out, err := jobDTOs(db, jobs)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListCompanyJobs returns every job owned by the company.
func (s *JobService) ListCompanyJobs(ctx context.Context, companyID string) ([]JobDTO, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	var jobs []models.Job
	err := db.Preload("Company").
		Preload("Company.CompanyProfile").
		Where("company_id = ?", strings.TrimSpace(companyID)).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("job service: list company jobs: %w", err)
	}
	return jobDTOs(db, jobs)
}

// ListApplicants returns the candidates who applied to a job owned by the
// company.
func (s *JobService) ListApplicants(ctx context.Context, jobID, companyID string) ([]ApplicantDTO, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	job, err := loadOwnedJob(db, jobID, companyID)
	if err != nil {
		return nil, err
	}

	var applications []models.JobApplication
	err = db.Preload("Candidate").
		Preload("Candidate.CandidateProfile").
		Where("job_id = ?", job.ID).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("job service: list applicants: %w", err)
	}

	out := make([]ApplicantDTO, 0, len(applications))
	for i := range applications {
		app := &applications[i]
		out = append(out, ApplicantDTO{
			ApplicationID: app.ID,
			Status:        app.Status,
			AppliedAt:     app.CreatedAt,
			Candidate:     toAccountDTO(app.Candidate),
		})
	}
	return out, nil
}

// ListCandidateApplications returns the candidate's applications, newest first.
func (s *JobService) ListCandidateApplications(ctx context.Context, candidateID string) ([]ApplicationDTO, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	var applications []models.JobApplication
	err := db.Preload("Job").
		Preload("Job.Company").
		Preload("Job.Company.CompanyProfile").
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("job service: list applications: %w", err)
	}

	jobs := make([]models.Job, 0, len(applications))
	for _, app := range applications {
		if app.Job != nil {
			jobs = append(jobs, *app.Job)
		}
	}
	counts, err := applicantCounts(db, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]ApplicationDTO, 0, len(applications))
	for i := range applications {
		app := &applications[i]
		item := ApplicationDTO{ID: app.ID, Status: app.Status, AppliedAt: app.CreatedAt}
		if app.Job != nil {
			dto := toJobDTO(app.Job, counts[app.Job.ID])
			item.Job = &dto
		}
		out = append(out, item)
	}
	return out, nil
}

// SaveJob bookmarks a job. Saving twice is a no-op.
func (s *JobService) SaveJob(ctx context.Context, jobID, candidateID string) error {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	job, err := loadJob(db, jobID)
	if err != nil {
		return err
	}
	saved := models.SavedJob{CandidateID: strings.TrimSpace(candidateID), JobID: job.ID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&saved).Error; err != nil {
		return fmt.Errorf("job service: save job: %w", err)
	}
	return nil
}

// UnsaveJob removes a bookmark. Removing an absent bookmark is a no-op.
func (s *JobService) UnsaveJob(ctx context.Context, jobID, candidateID string) error {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	job, err := loadJob(db, jobID)
	if err != nil {
		return err
	}
	if err := db.Where("candidate_id = ? AND job_id = ?", strings.TrimSpace(candidateID), job.ID).Delete(&models.SavedJob{}).Error; err != nil {
		return fmt.Errorf("job service: unsave job: %w", err)
	}
	return nil
}

// ListSavedJobs returns the candidate's bookmarked jobs.
func (s *JobService) ListSavedJobs(ctx context.Context, candidateID string) ([]JobDTO, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	var saved []models.SavedJob
	err := db.Preload("Job").
		Preload("Job.Company").
		Preload("Job.Company.CompanyProfile").
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		Order("created_at DESC").
		Find(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("job service: list saved jobs: %w", err)
	}

	jobs := make([]models.Job, 0, len(saved))
	for _, item := range saved {
		if item.Job != nil {
			jobs = append(jobs, *item.Job)
		}
	}
	return jobDTOs(db, jobs)
}

func loadJob(db *gorm.DB, jobID string) (*models.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrJobNotFound
	}
	var job models.Job
	if err := db.First(&job, "id = ?", jobID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job service: load job: %w", err)
	}
	return &job, nil
}

func loadOwnedJob(db *gorm.DB, jobID, companyID string) (*models.Job, error) {
	job, err := loadJob(db, jobID)
	if err != nil {
		return nil, err
	}
	if job.CompanyID != strings.TrimSpace(companyID) {
		return nil, apperrors.NewForbidden("You do not own this job")
	}
	return job, nil
}

func getJobDTO(db *gorm.DB, jobID string) (JobDTO, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return JobDTO{}, ErrJobNotFound
	}
	var job models.Job
	err := db.Preload("Company").Preload("Company.CompanyProfile").First(&job, "id = ?", jobID).Error
	if err != nil {
		if isNotFound(err) {
			return JobDTO{}, ErrJobNotFound
		}
		return JobDTO{}, fmt.Errorf("job service: get job: %w", err)
	}
	count, err := countApplicants(db, job.ID)
	if err != nil {
		return JobDTO{}, err
	}
	return toJobDTO(&job, count), nil
}

func recentActiveJobs(db *gorm.DB, limit int) ([]JobDTO, error) {
	var jobs []models.Job
	err := db.Preload("Company").
		Preload("Company.CompanyProfile").
		Where("status = ?", models.JobActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("job service: recent jobs: %w", err)
	}
	return jobDTOs(db, jobs)
}

func countApplicants(db *gorm.DB, jobID string) (int64, error) {
	var count int64
	if err := db.Model(&models.JobApplication{}).Where("job_id = ?", jobID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("job service: count applicants: %w", err)
	}
	return count, nil
}

func applicantCounts(db *gorm.DB, jobs []models.Job) (map[string]int64, error) {
	counts := make(map[string]int64, len(jobs))
	if len(jobs) == 0 {
		return counts, nil
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}

	var rows []struct {
		JobID string
		Total int64
	}
	err := db.Model(&models.JobApplication{}).
		Select("job_id, COUNT(*) AS total").
		Where("job_id IN ?", ids).
		Group("job_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("job service: count applicants: %w", err)
	}
	for _, row := range rows {
		counts[row.JobID] = row.Total
	}
	return counts, nil
}

func jobDTOs(db *gorm.DB, jobs []models.Job) ([]JobDTO, error) {
	counts, err := applicantCounts(db, jobs)
	if err != nil {
		return nil, err
	}
	out := make([]JobDTO, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobDTO(&jobs[i], counts[jobs[i].ID]))
	}
	return out, nil
}
