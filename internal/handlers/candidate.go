package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	appErrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/response"
)

// CandidateHandler serves the candidate portal.
type CandidateHandler struct {
	accounts *services.AccountService
	jobs     *services.JobService
	files    *storage.FileStore
}

// NewCandidateHandler constructs a CandidateHandler.
func NewCandidateHandler(accounts *services.AccountService, jobs *services.JobService, files *storage.FileStore) *CandidateHandler {
	return &CandidateHandler{accounts: accounts, jobs: jobs, files: files}
}

// POST /candidate/signup
func (h *CandidateHandler) Signup(c *gin.Context) {
	var input services.CandidateRegistration
	if err := c.ShouldBind(&input); err != nil {
		response.Error(c, appErrors.NewBadRequest("Invalid signup payload"))
		return
	}

	uploads := &uploadSet{files: h.files}
	if isMultipart(c) {
		input.Skills = formSkills(c)
		sections := map[string]*json.RawMessage{
			services.SectionEducation:             &input.Education,
			services.SectionExperience:            &input.Experience,
			services.SectionProfessionalFormation: &input.ProfessionalFormation,
			services.SectionProjects:              &input.Projects,
			services.SectionGrowcoachFormation:    &input.GrowcoachFormation,
		}
		for name, dest := range sections {
			raw, err := formSection(c, name)
			if err != nil {
				response.Error(c, err)
				return
			}
			*dest = raw
		}

		owner := "new-" + uuid.NewString()[:8]
		var err error
		if input.Avatar, err = uploads.save(c, "avatar", "avatar", owner, storage.ImageExtensions); err != nil {
			response.Error(c, err)
			return
		}
		if input.Resume, err = uploads.save(c, "resume", "resume", owner, storage.ResumeExtensions); err != nil {
			uploads.rollback()
			response.Error(c, err)
			return
		}
	}

	account, err := h.accounts.RegisterCandidate(requestContext(c), input)
	if err != nil {
		uploads.rollback()
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Registration successful. Your account is awaiting approval.", account)
}

// GET /candidate/profile
func (h *CandidateHandler) Profile(c *gin.Context) {
	account, err := h.accounts.GetProfile(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// PUT /candidate/update
func (h *CandidateHandler) Update(c *gin.Context) {
	ctx := requestContext(c)
	accountID := currentAccountID(c)

	var input services.CandidateProfileUpdate
	uploads := &uploadSet{files: h.files}
	if isMultipart(c) {
		if err := h.candidateUpdateFromForm(c, &input); err != nil {
			response.Error(c, err)
			return
		}
		avatar, err := uploads.save(c, "avatar", "avatar", accountID, storage.ImageExtensions)
		if err != nil {
			response.Error(c, err)
			return
		}
		resume, err := uploads.save(c, "resume", "resume", accountID, storage.ResumeExtensions)
		if err != nil {
			uploads.rollback()
			response.Error(c, err)
			return
		}
		if avatar != "" {
			input.Avatar = &avatar
		}
		if resume != "" {
			input.Resume = &resume
		}
	} else if !bindJSON(c, &input) {
		return
	}

	before, err := h.accounts.GetProfile(ctx, accountID)
	if err != nil {
		uploads.rollback()
		response.Error(c, err)
		return
	}

	account, err := h.accounts.UpdateCandidateProfile(ctx, accountID, input)
	if err != nil {
		uploads.rollback()
		response.Error(c, err)
		return
	}

	if previous := before.Candidate; previous != nil {
		if input.Avatar != nil && previous.Avatar != *input.Avatar {
			h.files.Remove(previous.Avatar)
		}
		if input.Resume != nil && previous.Resume != *input.Resume {
			h.files.Remove(previous.Resume)
		}
	}
	response.SuccessMessage(c, http.StatusOK, "Profile updated", account)
}

func (h *CandidateHandler) candidateUpdateFromForm(c *gin.Context, input *services.CandidateProfileUpdate) error {
	input.FirstName = formString(c, "first_name")
	input.LastName = formString(c, "last_name")
	input.Phone = formString(c, "phone")
	input.Location = formString(c, "location")
	input.Bio = formString(c, "bio")
	input.Skills = formSkills(c)

	formation, err := formBool(c, "has_growcoach_formation")
	if err != nil {
		return err
	}
	input.HasGrowcoachFormation = formation

	for name, dest := range map[string]*json.RawMessage{
		services.SectionEducation:             &input.Education,
		services.SectionExperience:            &input.Experience,
		services.SectionProfessionalFormation: &input.ProfessionalFormation,
		services.SectionProjects:              &input.Projects,
		services.SectionGrowcoachFormation:    &input.GrowcoachFormation,
	} {
		raw, err := formSection(c, name)
		if err != nil {
			return err
		}
		*dest = raw
	}
	return nil
}

// GET /candidate/completion
func (h *CandidateHandler) Completion(c *gin.Context) {
	completion, err := h.accounts.ProfileCompletion(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"profile_completion": completion,
		"is_complete":        completion >= 80,
	})
}

// GET /candidate/dashboard
func (h *CandidateHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.accounts.Dashboard(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dashboard)
}

// GET /candidate/applications
func (h *CandidateHandler) Applications(c *gin.Context) {
	applications, err := h.jobs.ListCandidateApplications(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, applications)
}

// GET /candidate/jobs
func (h *CandidateHandler) Jobs(c *gin.Context) {
	listJobs(c, h.jobs)
}

// GET /candidate/job/:id
func (h *CandidateHandler) Job(c *gin.Context) {
	job, err := h.jobs.GetJobForCandidate(requestContext(c), c.Param("id"), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// GET /candidate/saved-jobs
func (h *CandidateHandler) SavedJobs(c *gin.Context) {
	jobs, err := h.jobs.ListSavedJobs(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, jobs)
}

type savedJobRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

// POST /candidate/save-job
func (h *CandidateHandler) SaveJob(c *gin.Context) {
	var req savedJobRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.jobs.SaveJob(requestContext(c), strings.TrimSpace(req.JobID), currentAccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Job saved", gin.H{"job_id": req.JobID, "saved": true})
}

// POST /candidate/unsave-job
func (h *CandidateHandler) UnsaveJob(c *gin.Context) {
	var req savedJobRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.jobs.UnsaveJob(requestContext(c), strings.TrimSpace(req.JobID), currentAccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Job removed from saved jobs", gin.H{"job_id": req.JobID, "saved": false})
}

// listJobs serves the paginated active job search shared by the public and
// candidate listings.
func listJobs(c *gin.Context, jobs *services.JobService) {
	page, perPage := services.ClampPage(parseIntQuery(c, "page", 1), parseIntQuery(c, "per_page", 10), services.MaxJobsPerPage)
	search := c.Query("search")
	if search == "" {
		search = c.Query("q")
	}

	list, total, err := jobs.ListPublicJobs(requestContext(c), services.JobFilter{
		Query:          search,
		Location:       c.Query("location"),
		EmploymentType: c.Query("employment_type"),
		Page:           page,
		PerPage:        perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, list, response.NewMeta(page, perPage, total))
}
