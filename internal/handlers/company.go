package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	appErrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/response"
)

// CompanyHandler serves the company portal.
type CompanyHandler struct {
	accounts *services.AccountService
	jobs     *services.JobService
	files    *storage.FileStore
}

// NewCompanyHandler constructs a CompanyHandler.
func NewCompanyHandler(accounts *services.AccountService, jobs *services.JobService, files *storage.FileStore) *CompanyHandler {
	return &CompanyHandler{accounts: accounts, jobs: jobs, files: files}
}

// POST /company/signup
func (h *CompanyHandler) Signup(c *gin.Context) {
	var input services.CompanyRegistration
	if err := c.ShouldBind(&input); err != nil {
		response.Error(c, appErrors.NewBadRequest("Invalid signup payload"))
		return
	}

	uploads := &uploadSet{files: h.files}
	if isMultipart(c) {
		logo, err := uploads.save(c, "logo", "logo", "new-"+uuid.NewString()[:8], storage.ImageExtensions)
		if err != nil {
			response.Error(c, err)
			return
		}
		input.Logo = logo
	}

	account, err := h.accounts.RegisterCompany(requestContext(c), input)
	if err != nil {
		uploads.rollback()
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Registration successful. Your account is awaiting approval.", account)
}

// GET /company/profile
func (h *CompanyHandler) Profile(c *gin.Context) {
	account, err := h.accounts.GetProfile(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// PUT /company/profile
func (h *CompanyHandler) UpdateProfile(c *gin.Context) {
	ctx := requestContext(c)
	accountID := currentAccountID(c)

	var input services.CompanyProfileUpdate
	uploads := &uploadSet{files: h.files}
	if isMultipart(c) {
		input.CompanyName = formString(c, "company_name")
		input.Phone = formString(c, "phone")
		input.Location = formString(c, "location")
		input.Description = formString(c, "description")
		input.Website = formString(c, "website")
		input.Industry = formString(c, "industry")
		input.CompanySize = formString(c, "company_size")
		year, err := formInt(c, "founded_year")
		if err != nil {
			response.Error(c, err)
			return
		}
		input.FoundedYear = year

		logo, err := uploads.save(c, "logo", "logo", accountID, storage.ImageExtensions)
		if err != nil {
			response.Error(c, err)
			return
		}
		if logo != "" {
			input.Logo = &logo
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

	account, err := h.accounts.UpdateCompanyProfile(ctx, accountID, input)
	if err != nil {
		uploads.rollback()
		response.Error(c, err)
		return
	}
	if previous := before.Company; previous != nil && input.Logo != nil && previous.Logo != *input.Logo {
		h.files.Remove(previous.Logo)
	}
	response.SuccessMessage(c, http.StatusOK, "Profile updated", account)
}

// GET /company/candidates
func (h *CompanyHandler) Candidates(c *gin.Context) {
	page, perPage := services.ClampPage(parseIntQuery(c, "page", 1), parseIntQuery(c, "per_page", 10), services.MaxCandidatesPerPage)
	candidates, total, err := h.accounts.BrowseCandidates(requestContext(c), services.CandidateFilter{
		Query:   c.Query("search"),
		Skill:   c.Query("skill"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, candidates, response.NewMeta(page, perPage, total))
}

// GET /company/verification-status
func (h *CompanyHandler) VerificationStatus(c *gin.Context) {
	status, err := h.accounts.VerificationStatus(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// POST /company/request-verification
func (h *CompanyHandler) RequestVerification(c *gin.Context) {
	notification, err := h.accounts.RequestVerification(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Verification request submitted", notification)
}

// GET /company/jobs
func (h *CompanyHandler) Jobs(c *gin.Context) {
	jobs, err := h.jobs.ListCompanyJobs(requestContext(c), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, jobs)
}

// POST /company/jobs
func (h *CompanyHandler) CreateJob(c *gin.Context) {
	var input services.JobInput
	if !bindJSON(c, &input) {
		return
	}
	job, err := h.jobs.CreateJob(requestContext(c), currentAccountID(c), input, services.JobEntryCompany)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Job created", job)
}

// PUT /company/jobs/:id
func (h *CompanyHandler) UpdateJob(c *gin.Context) {
	var input services.JobInput
	if !bindJSON(c, &input) {
		return
	}
	job, err := h.jobs.UpdateJob(requestContext(c), c.Param("id"), currentAccountID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Job updated", job)
}

type jobStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PUT /company/jobs/:id/status
func (h *CompanyHandler) UpdateJobStatus(c *gin.Context) {
	var req jobStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	status := models.JobStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	job, err := h.jobs.UpdateStatus(requestContext(c), c.Param("id"), currentAccountID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusOK, "Job status updated", job)
}

// GET /company/jobs/:id/applicants
func (h *CompanyHandler) Applicants(c *gin.Context) {
	applicants, err := h.jobs.ListApplicants(requestContext(c), c.Param("id"), currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"job_id":     c.Param("id"),
		"count":      len(applicants),
		"applicants": applicants,
	})
}
