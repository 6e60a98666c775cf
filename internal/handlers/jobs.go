package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/pkg/response"
)

// JobHandler serves the public job board and applications.
type JobHandler struct {
	jobs *services.JobService
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /jobs and GET /job/
func (h *JobHandler) List(c *gin.Context) {
	listJobs(c, h.jobs)
}

// POST /job/:id/apply
func (h *JobHandler) Apply(c *gin.Context) {
	jobID := c.Param("id")
	applicants, err := h.jobs.Apply(requestContext(c), jobID, currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Application submitted", gin.H{
		"job_id":           jobID,
		"applicants_count": applicants,
	})
}

// POST /job/create
func (h *JobHandler) CreateDraft(c *gin.Context) {
	var input services.JobInput
	if !bindJSON(c, &input) {
		return
	}
	job, err := h.jobs.CreateJob(requestContext(c), currentAccountID(c), input, services.JobEntryDraft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Job saved as draft", job)
}
