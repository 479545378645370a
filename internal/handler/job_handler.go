package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/service"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/response"
)

// JobHandler exposes job posting endpoints.
type JobHandler struct {
	jobs         *service.JobService
	auth         *service.AuthService
	maxFileBytes int64
}

// NewJobHandler constructs JobHandler.
func NewJobHandler(jobs *service.JobService, auth *service.AuthService, maxFileBytes int64) *JobHandler {
	return &JobHandler{jobs: jobs, auth: auth, maxFileBytes: maxFileBytes}
}

// List godoc
// @Summary List job postings
// @Tags Jobs
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var filter dto.JobFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = size
	}
	rows, pagination, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get job posting detail
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Create godoc
// @Summary Post a job vacancy
// @Tags Jobs
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param company formData string true "Company"
// @Param description formData string false "Description"
// @Param link formData string false "External link"
// @Param media formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateJobRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	files, err := formMediaFiles(c, h.maxFileBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), user, req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Delete godoc
// @Summary Delete a job posting
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 204
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
