package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/service"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/response"
)

// ApplicationHandler exposes the approval-chain endpoints.
type ApplicationHandler struct {
	applications *service.ApplicationService
	exports      *service.ExportService
	auth         *service.AuthService
	maxFileBytes int64
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications *service.ApplicationService, exports *service.ExportService, auth *service.AuthService, maxFileBytes int64) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, exports: exports, auth: auth, maxFileBytes: maxFileBytes}
}

// List godoc
// @Summary List the caller's role-scoped applications
// @Tags Applications
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter dto.ApplicationFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = size
	}
	rows, pagination, err := h.applications.List(c.Request.Context(), user, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	application, err := h.applications.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Create godoc
// @Summary Submit a new application
// @Tags Applications
// @Accept mpfd
// @Produce json
// @Param subject formData string true "Subject"
// @Param body formData string true "Body"
// @Param media formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	files, err := formMediaFiles(c, h.maxFileBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	application, err := h.applications.Create(c.Request.Context(), user, req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// Update godoc
// @Summary Edit a pending or sent-back application
// @Tags Applications
// @Accept mpfd
// @Produce json
// @Param id path string true "Application ID"
// @Param subject formData string false "Subject"
// @Param body formData string false "Body"
// @Param media formData file false "Additional attachments"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	files, err := formMediaFiles(c, h.maxFileBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	application, err := h.applications.StudentEdit(c.Request.Context(), user, c.Param("id"), req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// AdvisorAction godoc
// @Summary Record the advisor's decision
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AdvisorActionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/advisor-action [post]
func (h *ApplicationHandler) AdvisorAction(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AdvisorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.AdvisorAction(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// CoordinatorAction godoc
// @Summary Record a coordinator's decision
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.CoordinatorActionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/coordinator-action [post]
func (h *ApplicationHandler) CoordinatorAction(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CoordinatorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.CoordinatorAction(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Hide godoc
// @Summary Hide an application from the caller's own view
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 204
// @Router /applications/{id}/hide [post]
func (h *ApplicationHandler) Hide(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.applications.Hide(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Comment godoc
// @Summary Comment on an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /applications/{id}/comments [post]
func (h *ApplicationHandler) Comment(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	comment, err := h.applications.Comment(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Comments godoc
// @Summary List an application's comment thread
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/comments [get]
func (h *ApplicationHandler) Comments(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	comments, err := h.applications.Comments(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// Export godoc
// @Summary Generate the application register export
// @Tags Applications
// @Produce json
// @Param format query string false "csv (default) or pdf"
// @Success 200 {object} response.Envelope
// @Router /applications/export [post]
func (h *ApplicationHandler) Export(c *gin.Context) {
	result, err := h.exports.GenerateApplicationRegister(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated register by signed token
// @Tags Applications
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /applications/export/{token} [get]
func (h *ApplicationHandler) Download(c *gin.Context) {
	file, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
