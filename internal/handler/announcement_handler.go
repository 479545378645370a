package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/service"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/response"
)

// AnnouncementHandler exposes the announcement feed endpoints.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
	auth          *service.AuthService
	maxFileBytes  int64
}

// NewAnnouncementHandler constructs AnnouncementHandler.
func NewAnnouncementHandler(announcements *service.AnnouncementService, auth *service.AuthService, maxFileBytes int64) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, auth: auth, maxFileBytes: maxFileBytes}
}

// List godoc
// @Summary List announcements visible to the caller
// @Tags Announcements
// @Produce json
// @Param batch query string false "Narrow to one batch name"
// @Param section query string false "Narrow to one section"
// @Param role query string false "Narrow to authors holding a role"
// @Param search query string false "Full-text search in descriptions"
// @Param sort query string false "latest (default) or oldest"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter dto.AnnouncementFilter
	filter.Batch = strings.TrimSpace(c.Query("batch"))
	filter.Section = strings.TrimSpace(c.Query("section"))
	filter.Role = strings.TrimSpace(c.Query("role"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Sort = c.Query("sort")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = size
	}

	items, pagination, err := h.announcements.List(c.Request.Context(), user, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get announcement detail
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	announcement, err := h.announcements.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Create godoc
// @Summary Post an announcement
// @Tags Announcements
// @Accept mpfd
// @Produce json
// @Param description formData string true "Body text"
// @Param section formData string false "Target section, defaults to the author's"
// @Param batch_id formData string false "Scope to one batch"
// @Param media formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	files, err := formMediaFiles(c, h.maxFileBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	announcement, err := h.announcements.Create(c.Request.Context(), user, req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// Update godoc
// @Summary Edit an announcement's description
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "New description"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	announcement, err := h.announcements.Update(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Delete godoc
// @Summary Delete an announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	user, err := currentUser(c, h.auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.announcements.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Like godoc
// @Summary Toggle a like
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id}/like [post]
func (h *AnnouncementHandler) Like(c *gin.Context) {
	h.react(c, models.ReactionLike)
}

// Dislike godoc
// @Summary Toggle a dislike
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id}/dislike [post]
func (h *AnnouncementHandler) Dislike(c *gin.Context) {
	h.react(c, models.ReactionDislike)
}

func (h *AnnouncementHandler) react(c *gin.Context, kind models.ReactionKind) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.announcements.React(c.Request.Context(), claims.UserID, c.Param("id"), kind); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Comment godoc
// @Summary Comment on an announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /announcements/{id}/comments [post]
func (h *AnnouncementHandler) Comment(c *gin.Context) {
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
	comment, err := h.announcements.Comment(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Comments godoc
// @Summary List comments on an announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id}/comments [get]
func (h *AnnouncementHandler) Comments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	comments, pagination, err := h.announcements.Comments(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, pagination)
}
