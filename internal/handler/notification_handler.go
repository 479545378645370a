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

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter dto.NotificationFilter
	filter.UnreadOnly = c.Query("unread") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = size
	}
	rows, pagination, err := h.notifications.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	unread, err := h.notifications.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination, map[string]interface{}{"unread": unread})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notifications
// @Produce json
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkAllRead(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
