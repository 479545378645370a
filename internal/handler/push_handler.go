package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/push"
	"github.com/noah-isme/airconnect-api/pkg/response"
)

// PushHandler upgrades authenticated requests onto the live-push hub.
type PushHandler struct {
	hub    *push.Hub
	logger *zap.Logger
}

// NewPushHandler constructs PushHandler.
func NewPushHandler(hub *push.Hub, logger *zap.Logger) *PushHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushHandler{hub: hub, logger: logger}
}

// Connect godoc
// @Summary Open the caller's live notification channel
// @Tags Notifications
// @Param token query string false "Access token for websocket clients"
// @Success 101
// @Router /ws [get]
func (h *PushHandler) Connect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := push.ServeWS(h.hub, c.Writer, c.Request, claims.UserID, h.logger); err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("user_id", claims.UserID), zap.Error(err))
	}
}
