package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/middleware"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
	"github.com/abel-mek/school-roster-api/pkg/response"
)

type notificationService interface {
	Feed(ctx context.Context, userID string) (*dto.NotificationFeedResponse, bool, error)
	MarkSeen(ctx context.Context, userID, postID string) error
	ClearUnread(ctx context.Context, userID, chatID string) error
}

// NotificationHandler exposes the aggregated notification feed.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Feed godoc
// @Summary Aggregated notification feed
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	feed, cacheHit, err := h.service.Feed(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, feed, nil, meta)
}

// MarkSeen godoc
// @Summary Mark one post as seen
// @Tags Notifications
// @Produce json
// @Param id path string true "Post ID"
// @Success 204
// @Router /notifications/posts/{id}/seen [post]
func (h *NotificationHandler) MarkSeen(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	postID := strings.TrimSpace(c.Param("id"))
	if err := h.service.MarkSeen(c.Request.Context(), claims.UserID, postID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearUnread godoc
// @Summary Clear a chat's unread counter
// @Tags Notifications
// @Produce json
// @Param chatId path string true "Chat ID"
// @Success 204
// @Router /notifications/chats/{chatId}/unread [delete]
func (h *NotificationHandler) ClearUnread(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	chatID := strings.TrimSpace(c.Param("chatId"))
	if err := h.service.ClearUnread(c.Request.Context(), claims.UserID, chatID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
