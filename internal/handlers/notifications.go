package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazir74680/Tumor-segmeantation/internal/guard"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
)

const notificationPageSize = 50

func (h HandlerSet) ListNotifications(c *gin.Context) {
	user, _ := guard.CurrentUser(c)
	ctx := c.Request.Context()

	items, err := h.notifications.ListByUser(ctx, user.ID, notificationPageSize)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("list notifications failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("count notifications failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"unreadCount": unread,
	})
}

func (h HandlerSet) MarkNotificationRead(c *gin.Context) {
	user, _ := guard.CurrentUser(c)
	h.respondNotificationChange(c, h.notifications.MarkRead(c.Request.Context(), user.ID, c.Param("id")))
}

func (h HandlerSet) MarkAllNotificationsRead(c *gin.Context) {
	user, _ := guard.CurrentUser(c)
	h.respondNotificationChange(c, h.notifications.MarkAllRead(c.Request.Context(), user.ID))
}

func (h HandlerSet) DeleteNotification(c *gin.Context) {
	user, _ := guard.CurrentUser(c)
	h.respondNotificationChange(c, h.notifications.Delete(c.Request.Context(), user.ID, c.Param("id")))
}

func (h HandlerSet) respondNotificationChange(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification_not_found"})
	default:
		h.log.Error().Err(err).Msg("update notification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
