package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.service.List(c.Request.Context(), claims.UserID, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every unread notification as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	count, err := h.service.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": count}, nil)
}
