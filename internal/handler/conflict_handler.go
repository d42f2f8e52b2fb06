package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type conflictService interface {
	List(ctx context.Context) ([]models.ConflictDetail, error)
	ListForRequest(ctx context.Context, requestID string) ([]models.Conflict, error)
	Resolve(ctx context.Context, id string) (*models.Conflict, error)
}

// ConflictHandler exposes detected conflict endpoints.
type ConflictHandler struct {
	service conflictService
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(service conflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// List godoc
// @Summary List detected conflicts
// @Tags Conflicts
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	conflicts, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// ListForRequest godoc
// @Summary List conflicts attached to a change request
// @Tags Conflicts
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests/{id}/conflicts [get]
func (h *ConflictHandler) ListForRequest(c *gin.Context) {
	conflicts, err := h.service.ListForRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// Resolve godoc
// @Summary Mark a conflict as resolved
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /conflicts/{id}/resolve [patch]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	conflict, err := h.service.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}
