package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type settingsService interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, req dto.UpdateSettingsRequest) (*models.Settings, error)
}

// SettingsHandler exposes the school settings singleton.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get godoc
// @Summary Get school settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update school settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /settings [patch]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
