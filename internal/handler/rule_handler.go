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

type ruleService interface {
	List(ctx context.Context) ([]models.Rule, error)
	Get(ctx context.Context, id string) (*models.Rule, error)
	Create(ctx context.Context, req dto.CreateRuleRequest) (*models.Rule, error)
	Update(ctx context.Context, id string, req dto.UpdateRuleRequest) (*models.Rule, error)
	Delete(ctx context.Context, id string) error
}

// RuleHandler exposes global scheduling rule endpoints.
type RuleHandler struct {
	service ruleService
}

// NewRuleHandler constructs the handler.
func NewRuleHandler(service ruleService) *RuleHandler {
	return &RuleHandler{service: service}
}

// List godoc
// @Summary List scheduling rules
// @Tags Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Get godoc
// @Summary Get a scheduling rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Create a scheduling rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body dto.CreateRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, rule, nil)
}

// Update godoc
// @Summary Update a scheduling rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body dto.UpdateRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rules/{id} [patch]
func (h *RuleHandler) Update(c *gin.Context) {
	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete a scheduling rule
// @Tags Rules
// @Param id path string true "Rule ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
