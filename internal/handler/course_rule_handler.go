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

type courseRuleService interface {
	List(ctx context.Context) ([]models.CourseRuleDetail, error)
	ListForCourse(ctx context.Context, courseID string) ([]models.CourseRule, error)
	Create(ctx context.Context, req dto.CreateCourseRuleRequest) (*models.CourseRule, error)
	Update(ctx context.Context, id string, req dto.UpdateCourseRuleRequest) (*models.CourseRule, error)
	Delete(ctx context.Context, id string) error
}

// CourseRuleHandler exposes pairwise course rule endpoints.
type CourseRuleHandler struct {
	service courseRuleService
}

// NewCourseRuleHandler constructs the handler.
func NewCourseRuleHandler(service courseRuleService) *CourseRuleHandler {
	return &CourseRuleHandler{service: service}
}

// List godoc
// @Summary List course rules
// @Tags CourseRules
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-rules [get]
func (h *CourseRuleHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// ListForCourse godoc
// @Summary List rules referencing a course
// @Tags CourseRules
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/rules [get]
func (h *CourseRuleHandler) ListForCourse(c *gin.Context) {
	rules, err := h.service.ListForCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Create godoc
// @Summary Create a course rule
// @Tags CourseRules
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRuleRequest true "Course rule payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /course-rules [post]
func (h *CourseRuleHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course rule payload"))
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
// @Summary Update a course rule
// @Tags CourseRules
// @Accept json
// @Produce json
// @Param id path string true "Course rule ID"
// @Param payload body dto.UpdateCourseRuleRequest true "Course rule payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-rules/{id} [patch]
func (h *CourseRuleHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course rule payload"))
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
// @Summary Delete a course rule
// @Tags CourseRules
// @Param id path string true "Course rule ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /course-rules/{id} [delete]
func (h *CourseRuleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
