package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
}

// CourseHandler exposes course catalog endpoints.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service courseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List godoc
// @Summary List catalog courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search by code or name"
// @Param period query int false "Filter by period"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if period, err := strconv.Atoi(c.Query("period")); err == nil {
		filter.Period = period
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	courses, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create a catalog course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, course, nil)
}

// Update godoc
// @Summary Update a catalog course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course payload"))
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a catalog course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
