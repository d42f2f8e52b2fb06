package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
}

// StudentHandler exposes student roster endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or email"
// @Param gradeLevel query int false "Filter by grade level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if grade, err := strconv.Atoi(c.Query("gradeLevel")); err == nil {
		filter.GradeLevel = grade
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
