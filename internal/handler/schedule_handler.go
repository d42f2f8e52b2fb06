package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type scheduleService interface {
	Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.ScheduleDetail, error)
	Get(ctx context.Context, id string) (*models.ScheduleDetail, error)
	GetByStudent(ctx context.Context, studentID string) (*models.ScheduleDetail, error)
	List(ctx context.Context) ([]models.ScheduleDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.ScheduleDetail, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id, format string) ([]byte, string, error)
}

// ScheduleHandler exposes schedule assignment endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Create godoc
// @Summary Assign a student's schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, detail, nil)
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get schedule detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetByStudent godoc
// @Summary Get a student's schedule
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/schedule [get]
func (h *ScheduleHandler) GetByStudent(c *gin.Context) {
	detail, err := h.service.GetByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Add and remove schedule courses
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpdateScheduleRequest true "Add/remove payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [patch]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a schedule as CSV or PDF
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("schedule-%s.%s", c.Param("id"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
