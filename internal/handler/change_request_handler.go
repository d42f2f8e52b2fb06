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

type changeRequestService interface {
	Submit(ctx context.Context, req dto.CreateChangeRequest) (*models.ChangeRequestDetail, error)
	Get(ctx context.Context, id string) (*models.ChangeRequestDetail, error)
	List(ctx context.Context, query dto.ChangeRequestQuery) ([]models.ChangeRequestDetail, error)
	Pending(ctx context.Context) ([]models.ChangeRequestDetail, error)
	Review(ctx context.Context, id string, req dto.ReviewChangeRequest, reviewerID string) (*models.ChangeRequestDetail, error)
	Remove(ctx context.Context, id string) error
}

// ChangeRequestHandler exposes the course change workflow endpoints.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Create godoc
// @Summary Submit a course change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	detail, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, detail, nil)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	var query dto.ChangeRequestQuery
	query.StudentID = strings.TrimSpace(c.Query("studentId"))
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.RequestStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status != "" {
				query.Status = append(query.Status, status)
			}
		}
	}
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		limit = v
	}
	query.Limit = limit
	query.Offset = (page - 1) * limit

	requests, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Pending godoc
// @Summary List pending change requests awaiting review
// @Tags ChangeRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests/pending [get]
func (h *ChangeRequestHandler) Pending(c *gin.Context) {
	requests, err := h.service.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get change request detail with conflicts
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Review godoc
// @Summary Approve, deny, or comment on a change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body dto.ReviewChangeRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /change-requests/{id}/review [patch]
func (h *ChangeRequestHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	detail, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a change request and its conflicts
// @Tags ChangeRequests
// @Param id path string true "Change request ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /change-requests/{id} [delete]
func (h *ChangeRequestHandler) Delete(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
