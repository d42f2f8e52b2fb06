package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	service authService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary Authenticate and obtain an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid login payload"))
		return
	}
	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Me godoc
// @Summary Current user profile
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	info, err := h.service.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}
