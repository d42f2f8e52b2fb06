package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/middleware"
	"github.com/schedexpress/schedexpress-api/internal/models"
)

type changeRequestServiceMock struct {
	submitResp *models.ChangeRequestDetail
	submitErr  error
	reviewResp *models.ChangeRequestDetail
	reviewErr  error
	reviewerID string
	removed    []string
}

func (m *changeRequestServiceMock) Submit(ctx context.Context, req dto.CreateChangeRequest) (*models.ChangeRequestDetail, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.submitResp, nil
}

func (m *changeRequestServiceMock) Get(ctx context.Context, id string) (*models.ChangeRequestDetail, error) {
	return &models.ChangeRequestDetail{}, nil
}

func (m *changeRequestServiceMock) List(ctx context.Context, query dto.ChangeRequestQuery) ([]models.ChangeRequestDetail, error) {
	return nil, nil
}

func (m *changeRequestServiceMock) Pending(ctx context.Context) ([]models.ChangeRequestDetail, error) {
	return nil, nil
}

func (m *changeRequestServiceMock) Review(ctx context.Context, id string, req dto.ReviewChangeRequest, reviewerID string) (*models.ChangeRequestDetail, error) {
	m.reviewerID = reviewerID
	if m.reviewErr != nil {
		return nil, m.reviewErr
	}
	return m.reviewResp, nil
}

func (m *changeRequestServiceMock) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	return nil
}

func TestChangeRequestHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &changeRequestServiceMock{submitResp: &models.ChangeRequestDetail{}}
	handler := NewChangeRequestHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "math101",
		NewCourseID:     "math201",
		Reason:          "schedule change",
	})
	req, _ := http.NewRequest(http.MethodPost, "/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestChangeRequestHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/change-requests", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRequestHandlerReviewRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ReviewChangeRequest{Status: models.RequestStatusApproved})
	req, _ := http.NewRequest(http.MethodPatch, "/change-requests/req-1/review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Review(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangeRequestHandlerReviewPassesReviewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &changeRequestServiceMock{reviewResp: &models.ChangeRequestDetail{}}
	handler := NewChangeRequestHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ReviewChangeRequest{Status: models.RequestStatusApproved, Comments: "looks fine"})
	req, _ := http.NewRequest(http.MethodPatch, "/change-requests/req-1/review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "counselor-1", Role: models.RoleCounselor})

	handler.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "counselor-1", mock.reviewerID)
}
