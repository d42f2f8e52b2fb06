package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type scheduleServiceMock struct {
	exportPayload []byte
	exportType    string
	exportErr     error
	exportFormat  string
}

func (m *scheduleServiceMock) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{}, nil
}

func (m *scheduleServiceMock) GetByStudent(ctx context.Context, studentID string) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{}, nil
}

func (m *scheduleServiceMock) List(ctx context.Context) ([]models.ScheduleDetail, error) {
	return nil, nil
}

func (m *scheduleServiceMock) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{}, nil
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *scheduleServiceMock) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	m.exportFormat = format
	if m.exportErr != nil {
		return nil, "", m.exportErr
	}
	return m.exportPayload, m.exportType, nil
}

func TestScheduleHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", http.NoBody)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerExportDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleServiceMock{exportPayload: []byte("Period,Code\n"), exportType: "text/csv"}
	handler := NewScheduleHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/sched-1/export", http.NoBody)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.exportFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule-sched-1.csv")
	assert.Equal(t, "Period,Code\n", w.Body.String())
}

func TestScheduleHandlerExportRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleServiceMock{exportErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	handler := NewScheduleHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/sched-1/export?format=xml", http.NoBody)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xml", mock.exportFormat)
}
