package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// StudentService exposes student lookups for the scheduling surfaces.
type StudentService struct {
	students studentStore
	logger   *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(students studentStore, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with schedule presence.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUser resolves the student record behind a user account.
func (s *StudentService) GetByUser(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
