package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseService manages the course catalog. Capacity edits never touch the
// enrollment counter; shrinking capacity below current enrollment is rejected.
type CourseService struct {
	courses courseStore
	logger  *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(courses courseStore, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, logger: logger}
}

// List returns catalog courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog with zero enrollment.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	course := &models.Course{
		CourseCode:  req.CourseCode,
		Name:        req.Name,
		Description: req.Description,
		Period:      req.Period,
		Capacity:    req.Capacity,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update applies partial catalog changes.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CourseCode != nil {
		course.CourseCode = *req.CourseCode
	}
	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Period != nil {
		course.Period = *req.Period
	}
	if req.Capacity != nil {
		if *req.Capacity < course.CurrentEnrollment {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity cannot drop below current enrollment")
		}
		course.Capacity = *req.Capacity
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course that no schedule currently holds.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if course.CurrentEnrollment > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "course still has enrolled students")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}
