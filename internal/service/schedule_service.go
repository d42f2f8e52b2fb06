package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	"github.com/schedexpress/schedexpress-api/pkg/database"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/export"
)

type scheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	FindByStudent(ctx context.Context, studentID string) (*models.Schedule, error)
	CoursesFor(ctx context.Context, scheduleID string) ([]models.Course, error)
	List(ctx context.Context) ([]models.ScheduleDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error)
	CreateWithCourses(ctx context.Context, schedule *models.Schedule, courseIDs []string, maxLoad int) error
	UpdateCourses(ctx context.Context, scheduleID string, addIDs, removeIDs []string, maxLoad int) error
	DeleteWithCourses(ctx context.Context, scheduleID string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type tableExporter interface {
	Render(table export.Table) ([]byte, error)
}

// ScheduleService owns schedule assignment and mutation. Every mutating call
// retries on lost serialization races before surfacing a retryable conflict to
// the caller.
type ScheduleService struct {
	schedules scheduleStore
	students  studentReader
	settings  settingsReader
	csv       tableExporter
	pdf       tableExporter
	txRetries int
	logger    *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(schedules scheduleStore, students studentReader, settings settingsReader, txRetries int, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txRetries < 1 {
		txRetries = 3
	}
	return &ScheduleService{
		schedules: schedules,
		students:  students,
		settings:  settings,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		txRetries: txRetries,
		logger:    logger,
	}
}

// Create assigns a student's first schedule from the selected courses.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.ScheduleDetail, error) {
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if len(req.CourseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}
	if err := ensureDistinct(req.CourseIDs); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		StudentID: req.StudentID,
		Semester:  req.Semester,
		Year:      req.Year,
	}
	err = database.WithRetry(ctx, s.txRetries, func() error {
		schedule.ID = ""
		return s.schedules.CreateWithCourses(ctx, schedule, req.CourseIDs, settings.MaxCourseLoad)
	})
	if err != nil {
		return nil, mapScheduleError(err, "failed to create schedule")
	}

	return s.Get(ctx, schedule.ID)
}

// Get returns a schedule with its student and ordered courses.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	detail, err := s.schedules.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return detail, nil
}

// GetByStudent returns the student's schedule with courses.
func (s *ScheduleService) GetByStudent(ctx context.Context, studentID string) (*models.ScheduleDetail, error) {
	schedule, err := s.schedules.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return s.Get(ctx, schedule.ID)
}

// List returns every schedule with its student name.
func (s *ScheduleService) List(ctx context.Context) ([]models.ScheduleDetail, error) {
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if schedules == nil {
		schedules = []models.ScheduleDetail{}
	}
	return schedules, nil
}

// Update applies one add/remove mutation to the schedule's course set.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.ScheduleDetail, error) {
	if len(req.AddCourseIDs) == 0 && len(req.RemoveCourseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to change")
	}
	if err := ensureDistinct(req.AddCourseIDs); err != nil {
		return nil, err
	}
	if err := ensureDistinct(req.RemoveCourseIDs); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	err = database.WithRetry(ctx, s.txRetries, func() error {
		return s.schedules.UpdateCourses(ctx, id, req.AddCourseIDs, req.RemoveCourseIDs, settings.MaxCourseLoad)
	})
	if err != nil {
		return nil, mapScheduleError(err, "failed to update schedule")
	}
	return s.Get(ctx, id)
}

// Delete removes the schedule and releases every held seat.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	err := database.WithRetry(ctx, s.txRetries, func() error {
		return s.schedules.DeleteWithCourses(ctx, id)
	})
	if err != nil {
		return mapScheduleError(err, "failed to delete schedule")
	}
	return nil
}

// Export renders a schedule as CSV or PDF.
func (s *ScheduleService) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Schedule for %s (%s %d)", detail.StudentName, detail.Semester, detail.Year),
		Headers: []string{"Period", "Code", "Course", "Enrollment"},
	}
	for _, course := range detail.Courses {
		table.Rows = append(table.Rows, map[string]string{
			"Period":     strconv.Itoa(course.Period),
			"Code":       course.CourseCode,
			"Course":     course.Name,
			"Enrollment": fmt.Sprintf("%d/%d", course.CurrentEnrollment, course.Capacity),
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// ensureDistinct rejects duplicate IDs within one selection.
func ensureDistinct(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate course id %s", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// mapScheduleError translates repository failures into the API error taxonomy.
func mapScheduleError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var (
		periodErr     *models.PeriodConflictError
		capacityErr   *models.CapacityError
		missingErr    *repository.MissingCoursesError
		notInErr      *repository.NotInScheduleError
		assignedErr   *repository.AlreadyAssignedError
		loadErr       *repository.LoadExceededError
		unresolvedErr *repository.UnresolvedConflictsError
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrNotFound
	case errors.Is(err, repository.ErrScheduleExists):
		return appErrors.Clone(appErrors.ErrAlreadyExists, "student already has a schedule")
	case errors.Is(err, repository.ErrEmptySelection):
		return appErrors.Clone(appErrors.ErrValidation, "schedule must keep at least one course")
	case errors.Is(err, repository.ErrRequestReviewed):
		return appErrors.ErrAlreadyTerminal
	case errors.As(err, &periodErr):
		return appErrors.Clone(appErrors.ErrPeriodConflict, periodErr.Error())
	case errors.As(err, &capacityErr):
		return appErrors.Clone(appErrors.ErrCapacityExceeded, capacityErr.Error())
	case errors.As(err, &missingErr):
		return appErrors.Clone(appErrors.ErrNotFound, missingErr.Error())
	case errors.As(err, &notInErr):
		return appErrors.Clone(appErrors.ErrNotInSchedule, notInErr.Error())
	case errors.As(err, &assignedErr):
		return appErrors.Clone(appErrors.ErrAlreadyAssigned, assignedErr.Error())
	case errors.As(err, &loadErr):
		return appErrors.Clone(appErrors.ErrLoadExceeded, loadErr.Error())
	case errors.As(err, &unresolvedErr):
		return appErrors.Clone(appErrors.ErrUnresolvedConflict, unresolvedErr.Error())
	case database.IsSerializationFailure(err):
		return appErrors.ErrTxConflict
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
	}
}
