package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type conflictStore interface {
	Create(ctx context.Context, conflict *models.Conflict) error
	ListAll(ctx context.Context) ([]models.ConflictDetail, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Conflict, error)
	Resolve(ctx context.Context, id string) (*models.Conflict, error)
}

type scheduleReader interface {
	FindByStudent(ctx context.Context, studentID string) (*models.Schedule, error)
	CoursesFor(ctx context.Context, scheduleID string) ([]models.Course, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseRuleReader interface {
	RulesFor(ctx context.Context, courseID string) ([]models.CourseRule, error)
}

// ConflictService detects obstructions for a proposed course swap and manages
// the resulting conflict records.
type ConflictService struct {
	conflicts conflictStore
	schedules scheduleReader
	courses   courseReader
	rules     courseRuleReader
	logger    *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(conflicts conflictStore, schedules scheduleReader, courses courseReader, rules courseRuleReader, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{conflicts: conflicts, schedules: schedules, courses: courses, rules: rules, logger: logger}
}

// DetectForSwap evaluates the schedule that would result from swapping
// currentCourseID for newCourseID and returns every obstruction found. The
// vacated course never conflicts with its own replacement. Returned conflicts
// are not persisted here.
func (s *ConflictService) DetectForSwap(ctx context.Context, studentID, currentCourseID, newCourseID string) ([]models.Conflict, error) {
	newCourse, err := s.courses.FindByID(ctx, newCourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requested course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.courses.FindByID(ctx, currentCourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "current course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	schedule, err := s.schedules.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	current, err := s.schedules.CoursesFor(ctx, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule courses")
	}

	// Membership preconditions: the vacated course must be assigned and the
	// requested course must not already be.
	assigned := make(map[string]struct{}, len(current))
	for _, c := range current {
		assigned[c.ID] = struct{}{}
	}
	if _, ok := assigned[currentCourseID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotInSchedule, fmt.Sprintf("course %s is not assigned to this student", currentCourseID))
	}
	if _, ok := assigned[newCourseID]; ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, fmt.Sprintf("course %s is already in the schedule", newCourseID))
	}

	// The resulting set: current membership minus the vacated course, plus the
	// requested one.
	resulting := make(map[string]struct{}, len(current)+1)
	var conflicts []models.Conflict
	for _, c := range current {
		if c.ID == currentCourseID {
			continue
		}
		resulting[c.ID] = struct{}{}
		if c.Period == newCourse.Period {
			conflicts = append(conflicts, models.Conflict{
				Description: fmt.Sprintf("Period %d overlap with %s (%s)", c.Period, c.Name, c.CourseCode),
				CourseID:    newCourse.ID,
				Type:        models.ConflictTypeScheduleOverlap,
			})
		}
	}
	resulting[newCourse.ID] = struct{}{}

	if newCourse.Full() {
		conflicts = append(conflicts, models.Conflict{
			Description: fmt.Sprintf("%s is at capacity (%d/%d)", newCourse.Name, newCourse.CurrentEnrollment, newCourse.Capacity),
			CourseID:    newCourse.ID,
			Type:        models.ConflictTypeCapacity,
		})
	}

	rules, err := s.rules.RulesFor(ctx, newCourse.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course rules")
	}
	for _, rule := range rules {
		switch rule.Type {
		case models.RuleTypePrerequisite:
			if _, present := resulting[rule.ConflictingCourseID]; !present {
				conflicts = append(conflicts, models.Conflict{
					Description: fmt.Sprintf("%s requires a prerequisite course not in the schedule", newCourse.Name),
					CourseID:    newCourse.ID,
					Type:        models.ConflictTypePrerequisite,
				})
			}
		case models.RuleTypeScheduleOverlap:
			if _, present := resulting[rule.ConflictingCourseID]; present && rule.ConflictingCourseID != newCourse.ID {
				conflicts = append(conflicts, models.Conflict{
					Description: fmt.Sprintf("%s may not be taken alongside a conflicting course", newCourse.Name),
					CourseID:    newCourse.ID,
					Type:        models.ConflictTypeScheduleOverlap,
				})
			}
		default:
			// GRADE_REQUIREMENT and OTHER are documentation only.
		}
	}
	return conflicts, nil
}

// PersistForRequest stores detected conflicts against a change request.
func (s *ConflictService) PersistForRequest(ctx context.Context, requestID string, conflicts []models.Conflict) error {
	for i := range conflicts {
		conflicts[i].RequestID = requestID
		if err := s.conflicts.Create(ctx, &conflicts[i]); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record conflict")
		}
	}
	return nil
}

// List returns all conflicts with course context.
func (s *ConflictService) List(ctx context.Context) ([]models.ConflictDetail, error) {
	conflicts, err := s.conflicts.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	if conflicts == nil {
		conflicts = []models.ConflictDetail{}
	}
	return conflicts, nil
}

// ListForRequest returns a single request's conflicts.
func (s *ConflictService) ListForRequest(ctx context.Context, requestID string) ([]models.Conflict, error) {
	conflicts, err := s.conflicts.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return conflicts, nil
}

// Resolve marks a conflict as handled.
func (s *ConflictService) Resolve(ctx context.Context, id string) (*models.Conflict, error) {
	conflict, err := s.conflicts.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve conflict")
	}
	return conflict, nil
}
