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

type courseRuleStore interface {
	RulesFor(ctx context.Context, courseID string) ([]models.CourseRule, error)
	FindByID(ctx context.Context, id string) (*models.CourseRule, error)
	List(ctx context.Context) ([]models.CourseRuleDetail, error)
	ExistsSimilar(ctx context.Context, courseID, conflictingCourseID string, ruleType models.RuleType) (bool, error)
	Create(ctx context.Context, rule *models.CourseRule) error
	Update(ctx context.Context, rule *models.CourseRule) error
	Delete(ctx context.Context, id string) error
}

// CourseRuleService manages pairwise course rules feeding the conflict
// detector.
type CourseRuleService struct {
	rules   courseRuleStore
	courses courseReader
	logger  *zap.Logger
}

// NewCourseRuleService constructs the service.
func NewCourseRuleService(rules courseRuleStore, courses courseReader, logger *zap.Logger) *CourseRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseRuleService{rules: rules, courses: courses, logger: logger}
}

// List returns all pairwise rules with course names.
func (s *CourseRuleService) List(ctx context.Context) ([]models.CourseRuleDetail, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course rules")
	}
	if rules == nil {
		rules = []models.CourseRuleDetail{}
	}
	return rules, nil
}

// ListForCourse returns the active rules constraining one course.
func (s *CourseRuleService) ListForCourse(ctx context.Context, courseID string) ([]models.CourseRule, error) {
	rules, err := s.rules.RulesFor(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course rules")
	}
	if rules == nil {
		rules = []models.CourseRule{}
	}
	return rules, nil
}

// Create stores a new pairwise rule after verifying both courses exist and no
// duplicate rule is already registered.
func (s *CourseRuleService) Create(ctx context.Context, req dto.CreateCourseRuleRequest) (*models.CourseRule, error) {
	if !models.ValidRuleType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported rule type")
	}
	if req.CourseID == req.ConflictingCourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot conflict with itself")
	}
	for _, id := range []string{req.CourseID, req.ConflictingCourseID} {
		if _, err := s.courses.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}

	exists, err := s.rules.ExistsSimilar(ctx, req.CourseID, req.ConflictingCourseID, req.Type)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicate rule")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "an equivalent course rule already exists")
	}

	rule := &models.CourseRule{
		CourseID:            req.CourseID,
		ConflictingCourseID: req.ConflictingCourseID,
		Type:                req.Type,
		Active:              true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course rule")
	}
	return rule, nil
}

// Update applies type or active changes.
func (s *CourseRuleService) Update(ctx context.Context, id string, req dto.UpdateCourseRuleRequest) (*models.CourseRule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course rule")
	}
	if req.Type != nil {
		if !models.ValidRuleType(*req.Type) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported rule type")
		}
		rule.Type = *req.Type
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course rule")
	}
	return rule, nil
}

// Delete removes a pairwise rule.
func (s *CourseRuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.rules.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course rule")
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course rule")
	}
	return nil
}
