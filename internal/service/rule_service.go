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

type ruleStore interface {
	List(ctx context.Context) ([]models.Rule, error)
	FindByID(ctx context.Context, id string) (*models.Rule, error)
	Create(ctx context.Context, rule *models.Rule) error
	Update(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
}

// RuleService manages globally scoped scheduling rules.
type RuleService struct {
	rules  ruleStore
	logger *zap.Logger
}

// NewRuleService constructs the service.
func NewRuleService(rules ruleStore, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{rules: rules, logger: logger}
}

// List returns all rules.
func (s *RuleService) List(ctx context.Context) ([]models.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	return rules, nil
}

// Get returns one rule.
func (s *RuleService) Get(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}
	return rule, nil
}

// Create stores a new rule, active by default.
func (s *RuleService) Create(ctx context.Context, req dto.CreateRuleRequest) (*models.Rule, error) {
	if !models.ValidRuleType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported rule type")
	}
	rule := &models.Rule{
		Type:        req.Type,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	return rule, nil
}

// Update applies partial rule changes.
func (s *RuleService) Update(ctx context.Context, id string, req dto.UpdateRuleRequest) (*models.Rule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Type != nil {
		if !models.ValidRuleType(*req.Type) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported rule type")
		}
		rule.Type = *req.Type
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}
	return rule, nil
}

// Delete removes a rule.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule")
	}
	return nil
}
