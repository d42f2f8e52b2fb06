package dto

import "github.com/schedexpress/schedexpress-api/internal/models"

// CreateRuleRequest payload for a global scheduling rule.
type CreateRuleRequest struct {
	Type        models.RuleType `json:"type" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Active      *bool           `json:"active"`
}

// UpdateRuleRequest carries partial rule updates.
type UpdateRuleRequest struct {
	Type        *models.RuleType `json:"type"`
	Description *string          `json:"description"`
	Active      *bool            `json:"active"`
}

// CreateCourseRuleRequest payload for a pairwise course rule.
type CreateCourseRuleRequest struct {
	CourseID            string          `json:"courseId" validate:"required"`
	ConflictingCourseID string          `json:"conflictingCourseId" validate:"required"`
	Type                models.RuleType `json:"type" validate:"required"`
	Active              *bool           `json:"active"`
}

// UpdateCourseRuleRequest carries partial course rule updates.
type UpdateCourseRuleRequest struct {
	Type   *models.RuleType `json:"type"`
	Active *bool            `json:"active"`
}
