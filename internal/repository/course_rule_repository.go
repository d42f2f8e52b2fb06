package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// CourseRuleRepository persists pairwise course rules and serves the
// constraint catalog's adjacency lookup.
type CourseRuleRepository struct {
	db *sqlx.DB
}

// NewCourseRuleRepository constructs the repository.
func NewCourseRuleRepository(db *sqlx.DB) *CourseRuleRepository {
	return &CourseRuleRepository{db: db}
}

const courseRuleColumns = `id, course_id, conflicting_course_id, type, active, created_at`

// RulesFor returns the active rules keyed on the constrained course. Unknown
// courses yield an empty set; absence of rules is not an error.
func (r *CourseRuleRepository) RulesFor(ctx context.Context, courseID string) ([]models.CourseRule, error) {
	query := fmt.Sprintf("SELECT %s FROM course_rules WHERE course_id = $1 AND active = TRUE", courseRuleColumns)
	var rules []models.CourseRule
	if err := r.db.SelectContext(ctx, &rules, query, courseID); err != nil {
		return nil, fmt.Errorf("rules for course %s: %w", courseID, err)
	}
	return rules, nil
}

// FindByID returns a course rule by its ID.
func (r *CourseRuleRepository) FindByID(ctx context.Context, id string) (*models.CourseRule, error) {
	query := fmt.Sprintf("SELECT %s FROM course_rules WHERE id = $1", courseRuleColumns)
	var rule models.CourseRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns all course rules with both course names.
func (r *CourseRuleRepository) List(ctx context.Context) ([]models.CourseRuleDetail, error) {
	const query = `SELECT cr.id, cr.course_id, cr.conflicting_course_id, cr.type, cr.active, cr.created_at,
        c.name AS course_name, c.course_code AS course_code,
        cc.name AS conflicting_course_name, cc.course_code AS conflicting_course_code
        FROM course_rules cr
        JOIN courses c ON c.id = cr.course_id
        JOIN courses cc ON cc.id = cr.conflicting_course_id
        ORDER BY c.course_code ASC`
	var rules []models.CourseRuleDetail
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list course rules: %w", err)
	}
	return rules, nil
}

// ExistsSimilar checks for a duplicate (course, conflicting course, type) rule.
func (r *CourseRuleRepository) ExistsSimilar(ctx context.Context, courseID, conflictingCourseID string, ruleType models.RuleType) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM course_rules WHERE course_id = $1 AND conflicting_course_id = $2 AND type = $3 LIMIT 1",
		courseID, conflictingCourseID, ruleType)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check similar course rule: %w", err)
	}
	return true, nil
}

// Create persists a new course rule.
func (r *CourseRuleRepository) Create(ctx context.Context, rule *models.CourseRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO course_rules (id, course_id, conflicting_course_id, type, active, created_at)
        VALUES (:id, :course_id, :conflicting_course_id, :type, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create course rule: %w", err)
	}
	return nil
}

// Update persists type/active changes.
func (r *CourseRuleRepository) Update(ctx context.Context, rule *models.CourseRule) error {
	const query = `UPDATE course_rules SET type = :type, active = :active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update course rule: %w", err)
	}
	return nil
}

// Delete removes a course rule.
func (r *CourseRuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM course_rules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete course rule: %w", err)
	}
	return nil
}
