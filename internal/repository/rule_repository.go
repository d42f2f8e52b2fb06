package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// RuleRepository persists globally scoped scheduling rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs the repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, type, description, active, created_at, updated_at`

// List returns all rules, active first.
func (r *RuleRepository) List(ctx context.Context) ([]models.Rule, error) {
	query := fmt.Sprintf("SELECT %s FROM rules ORDER BY active DESC, created_at DESC", ruleColumns)
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// FindByID returns a rule by its ID.
func (r *RuleRepository) FindByID(ctx context.Context, id string) (*models.Rule, error) {
	query := fmt.Sprintf("SELECT %s FROM rules WHERE id = $1", ruleColumns)
	var rule models.Rule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create persists a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	const query = `INSERT INTO rules (id, type, description, active, created_at, updated_at)
        VALUES (:id, :type, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// Update persists rule changes.
func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rules SET type = :type, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// Delete removes a rule.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}
