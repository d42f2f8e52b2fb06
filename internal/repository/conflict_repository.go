package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// ConflictRepository persists detected scheduling conflicts.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

const conflictColumns = `id, description, course_id, request_id, type, resolved, created_at, updated_at`

// Create inserts an unresolved conflict row.
func (r *ConflictRepository) Create(ctx context.Context, conflict *models.Conflict) error {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	conflict.CreatedAt = now
	conflict.UpdatedAt = now
	conflict.Resolved = false
	const query = `INSERT INTO conflicts (id, description, course_id, request_id, type, resolved, created_at, updated_at)
        VALUES (:id, :description, :course_id, :request_id, :type, :resolved, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

// ListAll returns every conflict with its implicated course, latest first.
func (r *ConflictRepository) ListAll(ctx context.Context) ([]models.ConflictDetail, error) {
	const query = `SELECT cf.id, cf.description, cf.course_id, cf.request_id, cf.type, cf.resolved, cf.created_at, cf.updated_at,
        c.name AS course_name, c.course_code AS course_code
        FROM conflicts cf
        JOIN courses c ON c.id = cf.course_id
        ORDER BY cf.created_at DESC`
	var conflicts []models.ConflictDetail
	if err := r.db.SelectContext(ctx, &conflicts, query); err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return conflicts, nil
}

// ListByRequest returns a request's conflicts, latest first.
func (r *ConflictRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Conflict, error) {
	query := fmt.Sprintf("SELECT %s FROM conflicts WHERE request_id = $1 ORDER BY created_at DESC", conflictColumns)
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, requestID); err != nil {
		return nil, fmt.Errorf("list request conflicts: %w", err)
	}
	return conflicts, nil
}

// CountUnresolved returns the number of open conflicts for a request.
func (r *ConflictRepository) CountUnresolved(ctx context.Context, requestID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM conflicts WHERE request_id = $1 AND resolved = FALSE", requestID); err != nil {
		return 0, fmt.Errorf("count unresolved conflicts: %w", err)
	}
	return count, nil
}

// Resolve marks a conflict as handled by a reviewer.
func (r *ConflictRepository) Resolve(ctx context.Context, id string) (*models.Conflict, error) {
	query := fmt.Sprintf(`UPDATE conflicts SET resolved = TRUE, updated_at = $2 WHERE id = $1 RETURNING %s`, conflictColumns)
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &conflict, nil
}
