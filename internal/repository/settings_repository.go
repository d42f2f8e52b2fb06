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

// SettingsRepository persists the settings singleton.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `id, school_name, academic_year, semester, max_course_load, allow_conflicts, updated_at`

// Get returns the singleton row, creating it from defaults when absent.
func (r *SettingsRepository) Get(ctx context.Context, defaults models.Settings) (*models.Settings, error) {
	query := fmt.Sprintf("SELECT %s FROM settings LIMIT 1", settingsColumns)
	var settings models.Settings
	err := r.db.GetContext(ctx, &settings, query)
	if err == nil {
		return &settings, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	defaults.ID = uuid.NewString()
	defaults.UpdatedAt = time.Now().UTC()
	const insert = `INSERT INTO settings (id, school_name, academic_year, semester, max_course_load, allow_conflicts, updated_at)
        VALUES (:id, :school_name, :academic_year, :semester, :max_course_load, :allow_conflicts, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, &defaults); err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return &defaults, nil
}

// Update persists the singleton row.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `UPDATE settings SET school_name = :school_name, academic_year = :academic_year, semester = :semester,
        max_course_load = :max_course_load, allow_conflicts = :allow_conflicts, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, settings)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check settings update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
