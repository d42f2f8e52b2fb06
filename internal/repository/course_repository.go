package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// CourseRepository handles persistence of the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, course_code, name, description, period, capacity, current_enrollment, created_at, updated_at`

// List returns catalog courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR course_code ILIKE $%d)", len(args), len(args)))
	}
	if filter.Period > 0 {
		args = append(args, filter.Period)
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY period ASC, course_code ASC LIMIT %d OFFSET %d",
		courseColumns, clause, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDs returns all courses whose id is in the provided slice.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM courses WHERE id IN (?)", courseColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build course lookup: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	return courses, nil
}

// Create persists a new catalog course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, course_code, name, description, period, capacity, current_enrollment, created_at, updated_at)
        VALUES (:id, :course_code, :name, :description, :period, :capacity, :current_enrollment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists catalog fields. Enrollment never moves through this path.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET course_code = :course_code, name = :name, description = :description,
        period = :period, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a catalog course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// lockCoursesTx loads and row-locks the given courses inside a transaction so
// capacity and period reads stay valid until commit.
func lockCoursesTx(ctx context.Context, tx *sqlx.Tx, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM courses WHERE id IN (?) ORDER BY id FOR UPDATE", courseColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build course lock: %w", err)
	}
	var courses []models.Course
	if err := tx.SelectContext(ctx, &courses, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lock courses: %w", err)
	}
	return courses, nil
}

// incrementEnrollmentTx bumps a course's seat counter only while a seat
// remains; returns false when the course is full. The guard lives in the same
// statement as the increment so no stale capacity read can commit.
func incrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, courseID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE courses SET current_enrollment = current_enrollment + 1, updated_at = NOW()
         WHERE id = $1 AND current_enrollment < capacity`, courseID)
	if err != nil {
		return false, fmt.Errorf("increment enrollment for %s: %w", courseID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check enrollment increment for %s: %w", courseID, err)
	}
	return rows == 1, nil
}

// decrementEnrollmentTx releases one seat, never dropping below zero.
func decrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE courses SET current_enrollment = current_enrollment - 1, updated_at = NOW()
         WHERE id = $1 AND current_enrollment > 0`, courseID); err != nil {
		return fmt.Errorf("decrement enrollment for %s: %w", courseID, err)
	}
	return nil
}
