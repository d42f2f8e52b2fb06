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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN schedules sc ON sc.student_id = s.id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.GradeLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.grade_level, s.created_at, s.updated_at,
        u.name AS name, u.email AS email, sc.id AS schedule_id
        %s ORDER BY u.name ASC LIMIT %d OFFSET %d`, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	for i := range students {
		students[i].HasSchedule = students[i].ScheduleID != nil
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.user_id, s.grade_level, s.created_at, s.updated_at,
        u.name AS name, u.email AS email, sc.id AS schedule_id
        FROM students s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN schedules sc ON sc.student_id = s.id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	detail.HasSchedule = detail.ScheduleID != nil
	return &detail, nil
}

// FindByUserID fetches the student record backing a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, grade_level, created_at, updated_at FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, grade_level, created_at, updated_at)
        VALUES (:id, :user_id, :grade_level, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

