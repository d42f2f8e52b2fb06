package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/pkg/database"
)

// ChangeRequestRepository persists the review workflow and applies approved
// swaps atomically.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const requestColumns = `id, student_id, current_course_id, new_course_id, status, reason, reviewer_id, comments, created_at, updated_at`

// Create inserts a new PENDING change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO change_requests
        (id, student_id, current_course_id, new_course_id, status, reason, reviewer_id, comments, created_at, updated_at)
        VALUES (:id, :student_id, :current_course_id, :new_course_id, :status, :reason, :reviewer_id, :comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM change_requests WHERE id = $1", requestColumns)
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetDetailByID fetches a change request with display context.
func (r *ChangeRequestRepository) GetDetailByID(ctx context.Context, id string) (*models.ChangeRequestDetail, error) {
	const query = `SELECT cr.id, cr.student_id, cr.current_course_id, cr.new_course_id, cr.status, cr.reason,
        cr.reviewer_id, cr.comments, cr.created_at, cr.updated_at,
        u.name AS student_name, cc.name AS current_course_name, nc.name AS new_course_name
        FROM change_requests cr
        JOIN students st ON st.id = cr.student_id
        JOIN users u ON u.id = st.user_id
        JOIN courses cc ON cc.id = cr.current_course_id
        JOIN courses nc ON nc.id = cr.new_course_id
        WHERE cr.id = $1`
	var detail models.ChangeRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns change requests matching the filter, latest first. Pending
// requests are the review queue, so a PENDING-only filter sorts oldest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequestDetail, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT cr.id, cr.student_id, cr.current_course_id, cr.new_course_id, cr.status, cr.reason,
        cr.reviewer_id, cr.comments, cr.created_at, cr.updated_at,
        u.name AS student_name, cc.name AS current_course_name, nc.name AS new_course_name
        FROM change_requests cr
        JOIN students st ON st.id = cr.student_id
        JOIN users u ON u.id = st.user_id
        JOIN courses cc ON cc.id = cr.current_course_id
        JOIN courses nc ON nc.id = cr.new_course_id`)

	conditions := make([]string, 0, 2)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("cr.student_id = $%d", len(args)))
	}
	pendingOnly := false
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("cr.status IN (%s)", strings.Join(placeholders, ",")))
		pendingOnly = len(filter.Status) == 1 && filter.Status[0] == models.RequestStatusPending
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	if pendingOnly {
		builder.WriteString(" ORDER BY cr.created_at ASC")
	} else {
		builder.WriteString(" ORDER BY cr.created_at DESC")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ChangeRequestDetail
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// UpdateReviewParams groups mutable columns for review operations.
type UpdateReviewParams struct {
	ID         string
	Status     models.RequestStatus
	ReviewerID *string
	Comments   *string
}

// UpdateReview persists a deny or comment-only update. The PENDING guard in
// the WHERE clause makes terminal states immutable; zero rows means the
// request was already reviewed.
func (r *ChangeRequestRepository) UpdateReview(ctx context.Context, params UpdateReviewParams) error {
	setParts := []string{"reviewer_id = :reviewer_id", "updated_at = :updated_at"}
	if params.Status != "" {
		setParts = append(setParts, "status = :status")
	}
	if params.Comments != nil {
		setParts = append(setParts, "comments = :comments")
	}
	query := fmt.Sprintf("UPDATE change_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.RequestStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"reviewer_id": params.ReviewerID,
		"comments":    params.Comments,
		"updated_at":  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request update rows: %w", err)
	}
	if rows == 0 {
		return ErrRequestReviewed
	}
	return nil
}

// ApproveParams identifies the request and the swap to apply.
type ApproveParams struct {
	RequestID  string
	ReviewerID *string
	Comments   *string
}

// Approve applies an approved swap as one serializable unit: terminal-state
// guard, unresolved-conflict gate, membership swap, both enrollment counters,
// and the request row itself. Any failure rolls the whole unit back and the
// request stays PENDING.
func (r *ChangeRequestRepository) Approve(ctx context.Context, params ApproveParams) error {
	return database.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var request models.ChangeRequest
		query := fmt.Sprintf("SELECT %s FROM change_requests WHERE id = $1 FOR UPDATE", requestColumns)
		if err := tx.GetContext(ctx, &request, query, params.RequestID); err != nil {
			return err
		}
		if request.Status != models.RequestStatusPending {
			return ErrRequestReviewed
		}

		var unresolved int
		if err := tx.GetContext(ctx, &unresolved,
			"SELECT COUNT(*) FROM conflicts WHERE request_id = $1 AND resolved = FALSE", request.ID); err != nil {
			return fmt.Errorf("count unresolved conflicts: %w", err)
		}
		if unresolved > 0 {
			return &UnresolvedConflictsError{RequestID: request.ID, Count: unresolved}
		}

		var schedule models.Schedule
		query = fmt.Sprintf("SELECT %s FROM schedules WHERE student_id = $1 FOR UPDATE", scheduleColumns)
		if err := tx.GetContext(ctx, &schedule, query, request.StudentID); err != nil {
			return err
		}

		var assigned int
		err := tx.GetContext(ctx, &assigned,
			"SELECT 1 FROM schedule_courses WHERE schedule_id = $1 AND course_id = $2",
			schedule.ID, request.CurrentCourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return &NotInScheduleError{CourseID: request.CurrentCourseID}
			}
			return fmt.Errorf("check current membership: %w", err)
		}

		newCourses, err := lockCoursesTx(ctx, tx, []string{request.NewCourseID})
		if err != nil {
			return err
		}
		if len(newCourses) != 1 {
			return &MissingCoursesError{IDs: []string{request.NewCourseID}}
		}
		newCourse := newCourses[0]

		if err := disconnectCourseTx(ctx, tx, schedule.ID, request.CurrentCourseID); err != nil {
			return err
		}
		// The conditional increment inside connectCourseTx is the
		// authoritative capacity re-check at decision time.
		if err := connectCourseTx(ctx, tx, schedule.ID, &newCourse); err != nil {
			return err
		}

		setParts := []string{"status = :status", "reviewer_id = :reviewer_id", "updated_at = :updated_at"}
		if params.Comments != nil {
			setParts = append(setParts, "comments = :comments")
		}
		updateQuery := fmt.Sprintf("UPDATE change_requests SET %s WHERE id = :id AND status = '%s'",
			strings.Join(setParts, ", "),
			models.RequestStatusPending,
		)
		result, err := tx.NamedExecContext(ctx, updateQuery, map[string]interface{}{
			"id":          request.ID,
			"status":      models.RequestStatusApproved,
			"reviewer_id": params.ReviewerID,
			"comments":    params.Comments,
			"updated_at":  time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("approve change request: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check approval rows: %w", err)
		}
		if rows == 0 {
			return ErrRequestReviewed
		}

		if _, err := tx.ExecContext(ctx, "UPDATE schedules SET updated_at = NOW() WHERE id = $1", schedule.ID); err != nil {
			return fmt.Errorf("touch schedule: %w", err)
		}
		return nil
	})
}

// DeleteCascade removes the request's conflicts first, then the request.
func (r *ChangeRequestRepository) DeleteCascade(ctx context.Context, id string) error {
	return database.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM conflicts WHERE request_id = $1", id); err != nil {
			return fmt.Errorf("delete request conflicts: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM change_requests WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete change request: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check request delete rows: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
