package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/pkg/database"
)

// ScheduleRepository owns the student -> course-set mapping and the enrollment
// counters. Every mutation is one serializable transaction: membership rows
// and counters commit together or not at all.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, student_id, semester, year, created_at, updated_at`

// FindByID returns a schedule by its ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByStudent returns the student's schedule, if any.
func (r *ScheduleRepository) FindByStudent(ctx context.Context, studentID string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE student_id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, studentID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CoursesFor returns the schedule's assigned courses ordered by period.
func (r *ScheduleRepository) CoursesFor(ctx context.Context, scheduleID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.course_code, c.name, c.description, c.period, c.capacity, c.current_enrollment, c.created_at, c.updated_at
        FROM schedule_courses sc
        JOIN courses c ON c.id = sc.course_id
        WHERE sc.schedule_id = $1
        ORDER BY c.period ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule courses: %w", err)
	}
	return courses, nil
}

// List returns all schedules with student names.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.student_id, s.semester, s.year, s.created_at, s.updated_at, u.name AS student_name
        FROM schedules s
        JOIN students st ON st.id = s.student_id
        JOIN users u ON u.id = st.user_id
        ORDER BY u.name ASC`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// FindDetailByID returns a schedule with its student name and ordered courses.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.student_id, s.semester, s.year, s.created_at, s.updated_at, u.name AS student_name
        FROM schedules s
        JOIN students st ON st.id = s.student_id
        JOIN users u ON u.id = st.user_id
        WHERE s.id = $1`
	var detail models.ScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	courses, err := r.CoursesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Courses = courses
	return &detail, nil
}

// CreateWithCourses atomically assigns a new schedule: the schedule row, every
// membership row, and one enrollment increment per course commit as a unit.
// Course rows are locked first so the capacity and period reads hold until
// commit.
func (r *ScheduleRepository) CreateWithCourses(ctx context.Context, schedule *models.Schedule, courseIDs []string, maxLoad int) error {
	if len(courseIDs) == 0 {
		return ErrEmptySelection
	}
	if maxLoad > 0 && len(courseIDs) > maxLoad {
		return &LoadExceededError{Count: len(courseIDs), Max: maxLoad}
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	return database.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, "SELECT 1 FROM schedules WHERE student_id = $1 LIMIT 1", schedule.StudentID)
		if err == nil {
			return ErrScheduleExists
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check existing schedule: %w", err)
		}

		courses, err := lockCoursesTx(ctx, tx, courseIDs)
		if err != nil {
			return err
		}
		if err := ensureAllPresent(courseIDs, courses); err != nil {
			return err
		}
		if err := ensureDistinctPeriods(courses); err != nil {
			return err
		}
		for i := range courses {
			if courses[i].Full() {
				return &models.CapacityError{
					CourseID:   courses[i].ID,
					CourseName: courses[i].Name,
					Capacity:   courses[i].Capacity,
					Enrollment: courses[i].CurrentEnrollment,
				}
			}
		}

		const insertSchedule = `INSERT INTO schedules (id, student_id, semester, year, created_at, updated_at)
            VALUES (:id, :student_id, :semester, :year, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertSchedule, schedule); err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}

		for i := range courses {
			if err := connectCourseTx(ctx, tx, schedule.ID, &courses[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateCourses applies one add/remove mutation against the resulting course
// set, adjusting enrollment counters in the same transaction.
func (r *ScheduleRepository) UpdateCourses(ctx context.Context, scheduleID string, addIDs, removeIDs []string, maxLoad int) error {
	return database.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var schedule models.Schedule
		query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1 FOR UPDATE", scheduleColumns)
		if err := tx.GetContext(ctx, &schedule, query, scheduleID); err != nil {
			return err
		}

		current, err := scheduleCoursesTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		currentByID := make(map[string]models.Course, len(current))
		for _, c := range current {
			currentByID[c.ID] = c
		}

		for _, id := range removeIDs {
			if _, ok := currentByID[id]; !ok {
				return &NotInScheduleError{CourseID: id}
			}
		}
		removeSet := make(map[string]struct{}, len(removeIDs))
		for _, id := range removeIDs {
			removeSet[id] = struct{}{}
		}

		added, err := lockCoursesTx(ctx, tx, addIDs)
		if err != nil {
			return err
		}
		if err := ensureAllPresent(addIDs, added); err != nil {
			return err
		}
		for i := range added {
			if _, ok := currentByID[added[i].ID]; ok {
				return &AlreadyAssignedError{CourseID: added[i].ID}
			}
		}

		// Validate the resulting set: current minus removed, plus added.
		resulting := make([]models.Course, 0, len(current)+len(added))
		for _, c := range current {
			if _, gone := removeSet[c.ID]; !gone {
				resulting = append(resulting, c)
			}
		}
		resulting = append(resulting, added...)

		if len(resulting) == 0 {
			return ErrEmptySelection
		}
		if maxLoad > 0 && len(resulting) > maxLoad {
			return &LoadExceededError{Count: len(resulting), Max: maxLoad}
		}
		if err := ensureDistinctPeriods(resulting); err != nil {
			return err
		}
		for i := range added {
			if added[i].Full() {
				return &models.CapacityError{
					CourseID:   added[i].ID,
					CourseName: added[i].Name,
					Capacity:   added[i].Capacity,
					Enrollment: added[i].CurrentEnrollment,
				}
			}
		}

		for _, id := range removeIDs {
			if err := disconnectCourseTx(ctx, tx, scheduleID, id); err != nil {
				return err
			}
		}
		for i := range added {
			if err := connectCourseTx(ctx, tx, scheduleID, &added[i]); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "UPDATE schedules SET updated_at = NOW() WHERE id = $1", scheduleID); err != nil {
			return fmt.Errorf("touch schedule: %w", err)
		}
		return nil
	})
}

// DeleteWithCourses removes the schedule and releases one seat per previously
// assigned course.
func (r *ScheduleRepository) DeleteWithCourses(ctx context.Context, scheduleID string) error {
	return database.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var schedule models.Schedule
		query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1 FOR UPDATE", scheduleColumns)
		if err := tx.GetContext(ctx, &schedule, query, scheduleID); err != nil {
			return err
		}

		var courseIDs []string
		if err := tx.SelectContext(ctx, &courseIDs, "SELECT course_id FROM schedule_courses WHERE schedule_id = $1", scheduleID); err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_courses WHERE schedule_id = $1", scheduleID); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", scheduleID); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		for _, id := range courseIDs {
			if err := decrementEnrollmentTx(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// scheduleCoursesTx reads the current membership inside a transaction.
func scheduleCoursesTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.course_code, c.name, c.description, c.period, c.capacity, c.current_enrollment, c.created_at, c.updated_at
        FROM schedule_courses sc
        JOIN courses c ON c.id = sc.course_id
        WHERE sc.schedule_id = $1
        ORDER BY c.period ASC`
	var courses []models.Course
	if err := tx.SelectContext(ctx, &courses, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule courses: %w", err)
	}
	return courses, nil
}

// connectCourseTx inserts a membership row and takes one seat. The conditional
// increment is the authoritative capacity guard.
func connectCourseTx(ctx context.Context, tx *sqlx.Tx, scheduleID string, course *models.Course) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schedule_courses (schedule_id, course_id) VALUES ($1, $2)", scheduleID, course.ID); err != nil {
		return fmt.Errorf("connect course %s: %w", course.ID, err)
	}
	ok, err := incrementEnrollmentTx(ctx, tx, course.ID)
	if err != nil {
		return err
	}
	if !ok {
		return &models.CapacityError{
			CourseID:   course.ID,
			CourseName: course.Name,
			Capacity:   course.Capacity,
			Enrollment: course.Capacity,
		}
	}
	return nil
}

// disconnectCourseTx removes a membership row and releases its seat.
func disconnectCourseTx(ctx context.Context, tx *sqlx.Tx, scheduleID, courseID string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schedule_courses WHERE schedule_id = $1 AND course_id = $2", scheduleID, courseID); err != nil {
		return fmt.Errorf("disconnect course %s: %w", courseID, err)
	}
	return decrementEnrollmentTx(ctx, tx, courseID)
}

func ensureAllPresent(requested []string, found []models.Course) error {
	if len(requested) == len(found) {
		return nil
	}
	present := make(map[string]struct{}, len(found))
	for _, c := range found {
		present[c.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return &MissingCoursesError{IDs: missing}
}

func ensureDistinctPeriods(courses []models.Course) error {
	byPeriod := make(map[int]models.Course, len(courses))
	for _, c := range courses {
		if other, taken := byPeriod[c.Period]; taken {
			return &models.PeriodConflictError{
				Period:       c.Period,
				CourseID:     c.ID,
				CourseName:   c.Name,
				ConflictID:   other.ID,
				ConflictName: other.Name,
			}
		}
		byPeriod[c.Period] = c
	}
	return nil
}
