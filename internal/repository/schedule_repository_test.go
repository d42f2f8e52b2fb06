package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows(courses ...models.Course) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "course_code", "name", "description", "period", "capacity", "current_enrollment", "created_at", "updated_at"})
	for _, c := range courses {
		rows.AddRow(c.ID, c.CourseCode, c.Name, c.Description, c.Period, c.Capacity, c.CurrentEnrollment, time.Now(), time.Now())
	}
	return rows
}

func TestScheduleRepositoryCreateWithCourses(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schedules WHERE student_id")).
		WithArgs("student-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("course-1", "course-2").
		WillReturnRows(courseRows(
			models.Course{ID: "course-1", CourseCode: "MATH101", Name: "Algebra I", Period: 1, Capacity: 30, CurrentEnrollment: 10},
			models.Course{ID: "course-2", CourseCode: "ENG101", Name: "English I", Period: 2, Capacity: 30, CurrentEnrollment: 5},
		))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_courses")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("current_enrollment + 1")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	schedule := &models.Schedule{StudentID: "student-1", Semester: "FALL", Year: 2026}
	err := repo.CreateWithCourses(context.Background(), schedule, []string{"course-1", "course-2"}, 8)
	require.NoError(t, err)
	require.NotEmpty(t, schedule.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateRejectsDuplicate(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schedules WHERE student_id")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateWithCourses(context.Background(), &models.Schedule{StudentID: "student-1"}, []string{"course-1"}, 8)
	require.ErrorIs(t, err, ErrScheduleExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateRejectsPeriodClash(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schedules WHERE student_id")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(courseRows(
			models.Course{ID: "course-1", Name: "Algebra I", Period: 3, Capacity: 30},
			models.Course{ID: "course-2", Name: "Physics I", Period: 3, Capacity: 30},
		))
	mock.ExpectRollback()

	err := repo.CreateWithCourses(context.Background(), &models.Schedule{StudentID: "student-1"}, []string{"course-1", "course-2"}, 8)
	var clash *models.PeriodConflictError
	require.ErrorAs(t, err, &clash)
	require.Equal(t, 3, clash.Period)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateRejectsFullCourse(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schedules WHERE student_id")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(courseRows(
			models.Course{ID: "course-1", Name: "Chemistry I", Period: 1, Capacity: 25, CurrentEnrollment: 25},
		))
	mock.ExpectRollback()

	err := repo.CreateWithCourses(context.Background(), &models.Schedule{StudentID: "student-1"}, []string{"course-1"}, 8)
	var full *models.CapacityError
	require.ErrorAs(t, err, &full)
	require.Equal(t, "course-1", full.CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateRejectsOversizedSelection(t *testing.T) {
	db, _, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"}
	err := repo.CreateWithCourses(context.Background(), &models.Schedule{StudentID: "student-1"}, ids, 8)
	var exceeded *LoadExceededError
	require.ErrorAs(t, err, &exceeded)
	require.Equal(t, 9, exceeded.Count)
	require.Equal(t, 8, exceeded.Max)

	err = repo.CreateWithCourses(context.Background(), &models.Schedule{StudentID: "student-1"}, nil, 8)
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestScheduleRepositoryUpdateCoursesRejectsUnknownRemoval(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1 FOR UPDATE")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "semester", "year", "created_at", "updated_at"}).
			AddRow("sched-1", "student-1", "FALL", 2026, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_courses sc")).
		WithArgs("sched-1").
		WillReturnRows(courseRows(models.Course{ID: "course-1", Name: "Algebra I", Period: 1, Capacity: 30}))
	mock.ExpectRollback()

	err := repo.UpdateCourses(context.Background(), "sched-1", nil, []string{"course-9"}, 8)
	var notIn *NotInScheduleError
	require.ErrorAs(t, err, &notIn)
	require.Equal(t, "course-9", notIn.CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteReleasesSeats(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1 FOR UPDATE")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "semester", "year", "created_at", "updated_at"}).
			AddRow("sched-1", "student-1", "FALL", 2026, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_id FROM schedule_courses")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow("course-1").AddRow("course-2"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_courses")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("current_enrollment - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("current_enrollment - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithCourses(context.Background(), "sched-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByStudentPassesThroughNoRows(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE student_id")).
		WithArgs("student-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudent(context.Background(), "student-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
