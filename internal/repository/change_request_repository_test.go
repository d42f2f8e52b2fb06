package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestRow(id, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "current_course_id", "new_course_id", "status", "reason", "reviewer_id", "comments", "created_at", "updated_at"}).
		AddRow(id, "student-1", "course-old", "course-new", status, "schedule change", nil, nil, time.Now(), time.Now())
}

func TestChangeRequestRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := &models.ChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "course-old",
		NewCourseID:     "course-new",
		Reason:          "schedule change",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.Equal(t, models.RequestStatusPending, request.Status)
	require.NotEmpty(t, request.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	reviewer := "counselor-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(requestRow("req-1", "PENDING"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conflicts")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE student_id = $1 FOR UPDATE")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "semester", "year", "created_at", "updated_at"}).
			AddRow("sched-1", "student-1", "FALL", 2026, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schedule_courses")).
		WithArgs("sched-1", "course-old").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("course-new").
		WillReturnRows(courseRows(models.Course{ID: "course-new", Name: "Calculus", Period: 2, Capacity: 30, CurrentEnrollment: 12}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("current_enrollment - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("current_enrollment + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), ApproveParams{RequestID: "req-1", ReviewerID: &reviewer})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryApproveBlockedByConflicts(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(requestRow("req-1", "PENDING"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conflicts")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), ApproveParams{RequestID: "req-1"})
	var blocked *UnresolvedConflictsError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, 2, blocked.Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryApproveRejectsTerminal(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(requestRow("req-1", "DENIED"))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), ApproveParams{RequestID: "req-1"})
	require.ErrorIs(t, err, ErrRequestReviewed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryUpdateReviewGuardsPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	reviewer := "counselor-1"
	comments := "not a fit this semester"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateReview(context.Background(), UpdateReviewParams{
		ID:         "req-1",
		Status:     models.RequestStatusDenied,
		ReviewerID: &reviewer,
		Comments:   &comments,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateReview(context.Background(), UpdateReviewParams{
		ID:         "req-1",
		Status:     models.RequestStatusDenied,
		ReviewerID: &reviewer,
	})
	require.ErrorIs(t, err, ErrRequestReviewed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListPendingOldestFirst(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "current_course_id", "new_course_id", "status", "reason", "reviewer_id", "comments", "created_at", "updated_at", "student_name", "current_course_name", "new_course_name"}).
		AddRow("req-1", "student-1", "course-old", "course-new", "PENDING", "change", nil, nil, time.Now(), time.Now(), "Dana Smith", "Algebra I", "Calculus")
	mock.ExpectQuery("ORDER BY cr.created_at ASC").
		WithArgs("PENDING").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ChangeRequestFilter{
		Status: []models.RequestStatus{models.RequestStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Dana Smith", list[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conflicts WHERE request_id")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM change_requests WHERE id")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "req-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
