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

func newConflictRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConflictRepositoryCreateForcesUnresolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()

	repo := NewConflictRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conflicts")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conflict := &models.Conflict{
		Description: "Period 3 clash with Physics I",
		CourseID:    "course-1",
		RequestID:   "req-1",
		Type:        models.ConflictTypeScheduleOverlap,
		Resolved:    true,
	}
	require.NoError(t, repo.Create(context.Background(), conflict))
	require.False(t, conflict.Resolved)
	require.NotEmpty(t, conflict.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryCountUnresolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()

	repo := NewConflictRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conflicts WHERE request_id = $1 AND resolved = FALSE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnresolved(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()

	repo := NewConflictRepository(db)
	rows := sqlmock.NewRows([]string{"id", "description", "course_id", "request_id", "type", "resolved", "created_at", "updated_at"}).
		AddRow("conf-1", "Course is full", "course-1", "req-1", "CAPACITY", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE conflicts SET resolved = TRUE")).
		WillReturnRows(rows)

	conflict, err := repo.Resolve(context.Background(), "conf-1")
	require.NoError(t, err)
	require.True(t, conflict.Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolvePassesThroughNoRows(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()

	repo := NewConflictRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE conflicts SET resolved = TRUE")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), "conf-missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
