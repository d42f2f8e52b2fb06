package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses")).
		WithArgs("%math%", 3).
		WillReturnRows(courseRows(models.Course{ID: "course-1", CourseCode: "MATH101", Name: "Algebra I", Period: 3, Capacity: 30, CurrentEnrollment: 12}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses")).
		WithArgs("%math%", 3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Search: "math", Period: 3})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, courses, 1)
	require.Equal(t, "MATH101", courses[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id IN")).
		WithArgs("course-1", "course-2").
		WillReturnRows(courseRows(
			models.Course{ID: "course-1", CourseCode: "MATH101", Name: "Algebra I", Period: 1, Capacity: 30},
			models.Course{ID: "course-2", CourseCode: "ENG101", Name: "English I", Period: 2, Capacity: 30},
		))

	courses, err := repo.FindByIDs(context.Background(), []string{"course-1", "course-2"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestCourseRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	course := &models.Course{CourseCode: "PHYS201", Name: "Physics II", Period: 4, Capacity: 25}
	require.NoError(t, repo.Create(context.Background(), course))
	require.NotEmpty(t, course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
