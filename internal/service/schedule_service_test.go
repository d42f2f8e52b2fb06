package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	"github.com/schedexpress/schedexpress-api/pkg/database"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type scheduleStoreStub struct {
	schedules   map[string]*models.ScheduleDetail
	byStudent   map[string]string
	createErr   error
	updateErr   error
	deleteErr   error
	createCalls int
}

func newScheduleStoreStub() *scheduleStoreStub {
	return &scheduleStoreStub{schedules: make(map[string]*models.ScheduleDetail), byStudent: make(map[string]string)}
}

func (s *scheduleStoreStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if detail, ok := s.schedules[id]; ok {
		return &detail.Schedule, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleStoreStub) FindByStudent(ctx context.Context, studentID string) (*models.Schedule, error) {
	if id, ok := s.byStudent[studentID]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleStoreStub) CoursesFor(ctx context.Context, scheduleID string) ([]models.Course, error) {
	if detail, ok := s.schedules[scheduleID]; ok {
		return detail.Courses, nil
	}
	return nil, nil
}

func (s *scheduleStoreStub) List(ctx context.Context) ([]models.ScheduleDetail, error) {
	var result []models.ScheduleDetail
	for _, detail := range s.schedules {
		result = append(result, *detail)
	}
	return result, nil
}

func (s *scheduleStoreStub) FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	if detail, ok := s.schedules[id]; ok {
		copy := *detail
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleStoreStub) CreateWithCourses(ctx context.Context, schedule *models.Schedule, courseIDs []string, maxLoad int) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if maxLoad > 0 && len(courseIDs) > maxLoad {
		return &repository.LoadExceededError{Count: len(courseIDs), Max: maxLoad}
	}
	schedule.ID = "sched-1"
	s.schedules[schedule.ID] = &models.ScheduleDetail{Schedule: *schedule, StudentName: "Dana Smith"}
	s.byStudent[schedule.StudentID] = schedule.ID
	return nil
}

func (s *scheduleStoreStub) UpdateCourses(ctx context.Context, scheduleID string, addIDs, removeIDs []string, maxLoad int) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.schedules[scheduleID]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (s *scheduleStoreStub) DeleteWithCourses(ctx context.Context, scheduleID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.schedules[scheduleID]; !ok {
		return sql.ErrNoRows
	}
	delete(s.schedules, scheduleID)
	return nil
}

func newScheduleFixture() (*ScheduleService, *scheduleStoreStub) {
	store := newScheduleStoreStub()
	students := &studentReaderStub{students: map[string]*models.StudentDetail{
		"student-1": {Student: models.Student{ID: "student-1", UserID: "user-1"}, Name: "Dana Smith"},
	}}
	settings := &settingsReaderStub{settings: models.Settings{MaxCourseLoad: 8, AllowConflicts: false}}
	return NewScheduleService(store, students, settings, 3, nil), store
}

func TestScheduleCreate(t *testing.T) {
	svc, store := newScheduleFixture()

	detail, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "student-1",
		CourseIDs: []string{"math101", "eng101"},
		Semester:  "FALL",
		Year:      2026,
	})
	require.NoError(t, err)
	require.Equal(t, "sched-1", detail.ID)
	require.Equal(t, 1, store.createCalls)
}

func TestScheduleCreateUnknownStudent(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "ghost",
		CourseIDs: []string{"math101"},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleCreateDuplicateCourseIDs(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "student-1",
		CourseIDs: []string{"math101", "math101"},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleCreateMapsLoadExceeded(t *testing.T) {
	svc, _ := newScheduleFixture()

	nine := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"}
	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "student-1",
		CourseIDs: nine,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrLoadExceeded))
}

func TestScheduleCreateMapsPeriodConflict(t *testing.T) {
	svc, store := newScheduleFixture()
	store.createErr = &models.PeriodConflictError{Period: 3, CourseName: "Algebra I", ConflictName: "Physics I"}

	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "student-1",
		CourseIDs: []string{"math101", "phys101"},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrPeriodConflict))
}

func TestScheduleCreateRetriesSerializationFailures(t *testing.T) {
	svc, store := newScheduleFixture()
	store.createErr = database.ErrSerialization

	_, err := svc.Create(context.Background(), dto.CreateScheduleRequest{
		StudentID: "student-1",
		CourseIDs: []string{"math101"},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrTxConflict))
	require.Equal(t, 3, store.createCalls)
}

func TestScheduleUpdateRequiresChanges(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Update(context.Background(), "sched-1", dto.UpdateScheduleRequest{})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleUpdateMapsCapacity(t *testing.T) {
	svc, store := newScheduleFixture()
	store.schedules["sched-1"] = &models.ScheduleDetail{Schedule: models.Schedule{ID: "sched-1"}}
	store.updateErr = &models.CapacityError{CourseID: "art100", CourseName: "Studio Art", Capacity: 20, Enrollment: 20}

	_, err := svc.Update(context.Background(), "sched-1", dto.UpdateScheduleRequest{AddCourseIDs: []string{"art100"}})
	require.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
}

func TestScheduleDelete(t *testing.T) {
	svc, store := newScheduleFixture()
	store.schedules["sched-1"] = &models.ScheduleDetail{Schedule: models.Schedule{ID: "sched-1"}}

	require.NoError(t, svc.Delete(context.Background(), "sched-1"))
	require.True(t, appErrors.Is(svc.Delete(context.Background(), "sched-1"), appErrors.ErrNotFound))
}

func TestScheduleExportCSV(t *testing.T) {
	svc, store := newScheduleFixture()
	store.schedules["sched-1"] = &models.ScheduleDetail{
		Schedule:    models.Schedule{ID: "sched-1", Semester: "FALL", Year: 2026},
		StudentName: "Dana Smith",
		Courses: []models.Course{
			{ID: "math101", CourseCode: "MATH101", Name: "Algebra I", Period: 1, Capacity: 30, CurrentEnrollment: 12},
		},
	}

	payload, contentType, err := svc.Export(context.Background(), "sched-1", "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)
	require.Contains(t, string(payload), "MATH101")

	_, _, err = svc.Export(context.Background(), "sched-1", "xml")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
