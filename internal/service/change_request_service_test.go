package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type requestStoreStub struct {
	requests   map[string]*models.ChangeRequest
	unresolved map[string]int
	approved   []string
	applyCalls int
}

func newRequestStoreStub() *requestStoreStub {
	return &requestStoreStub{requests: make(map[string]*models.ChangeRequest), unresolved: make(map[string]int)}
}

func (s *requestStoreStub) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = "req-1"
	}
	request.Status = models.RequestStatusPending
	s.requests[request.ID] = request
	return nil
}

func (s *requestStoreStub) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	if request, ok := s.requests[id]; ok {
		copy := *request
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestStoreStub) GetDetailByID(ctx context.Context, id string) (*models.ChangeRequestDetail, error) {
	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ChangeRequestDetail{
		ChangeRequest:     *request,
		StudentName:       "Dana Smith",
		CurrentCourseName: "Algebra I",
		NewCourseName:     "Algebra II",
	}, nil
}

func (s *requestStoreStub) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequestDetail, error) {
	var result []models.ChangeRequestDetail
	for _, request := range s.requests {
		if filter.StudentID != "" && request.StudentID != filter.StudentID {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				if request.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, models.ChangeRequestDetail{ChangeRequest: *request})
	}
	return result, nil
}

func (s *requestStoreStub) UpdateReview(ctx context.Context, params repository.UpdateReviewParams) error {
	request, ok := s.requests[params.ID]
	if !ok || request.Status != models.RequestStatusPending {
		return repository.ErrRequestReviewed
	}
	if params.Status != "" {
		request.Status = params.Status
	}
	request.ReviewerID = params.ReviewerID
	if params.Comments != nil {
		request.Comments = params.Comments
	}
	return nil
}

func (s *requestStoreStub) Approve(ctx context.Context, params repository.ApproveParams) error {
	s.applyCalls++
	request, ok := s.requests[params.RequestID]
	if !ok {
		return sql.ErrNoRows
	}
	if request.Status != models.RequestStatusPending {
		return repository.ErrRequestReviewed
	}
	if count := s.unresolved[params.RequestID]; count > 0 {
		return &repository.UnresolvedConflictsError{RequestID: params.RequestID, Count: count}
	}
	request.Status = models.RequestStatusApproved
	request.ReviewerID = params.ReviewerID
	if params.Comments != nil {
		request.Comments = params.Comments
	}
	s.approved = append(s.approved, params.RequestID)
	return nil
}

func (s *requestStoreStub) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := s.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.requests, id)
	return nil
}

type detectorStub struct {
	detected  []models.Conflict
	detectErr error
	persisted map[string][]models.Conflict
}

func newDetectorStub() *detectorStub {
	return &detectorStub{persisted: make(map[string][]models.Conflict)}
}

func (d *detectorStub) DetectForSwap(ctx context.Context, studentID, currentCourseID, newCourseID string) ([]models.Conflict, error) {
	if d.detectErr != nil {
		return nil, d.detectErr
	}
	return d.detected, nil
}

func (d *detectorStub) PersistForRequest(ctx context.Context, requestID string, conflicts []models.Conflict) error {
	d.persisted[requestID] = append(d.persisted[requestID], conflicts...)
	return nil
}

func (d *detectorStub) ListForRequest(ctx context.Context, requestID string) ([]models.Conflict, error) {
	return d.persisted[requestID], nil
}

type studentReaderStub struct {
	students map[string]*models.StudentDetail
}

func (s *studentReaderStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type settingsReaderStub struct {
	settings models.Settings
}

func (s *settingsReaderStub) Get(ctx context.Context) (*models.Settings, error) {
	copy := s.settings
	return &copy, nil
}

type notifierStub struct {
	mu         sync.Mutex
	intents    []models.NotificationIntent
	counselors []string
}

func (n *notifierStub) Dispatch(intent models.NotificationIntent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intent)
}

func (n *notifierStub) DispatchToCounselors(ctx context.Context, message string, notifType models.NotificationType) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counselors = append(n.counselors, message)
}

func newWorkflowFixture() (*ChangeRequestService, *requestStoreStub, *detectorStub, *notifierStub) {
	store := newRequestStoreStub()
	detector := newDetectorStub()
	students := &studentReaderStub{students: map[string]*models.StudentDetail{
		"student-1": {
			Student: models.Student{ID: "student-1", UserID: "user-1", GradeLevel: 10},
			Name:    "Dana Smith",
		},
	}}
	settings := &settingsReaderStub{settings: models.Settings{MaxCourseLoad: 8, AllowConflicts: false}}
	notifier := &notifierStub{}
	svc := NewChangeRequestService(store, detector, students, settings, notifier, 3, nil)
	return svc, store, detector, notifier
}

func TestSubmitPersistsConflictsAndNotifiesCounselors(t *testing.T) {
	svc, _, detector, notifier := newWorkflowFixture()
	detector.detected = []models.Conflict{
		{CourseID: "phys201", Type: models.ConflictTypeScheduleOverlap, Description: "Period 4 overlap"},
	}

	detail, err := svc.Submit(context.Background(), dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "math101",
		NewCourseID:     "phys201",
		Reason:          "schedule change",
	})
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, detail.Status)
	require.Len(t, detector.persisted[detail.ID], 1)
	require.Len(t, detail.Conflicts, 1)
	require.Len(t, notifier.counselors, 1)
}

func TestSubmitAdvisoryModeSkipsPersistence(t *testing.T) {
	store := newRequestStoreStub()
	detector := newDetectorStub()
	detector.detected = []models.Conflict{{CourseID: "phys201", Type: models.ConflictTypeCapacity}}
	students := &studentReaderStub{students: map[string]*models.StudentDetail{
		"student-1": {Student: models.Student{ID: "student-1", UserID: "user-1"}},
	}}
	settings := &settingsReaderStub{settings: models.Settings{MaxCourseLoad: 8, AllowConflicts: true}}
	notifier := &notifierStub{}
	svc := NewChangeRequestService(store, detector, students, settings, notifier, 3, nil)

	detail, err := svc.Submit(context.Background(), dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "math101",
		NewCourseID:     "phys201",
		Reason:          "schedule change",
	})
	require.NoError(t, err)
	require.Empty(t, detector.persisted[detail.ID])
	// Conflicts are still surfaced to the caller.
	require.Len(t, detail.Conflicts, 1)
}

func TestSubmitMembershipFailureCreatesNothing(t *testing.T) {
	svc, store, detector, notifier := newWorkflowFixture()
	detector.detectErr = appErrors.Clone(appErrors.ErrNotInSchedule, "course ghost is not assigned to this student")

	_, err := svc.Submit(context.Background(), dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "ghost",
		NewCourseID:     "math201",
		Reason:          "schedule change",
	})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotInSchedule))
	require.Empty(t, store.requests)
	require.Empty(t, notifier.counselors)

	detector.detectErr = appErrors.Clone(appErrors.ErrAlreadyAssigned, "course eng101 is already in the schedule")
	_, err = svc.Submit(context.Background(), dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "math101",
		NewCourseID:     "eng101",
		Reason:          "schedule change",
	})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrAlreadyAssigned))
	require.Empty(t, store.requests)
	require.Empty(t, detector.persisted)
}

func TestSubmitRejectsIdenticalCourses(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()
	_, err := svc.Submit(context.Background(), dto.CreateChangeRequest{
		StudentID:       "student-1",
		CurrentCourseID: "math101",
		NewCourseID:     "math101",
		Reason:          "oops",
	})
	require.Error(t, err)
}

func TestReviewApproveSwapsAndNotifiesStudent(t *testing.T) {
	svc, store, _, notifier := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{
		ID: "req-1", StudentID: "student-1", CurrentCourseID: "math101",
		NewCourseID: "math201", Status: models.RequestStatusPending,
	}

	detail, err := svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{
		Status:   models.RequestStatusApproved,
		Comments: "approved, good standing",
	}, "counselor-1")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, detail.Status)
	require.Len(t, store.approved, 1)
	require.Len(t, notifier.intents, 1)
	require.Equal(t, "user-1", notifier.intents[0].RecipientID)
	require.Equal(t, models.NotificationTypeRequestApproved, notifier.intents[0].Type)
}

func TestReviewApproveBlockedByUnresolvedConflicts(t *testing.T) {
	svc, store, _, notifier := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{
		ID: "req-1", StudentID: "student-1", Status: models.RequestStatusPending,
	}
	store.unresolved["req-1"] = 2

	_, err := svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{
		Status: models.RequestStatusApproved,
	}, "counselor-1")
	require.Error(t, err)
	require.Equal(t, models.RequestStatusPending, store.requests["req-1"].Status)
	require.Empty(t, notifier.intents)
}

func TestReviewDenyLeavesScheduleAlone(t *testing.T) {
	svc, store, _, notifier := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{
		ID: "req-1", StudentID: "student-1", Status: models.RequestStatusPending,
	}

	detail, err := svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{
		Status:   models.RequestStatusDenied,
		Comments: "course is full next term",
	}, "counselor-1")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusDenied, detail.Status)
	require.Zero(t, store.applyCalls)
	require.Len(t, notifier.intents, 1)
	require.Equal(t, models.NotificationTypeRequestDenied, notifier.intents[0].Type)
}

func TestReviewTerminalRequestRejected(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{
		ID: "req-1", StudentID: "student-1", Status: models.RequestStatusApproved,
	}

	_, err := svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{
		Status: models.RequestStatusDenied,
	}, "counselor-1")
	require.Error(t, err)
	require.Equal(t, models.RequestStatusApproved, store.requests["req-1"].Status)
}

func TestReviewCommentOnlyKeepsPending(t *testing.T) {
	svc, store, _, notifier := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{
		ID: "req-1", StudentID: "student-1", Status: models.RequestStatusPending,
	}

	detail, err := svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{
		Comments: "checking prerequisites with the math department",
	}, "counselor-1")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, detail.Status)
	// The student still hears about the comment, but as an update, not a
	// decision.
	require.Len(t, notifier.intents, 1)
	require.Equal(t, "user-1", notifier.intents[0].RecipientID)
	require.Equal(t, models.NotificationTypeRequestUpdate, notifier.intents[0].Type)

	_, err = svc.Review(context.Background(), "req-1", dto.ReviewChangeRequest{}, "counselor-1")
	require.Error(t, err)
}

func TestRemoveCascades(t *testing.T) {
	svc, store, _, _ := newWorkflowFixture()
	store.requests["req-1"] = &models.ChangeRequest{ID: "req-1", Status: models.RequestStatusPending}

	require.NoError(t, svc.Remove(context.Background(), "req-1"))
	require.NotContains(t, store.requests, "req-1")

	require.Error(t, svc.Remove(context.Background(), "req-1"))
}
