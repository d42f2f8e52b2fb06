package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/dto"
	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	"github.com/schedexpress/schedexpress-api/pkg/database"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, request *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	GetDetailByID(ctx context.Context, id string) (*models.ChangeRequestDetail, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequestDetail, error)
	UpdateReview(ctx context.Context, params repository.UpdateReviewParams) error
	Approve(ctx context.Context, params repository.ApproveParams) error
	DeleteCascade(ctx context.Context, id string) error
}

type swapConflictDetector interface {
	DetectForSwap(ctx context.Context, studentID, currentCourseID, newCourseID string) ([]models.Conflict, error)
	PersistForRequest(ctx context.Context, requestID string, conflicts []models.Conflict) error
	ListForRequest(ctx context.Context, requestID string) ([]models.Conflict, error)
}

type requestNotifier interface {
	Dispatch(intent models.NotificationIntent)
	DispatchToCounselors(ctx context.Context, message string, notifType models.NotificationType)
}

// ChangeRequestService runs the review workflow: submission with conflict
// detection, counselor decisions, and cascaded removal. Approval re-validates
// capacity inside the apply transaction, so a stale detection result can never
// oversubscribe a course.
type ChangeRequestService struct {
	requests  changeRequestStore
	conflicts swapConflictDetector
	students  studentReader
	settings  settingsReader
	notifier  requestNotifier
	txRetries int
	logger    *zap.Logger
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(requests changeRequestStore, conflicts swapConflictDetector, students studentReader, settings settingsReader, notifier requestNotifier, txRetries int, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txRetries < 1 {
		txRetries = 3
	}
	return &ChangeRequestService{
		requests:  requests,
		conflicts: conflicts,
		students:  students,
		settings:  settings,
		notifier:  notifier,
		txRetries: txRetries,
		logger:    logger,
	}
}

// Submit records a swap proposal. Conflicts are detected up front and, unless
// the engine is configured to allow them, persisted against the new request so
// they gate approval.
func (s *ChangeRequestService) Submit(ctx context.Context, req dto.CreateChangeRequest) (*models.ChangeRequestDetail, error) {
	if req.CurrentCourseID == req.NewCourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "current and new course must differ")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	detected, err := s.conflicts.DetectForSwap(ctx, req.StudentID, req.CurrentCourseID, req.NewCourseID)
	if err != nil {
		return nil, err
	}

	request := &models.ChangeRequest{
		StudentID:       req.StudentID,
		CurrentCourseID: req.CurrentCourseID,
		NewCourseID:     req.NewCourseID,
		Reason:          req.Reason,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(detected) > 0 && !settings.AllowConflicts {
		if err := s.conflicts.PersistForRequest(ctx, request.ID, detected); err != nil {
			return nil, err
		}
	}

	detail, err := s.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	if settings.AllowConflicts {
		// Advisory mode: surface what was found without recording it.
		detail.Conflicts = detected
	}

	s.notifier.DispatchToCounselors(ctx,
		requestUpdateMessage(detail.StudentName, detail.CurrentCourseName, detail.NewCourseName),
		models.NotificationTypeRequestUpdate)
	return detail, nil
}

// Get returns a request with display context and its conflicts.
func (s *ChangeRequestService) Get(ctx context.Context, id string) (*models.ChangeRequestDetail, error) {
	detail, err := s.requests.GetDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	conflicts, err := s.conflicts.ListForRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Conflicts = conflicts
	return detail, nil
}

// List returns requests matching the query.
func (s *ChangeRequestService) List(ctx context.Context, query dto.ChangeRequestQuery) ([]models.ChangeRequestDetail, error) {
	requests, err := s.requests.List(ctx, models.ChangeRequestFilter{
		StudentID: query.StudentID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	if requests == nil {
		requests = []models.ChangeRequestDetail{}
	}
	return requests, nil
}

// Pending returns the review queue, oldest first.
func (s *ChangeRequestService) Pending(ctx context.Context) ([]models.ChangeRequestDetail, error) {
	return s.List(ctx, dto.ChangeRequestQuery{Status: []models.RequestStatus{models.RequestStatusPending}})
}

// Review applies a counselor decision. APPROVED swaps the courses inside one
// transaction, DENIED records the outcome without touching the schedule, and
// an empty status updates comments while the request stays PENDING.
func (s *ChangeRequestService) Review(ctx context.Context, id string, req dto.ReviewChangeRequest, reviewerID string) (*models.ChangeRequestDetail, error) {
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if current.Status.Terminal() {
		return nil, appErrors.ErrAlreadyTerminal
	}

	comments := optionalString(req.Comments)

	switch req.Status {
	case models.RequestStatusApproved:
		err = database.WithRetry(ctx, s.txRetries, func() error {
			return s.requests.Approve(ctx, repository.ApproveParams{
				RequestID:  id,
				ReviewerID: &reviewerID,
				Comments:   comments,
			})
		})
	case models.RequestStatusDenied:
		err = s.requests.UpdateReview(ctx, repository.UpdateReviewParams{
			ID:         id,
			Status:     models.RequestStatusDenied,
			ReviewerID: &reviewerID,
			Comments:   comments,
		})
	case "":
		if comments == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "comments are required when no decision is made")
		}
		err = s.requests.UpdateReview(ctx, repository.UpdateReviewParams{
			ID:         id,
			ReviewerID: &reviewerID,
			Comments:   comments,
		})
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or DENIED")
	}
	if err != nil {
		return nil, mapScheduleError(err, "failed to review change request")
	}

	detail, detailErr := s.Get(ctx, id)
	if detailErr != nil {
		return nil, detailErr
	}

	if req.Status.Terminal() {
		s.notifyStudent(ctx, detail, req.Status)
	} else {
		s.notifyCommentUpdate(ctx, detail)
	}
	return detail, nil
}

// Remove deletes a request and its conflicts.
func (s *ChangeRequestService) Remove(ctx context.Context, id string) error {
	err := database.WithRetry(ctx, s.txRetries, func() error {
		return s.requests.DeleteCascade(ctx, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return mapScheduleError(err, "failed to delete change request")
	}
	return nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// notifyCommentUpdate tells the student a reviewer commented without deciding.
func (s *ChangeRequestService) notifyCommentUpdate(ctx context.Context, detail *models.ChangeRequestDetail) {
	student, err := s.students.FindByID(ctx, detail.StudentID)
	if err != nil {
		s.logger.Warn("student lookup failed, comment notification dropped",
			zap.String("request_id", detail.ID), zap.Error(err))
		return
	}
	s.notifier.Dispatch(models.NotificationIntent{
		RecipientID:   student.UserID,
		RecipientRole: models.RoleStudent,
		Message:       commentUpdateMessage(detail.CurrentCourseName, detail.NewCourseName),
		Type:          models.NotificationTypeRequestUpdate,
	})
}

func (s *ChangeRequestService) notifyStudent(ctx context.Context, detail *models.ChangeRequestDetail, status models.RequestStatus) {
	student, err := s.students.FindByID(ctx, detail.StudentID)
	if err != nil {
		s.logger.Warn("student lookup failed, decision notification dropped",
			zap.String("request_id", detail.ID), zap.Error(err))
		return
	}
	notifType := models.NotificationTypeRequestApproved
	if status == models.RequestStatusDenied {
		notifType = models.NotificationTypeRequestDenied
	}
	s.notifier.Dispatch(models.NotificationIntent{
		RecipientID:   student.UserID,
		RecipientRole: models.RoleStudent,
		Message:       decisionMessage(status, detail.CurrentCourseName, detail.NewCourseName, time.Now().UTC()),
		Type:          notifType,
	})
}
