package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schedexpress/schedexpress-api/internal/models"
	appErrors "github.com/schedexpress/schedexpress-api/pkg/errors"
	"github.com/schedexpress/schedexpress-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type counselorDirectory interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// NotificationService delivers notification intents through an in-process
// queue. Delivery is fire and forget: a failed dispatch never surfaces to the
// operation that emitted the intent.
type NotificationService struct {
	repo   notificationStore
	users  counselorDirectory
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue.
func NewNotificationService(repo notificationStore, users counselorDirectory, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, users: users, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues a single intent. Errors are logged, never returned.
func (s *NotificationService) Dispatch(intent models.NotificationIntent) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(intent.Type),
		Payload: intent,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped", zap.String("type", string(intent.Type)), zap.Error(err))
	}
}

// DispatchToCounselors fans one message out to every counselor account.
func (s *NotificationService) DispatchToCounselors(ctx context.Context, message string, notifType models.NotificationType) {
	counselors, err := s.users.ListByRole(ctx, models.RoleCounselor)
	if err != nil {
		s.logger.Warn("counselor lookup failed, notification dropped", zap.Error(err))
		return
	}
	for _, c := range counselors {
		s.Dispatch(models.NotificationIntent{
			RecipientID:   c.ID,
			RecipientRole: models.RoleCounselor,
			Message:       message,
			Type:          notifType,
		})
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	intent, ok := job.Payload.(models.NotificationIntent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	notification := &models.Notification{
		RecipientID:   intent.RecipientID,
		RecipientRole: intent.RecipientRole,
		Message:       intent.Message,
		Type:          intent.Type,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	return nil
}

// List returns the recipient's notifications.
func (s *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipientID, unreadOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// MarkRead flags one notification as read for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if err := s.repo.MarkRead(ctx, id, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification for the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return count, nil
}

// requestUpdateMessage formats the counselor-facing submission notice.
func requestUpdateMessage(studentName, currentCourse, newCourse string) string {
	return fmt.Sprintf("%s requested to swap %s for %s", studentName, currentCourse, newCourse)
}

// commentUpdateMessage formats the student-facing comment notice.
func commentUpdateMessage(currentCourse, newCourse string) string {
	return fmt.Sprintf("A counselor commented on your request to swap %s for %s", currentCourse, newCourse)
}

// decisionMessage formats the student-facing outcome notice.
func decisionMessage(status models.RequestStatus, currentCourse, newCourse string, at time.Time) string {
	verb := "approved"
	if status == models.RequestStatusDenied {
		verb = "denied"
	}
	return fmt.Sprintf("Your request to swap %s for %s was %s on %s", currentCourse, newCourse, verb, at.Format("Jan 2, 2006"))
}
