package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// NotificationRepository persists delivered notification intents.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, recipient_role, message, type, read, created_at`

// Create inserts a delivered notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO notifications (id, recipient_id, recipient_role, message, type, read, created_at)
        VALUES (:id, :recipient_id, :recipient_role, :message, :type, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByRecipient returns a recipient's notifications, latest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE recipient_id = $1", notificationColumns)
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT 100"
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one of the recipient's notifications as read. Zero rows means
// the notification does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2", id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check notification update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead flags every unread notification for the recipient.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE", recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check notification update rows: %w", err)
	}
	return rows, nil
}
