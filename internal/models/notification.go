package models

import "time"

// NotificationType enumerates supported notification categories.
type NotificationType string

const (
	NotificationTypeRequestUpdate   NotificationType = "REQUEST_UPDATE"
	NotificationTypeRequestApproved NotificationType = "REQUEST_APPROVED"
	NotificationTypeRequestDenied   NotificationType = "REQUEST_DENIED"
)

// NotificationIntent is the fire-and-forget message the engine emits; delivery
// is best effort and never transactional with schedule state.
type NotificationIntent struct {
	RecipientID   string           `json:"recipient_id"`
	RecipientRole UserRole         `json:"recipient_role"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
}

// Notification is a persisted, delivered intent.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	RecipientID   string           `db:"recipient_id" json:"recipient_id"`
	RecipientRole UserRole         `db:"recipient_role" json:"recipient_role"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	Read          bool             `db:"read" json:"read"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}
