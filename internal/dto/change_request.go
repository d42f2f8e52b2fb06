package dto

import "github.com/schedexpress/schedexpress-api/internal/models"

// CreateChangeRequest payload for submitting a course swap proposal.
type CreateChangeRequest struct {
	StudentID       string `json:"studentId" validate:"required"`
	CurrentCourseID string `json:"currentCourseId" validate:"required"`
	NewCourseID     string `json:"newCourseId" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
}

// ReviewChangeRequest captures a reviewer decision or a comment-only update.
// Status empty means no transition: reviewer/comments may change while the
// request stays PENDING.
type ReviewChangeRequest struct {
	Status   models.RequestStatus `json:"status" validate:"omitempty,oneof=APPROVED DENIED"`
	Comments string               `json:"comments"`
}

// ChangeRequestQuery mirrors supported listing filters.
type ChangeRequestQuery struct {
	StudentID string
	Status    []models.RequestStatus
	Limit     int
	Offset    int
}
