package models

import "time"

// RequestStatus captures the workflow states of a change request.
// APPROVED and DENIED are terminal: no transition leaves either.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusDenied   RequestStatus = "DENIED"
)

// Terminal reports whether the status is final.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusDenied
}

// ChangeRequest is a student's proposal to swap one assigned course for
// another, subject to counselor review.
type ChangeRequest struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	CurrentCourseID string        `db:"current_course_id" json:"current_course_id"`
	NewCourseID     string        `db:"new_course_id" json:"new_course_id"`
	Status          RequestStatus `db:"status" json:"status"`
	Reason          string        `db:"reason" json:"reason"`
	ReviewerID      *string       `db:"reviewer_id" json:"reviewer_id,omitempty"`
	Comments        *string       `db:"comments" json:"comments,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ChangeRequestDetail enriches a request with display context.
type ChangeRequestDetail struct {
	ChangeRequest
	StudentName       string     `db:"student_name" json:"student_name"`
	CurrentCourseName string     `db:"current_course_name" json:"current_course_name"`
	NewCourseName     string     `db:"new_course_name" json:"new_course_name"`
	Conflicts         []Conflict `db:"-" json:"conflicts,omitempty"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	StudentID string
	Status    []RequestStatus
	Limit     int
	Offset    int
}
