package models

import "time"

// ConflictType categorises a detected scheduling obstruction.
type ConflictType string

const (
	ConflictTypeScheduleOverlap ConflictType = "SCHEDULE_OVERLAP"
	ConflictTypeCapacity        ConflictType = "CAPACITY"
	ConflictTypePrerequisite    ConflictType = "PREREQUISITE"
	ConflictTypeOther           ConflictType = "OTHER"
)

// Conflict records an obstruction blocking approval of a change request.
// A request cannot be approved while any of its conflicts is unresolved.
type Conflict struct {
	ID          string       `db:"id" json:"id"`
	Description string       `db:"description" json:"description"`
	CourseID    string       `db:"course_id" json:"course_id"`
	RequestID   string       `db:"request_id" json:"request_id"`
	Type        ConflictType `db:"type" json:"type"`
	Resolved    bool         `db:"resolved" json:"resolved"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// ConflictDetail includes the implicated course name for display.
type ConflictDetail struct {
	Conflict
	CourseName string `db:"course_name" json:"course_name"`
	CourseCode string `db:"course_code" json:"course_code"`
}
