package models

import (
	"fmt"
	"time"
)

// Course represents an offered course occupying one period slot.
// CurrentEnrollment is owned by the schedule store and only moves inside its
// transactional mutations; 0 <= CurrentEnrollment <= Capacity at every
// committed state.
type Course struct {
	ID                string    `db:"id" json:"id"`
	CourseCode        string    `db:"course_code" json:"course_code"`
	Name              string    `db:"name" json:"name"`
	Description       string    `db:"description" json:"description"`
	Period            int       `db:"period" json:"period"`
	Capacity          int       `db:"capacity" json:"capacity"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Full reports whether the course has no remaining seats.
func (c *Course) Full() bool {
	return c.CurrentEnrollment >= c.Capacity
}

// CourseFilter captures query parameters for listing courses.
type CourseFilter struct {
	Search   string
	Period   int
	Page     int
	PageSize int
}

// PeriodConflictError reports two courses fighting over one period slot.
type PeriodConflictError struct {
	Period       int    `json:"period"`
	CourseID     string `json:"course_id"`
	CourseName   string `json:"course_name"`
	ConflictID   string `json:"conflicting_course_id,omitempty"`
	ConflictName string `json:"conflicting_course_name,omitempty"`
}

// Error implements the error interface.
func (e *PeriodConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ConflictName != "" {
		return fmt.Sprintf("period %d conflict between %s and %s", e.Period, e.CourseName, e.ConflictName)
	}
	return fmt.Sprintf("period %d conflict on %s", e.Period, e.CourseName)
}

// CapacityError reports a course with no remaining seats.
type CapacityError struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Capacity   int    `json:"capacity"`
	Enrollment int    `json:"enrollment"`
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s is at capacity (%d/%d)", e.CourseName, e.Enrollment, e.Capacity)
}
