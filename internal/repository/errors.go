package repository

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel and typed errors surfaced by transactional mutations. Services map
// these onto the API error taxonomy; the types carry enough context to name
// the offending entity.
var (
	ErrEmptySelection  = errors.New("schedule must include at least one course")
	ErrScheduleExists  = errors.New("student already has a schedule")
	ErrRequestReviewed = errors.New("request already reviewed")
)

// MissingCoursesError reports course ids that do not exist.
type MissingCoursesError struct {
	IDs []string
}

func (e *MissingCoursesError) Error() string {
	return fmt.Sprintf("courses not found: %s", strings.Join(e.IDs, ", "))
}

// NotInScheduleError reports a removal target that is not assigned.
type NotInScheduleError struct {
	CourseID string
}

func (e *NotInScheduleError) Error() string {
	return fmt.Sprintf("course %s is not in the schedule", e.CourseID)
}

// AlreadyAssignedError reports an addition target that is already assigned.
type AlreadyAssignedError struct {
	CourseID string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("course %s is already in the schedule", e.CourseID)
}

// LoadExceededError reports a resulting course count over the allowed load.
type LoadExceededError struct {
	Count int
	Max   int
}

func (e *LoadExceededError) Error() string {
	return fmt.Sprintf("schedule would hold %d courses, exceeding the maximum load of %d", e.Count, e.Max)
}

// UnresolvedConflictsError blocks approval while conflicts remain open.
type UnresolvedConflictsError struct {
	RequestID string
	Count     int
}

func (e *UnresolvedConflictsError) Error() string {
	return fmt.Sprintf("request %s has %d unresolved conflicts", e.RequestID, e.Count)
}
