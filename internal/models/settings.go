package models

import "time"

// Settings is the singleton configuration row gating engine behaviour.
// MaxCourseLoad caps the number of courses per schedule; AllowConflicts turns
// detected conflicts advisory (returned but never persisted).
type Settings struct {
	ID             string    `db:"id" json:"id"`
	SchoolName     string    `db:"school_name" json:"school_name"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	Semester       string    `db:"semester" json:"semester"`
	MaxCourseLoad  int       `db:"max_course_load" json:"max_course_load"`
	AllowConflicts bool      `db:"allow_conflicts" json:"allow_conflicts"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
