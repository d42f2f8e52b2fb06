package models

import "time"

// Student represents a learner who can hold at most one schedule.
type Student struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches Student with account info and schedule presence.
type StudentDetail struct {
	Student
	Name        string  `db:"name" json:"name"`
	Email       string  `db:"email" json:"email"`
	ScheduleID  *string `db:"schedule_id" json:"schedule_id,omitempty"`
	HasSchedule bool    `db:"-" json:"has_schedule"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	GradeLevel int
	Page       int
	PageSize   int
}
