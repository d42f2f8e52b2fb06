package models

import "time"

// Schedule holds a student's assigned course set for a semester. A student has
// at most one schedule, and no two assigned courses may share a period.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Semester  string    `db:"semester" json:"semester"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail carries the schedule with its courses ordered by period.
type ScheduleDetail struct {
	Schedule
	StudentName string   `db:"student_name" json:"student_name"`
	Courses     []Course `db:"-" json:"courses"`
}
