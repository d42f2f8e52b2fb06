package models

import "time"

// RuleType enumerates the scheduling rule categories. SCHEDULE_OVERLAP and
// CAPACITY are enforced structurally by the engine; PREREQUISITE is checked
// through course rules; GRADE_REQUIREMENT and OTHER are stored for display
// only and never mechanically evaluated.
type RuleType string

const (
	RuleTypeScheduleOverlap  RuleType = "SCHEDULE_OVERLAP"
	RuleTypePrerequisite     RuleType = "PREREQUISITE"
	RuleTypeGradeRequirement RuleType = "GRADE_REQUIREMENT"
	RuleTypeCapacity         RuleType = "CAPACITY"
	RuleTypeOther            RuleType = "OTHER"
)

// ValidRuleType reports whether t is a known rule type.
func ValidRuleType(t RuleType) bool {
	switch t {
	case RuleTypeScheduleOverlap, RuleTypePrerequisite, RuleTypeGradeRequirement, RuleTypeCapacity, RuleTypeOther:
		return true
	}
	return false
}

// Rule is a globally scoped scheduling rule.
type Rule struct {
	ID          string    `db:"id" json:"id"`
	Type        RuleType  `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseRule relates a course to a conflicting or prerequisite course. The
// relationship is directed: for PREREQUISITE, ConflictingCourseID names the
// course required before CourseID may be taken.
type CourseRule struct {
	ID                  string    `db:"id" json:"id"`
	CourseID            string    `db:"course_id" json:"course_id"`
	ConflictingCourseID string    `db:"conflicting_course_id" json:"conflicting_course_id"`
	Type                RuleType  `db:"type" json:"type"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// CourseRuleDetail includes the names of both related courses.
type CourseRuleDetail struct {
	CourseRule
	CourseName            string `db:"course_name" json:"course_name"`
	CourseCode            string `db:"course_code" json:"course_code"`
	ConflictingCourseName string `db:"conflicting_course_name" json:"conflicting_course_name"`
	ConflictingCourseCode string `db:"conflicting_course_code" json:"conflicting_course_code"`
}
