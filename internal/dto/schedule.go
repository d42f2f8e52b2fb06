package dto

// CreateScheduleRequest payload for assigning a student's first schedule.
type CreateScheduleRequest struct {
	StudentID string   `json:"studentId" validate:"required"`
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
	Semester  string   `json:"semester" validate:"required"`
	Year      int      `json:"year" validate:"required,gte=2000"`
}

// UpdateScheduleRequest adds and removes courses in one mutation.
type UpdateScheduleRequest struct {
	AddCourseIDs    []string `json:"addCourseIds" validate:"dive,required"`
	RemoveCourseIDs []string `json:"removeCourseIds" validate:"dive,required"`
}
