package dto

// CreateCourseRequest payload for adding a course to the catalog.
type CreateCourseRequest struct {
	CourseCode  string `json:"courseCode" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Period      int    `json:"period" validate:"required,gte=1,lte=8"`
	Capacity    int    `json:"capacity" validate:"required,gte=1"`
}

// UpdateCourseRequest carries partial course updates. Enrollment is owned by
// the schedule store and cannot be set through this payload.
type UpdateCourseRequest struct {
	CourseCode  *string `json:"courseCode"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Period      *int    `json:"period" validate:"omitempty,gte=1,lte=8"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=1"`
}
