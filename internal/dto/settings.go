package dto

// UpdateSettingsRequest carries partial updates to the settings singleton.
type UpdateSettingsRequest struct {
	SchoolName     *string `json:"schoolName"`
	AcademicYear   *string `json:"academicYear"`
	Semester       *string `json:"semester"`
	MaxCourseLoad  *int    `json:"maxCourseLoad" validate:"omitempty,gte=1"`
	AllowConflicts *bool   `json:"allowConflicts"`
}
