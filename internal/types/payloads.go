package types

// Entrypoint payloads. Each mirrors the parameter list of one contract
// operation; callers marshal these into Transaction.Params. Caller identity
// and block height are never part of a payload.

// RegisterUserPayload registers the sender as a new user.
type RegisterUserPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateCoursePayload creates a course owned by the sender.
type CreateCoursePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxCapacity uint64 `json:"max_capacity"`
	StartDate   uint64 `json:"start_date"`
	EndDate     uint64 `json:"end_date"`
}

// EnrollPayload enrolls the sender in a course.
type EnrollPayload struct {
	CourseID uint64 `json:"course_id"`
}

// AddMaterialPayload attaches a content item to a course the sender teaches.
type AddMaterialPayload struct {
	CourseID     uint64 `json:"course_id"`
	Title        string `json:"title"`
	ContentURL   string `json:"content_url"`
	MaterialType string `json:"material_type"`
}

// UpdateProgressPayload updates the sender's progress in a course.
type UpdateProgressPayload struct {
	CourseID uint64 `json:"course_id"`
	Progress uint64 `json:"progress"`
}

// DeactivateCoursePayload closes a course to further enrollment and updates.
type DeactivateCoursePayload struct {
	CourseID uint64 `json:"course_id"`
}
