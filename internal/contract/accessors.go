package contract

import (
	"fmt"

	"courseledger.dev/cld/internal/types"
)

// Read-only accessors. These never mutate state and never reject; a missing
// record is reported through the boolean, matching the State contract.

// GetUserInfo returns the user record for a principal.
func (r *Registry) GetUserInfo(p types.Principal) (types.User, bool, error) {
	return r.state.GetUser(p)
}

// GetCourse returns a course by identifier.
func (r *Registry) GetCourse(id uint64) (types.Course, bool, error) {
	return r.state.GetCourse(id)
}

// GetEnrollment returns one student's enrollment in one course.
func (r *Registry) GetEnrollment(courseID uint64, student types.Principal) (types.Enrollment, bool, error) {
	return r.state.GetEnrollment(types.EnrollmentKey{CourseID: courseID, Student: student})
}

// GetCourseMaterial returns one material by course and material identifier.
func (r *Registry) GetCourseMaterial(courseID, materialID uint64) (types.CourseMaterial, bool, error) {
	return r.state.GetMaterial(types.MaterialKey{CourseID: courseID, MaterialID: materialID})
}

// GetTotalCourses returns the number of courses ever created. Identifiers
// are dense, so the last assigned identifier is the count.
func (r *Registry) GetTotalCourses() (uint64, error) {
	return r.state.LastCourseID()
}

// GetCourseMaterialCount returns the number of materials attached to a
// course, 0 for an unknown course.
func (r *Registry) GetCourseMaterialCount(courseID uint64) (uint64, error) {
	return r.state.MaterialCount(courseID)
}

// IsUserRegistered reports whether a principal has registered.
func (r *Registry) IsUserRegistered(p types.Principal) (bool, error) {
	_, registered, err := r.state.GetUser(p)
	if err != nil {
		return false, fmt.Errorf("failed to load user %s: %w", p.Short(), err)
	}
	return registered, nil
}

// IsEnrolled reports whether a student holds a seat in a course.
func (r *Registry) IsEnrolled(courseID uint64, student types.Principal) (bool, error) {
	_, enrolled, err := r.state.GetEnrollment(types.EnrollmentKey{CourseID: courseID, Student: student})
	if err != nil {
		return false, fmt.Errorf("failed to load enrollment for course %d: %w", courseID, err)
	}
	return enrolled, nil
}
