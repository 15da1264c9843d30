// Package contract implements the course registry state machine: user
// registration, course creation, enrollment, course materials, and progress
// tracking. Every entrypoint takes the verified caller and block height as a
// Call and applies its checks in a fixed order, so equal inputs always yield
// the same rejection code. The package holds the business rules only; signing,
// persistence, and block bookkeeping live in the runtime and ledger packages.
package contract

import (
	"fmt"

	"courseledger.dev/cld/internal/types"
)

// Call is the execution context of one entrypoint invocation: the sender
// principal recovered from the transaction signature and the height of the
// block being written. Entrypoints never read either from their payload.
type Call struct {
	Sender types.Principal
	Height uint64
}

// Registry executes entrypoints against a State.
type Registry struct {
	state State
}

// NewRegistry creates a registry bound to the given state view.
func NewRegistry(state State) *Registry {
	return &Registry{state: state}
}

// RegisterUser records the sender as a new user. Each principal may register
// exactly once; the stored role never changes afterwards.
func (r *Registry) RegisterUser(call Call, p types.RegisterUserPayload) error {
	_, exists, err := r.state.GetUser(call.Sender)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", call.Sender.Short(), err)
	}
	if exists {
		return ErrAlreadyExists
	}

	if !validText(p.Name, MaxNameLen) {
		return ErrInvalidInput
	}
	if !validText(p.Email, MaxEmailLen) {
		return ErrInvalidInput
	}
	role := types.Role(p.Role)
	if !role.Valid() {
		return ErrInvalidInput
	}

	return r.state.PutUser(types.User{
		Principal:    call.Sender,
		Name:         p.Name,
		Email:        p.Email,
		Role:         role,
		RegisteredAt: call.Height,
	})
}

// CreateCourse records a new course owned by the sender and returns its
// identifier. Only registered instructors and admins may create courses.
func (r *Registry) CreateCourse(call Call, p types.CreateCoursePayload) (uint64, error) {
	user, registered, err := r.state.GetUser(call.Sender)
	if err != nil {
		return 0, fmt.Errorf("failed to load user %s: %w", call.Sender.Short(), err)
	}
	if !registered {
		return 0, ErrUnauthorized
	}
	if user.Role != types.RoleInstructor && user.Role != types.RoleAdmin {
		return 0, ErrUnauthorized
	}

	if !validText(p.Title, MaxTitleLen) {
		return 0, ErrInvalidInput
	}
	if !validText(p.Description, MaxDescriptionLen) {
		return 0, ErrInvalidInput
	}
	if p.MaxCapacity == 0 {
		return 0, ErrInvalidInput
	}
	if p.StartDate >= p.EndDate {
		return 0, ErrInvalidInput
	}

	last, err := r.state.LastCourseID()
	if err != nil {
		return 0, fmt.Errorf("failed to load course counter: %w", err)
	}
	id := last + 1

	course := types.Course{
		ID:                 id,
		Title:              p.Title,
		Description:        p.Description,
		Instructor:         call.Sender,
		MaxCapacity:        p.MaxCapacity,
		CurrentEnrollments: 0,
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		Active:             true,
	}
	if err := r.state.PutCourse(course); err != nil {
		return 0, fmt.Errorf("failed to store course %d: %w", id, err)
	}
	if err := r.state.SetLastCourseID(id); err != nil {
		return 0, fmt.Errorf("failed to advance course counter: %w", err)
	}
	// New courses start with an empty material sequence.
	if err := r.state.SetMaterialCount(id, 0); err != nil {
		return 0, fmt.Errorf("failed to initialize material counter for course %d: %w", id, err)
	}
	return id, nil
}

// EnrollInCourse adds the sender to a course. Enrollment requires an active
// course with free capacity and fails if the sender already holds a seat.
func (r *Registry) EnrollInCourse(call Call, p types.EnrollPayload) error {
	course, found, err := r.state.GetCourse(p.CourseID)
	if err != nil {
		return fmt.Errorf("failed to load course %d: %w", p.CourseID, err)
	}
	if !found {
		return ErrNotFound
	}

	_, registered, err := r.state.GetUser(call.Sender)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", call.Sender.Short(), err)
	}
	if !registered {
		return ErrUnauthorized
	}

	if !course.Active {
		return ErrCourseNotStarted
	}
	if course.CurrentEnrollments >= course.MaxCapacity {
		return ErrCourseFull
	}

	key := types.EnrollmentKey{CourseID: p.CourseID, Student: call.Sender}
	_, enrolled, err := r.state.GetEnrollment(key)
	if err != nil {
		return fmt.Errorf("failed to load enrollment for course %d: %w", p.CourseID, err)
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	course.CurrentEnrollments++
	if err := r.state.PutCourse(course); err != nil {
		return fmt.Errorf("failed to store course %d: %w", p.CourseID, err)
	}
	return r.state.PutEnrollment(types.Enrollment{
		CourseID:   p.CourseID,
		Student:    call.Sender,
		EnrolledAt: call.Height,
		Progress:   0,
		Completed:  false,
	})
}

// AddCourseMaterial attaches a content item to a course the sender teaches
// and returns the material's per-course identifier. Input is validated before
// ownership, so a malformed request on someone else's course reports
// invalid-input rather than unauthorized.
func (r *Registry) AddCourseMaterial(call Call, p types.AddMaterialPayload) (uint64, error) {
	course, found, err := r.state.GetCourse(p.CourseID)
	if err != nil {
		return 0, fmt.Errorf("failed to load course %d: %w", p.CourseID, err)
	}
	if !found {
		return 0, ErrNotFound
	}

	_, registered, err := r.state.GetUser(call.Sender)
	if err != nil {
		return 0, fmt.Errorf("failed to load user %s: %w", call.Sender.Short(), err)
	}
	if !registered {
		return 0, ErrUnauthorized
	}

	if !validText(p.Title, MaxTitleLen) {
		return 0, ErrInvalidInput
	}
	if !validText(p.ContentURL, MaxContentURLLen) {
		return 0, ErrInvalidInput
	}
	materialType := types.MaterialType(p.MaterialType)
	if !materialType.Valid() {
		return 0, ErrInvalidInput
	}

	if course.Instructor != call.Sender {
		return 0, ErrUnauthorized
	}

	count, err := r.state.MaterialCount(p.CourseID)
	if err != nil {
		return 0, fmt.Errorf("failed to load material counter for course %d: %w", p.CourseID, err)
	}
	id := count + 1

	material := types.CourseMaterial{
		CourseID:     p.CourseID,
		ID:           id,
		Title:        p.Title,
		ContentURL:   p.ContentURL,
		MaterialType: materialType,
	}
	if err := r.state.PutMaterial(material); err != nil {
		return 0, fmt.Errorf("failed to store material %d for course %d: %w", id, p.CourseID, err)
	}
	if err := r.state.SetMaterialCount(p.CourseID, id); err != nil {
		return 0, fmt.Errorf("failed to advance material counter for course %d: %w", p.CourseID, err)
	}
	return id, nil
}

// UpdateCourseProgress sets the sender's progress in a course. Progress is a
// percentage; reaching 100 marks the enrollment completed, after which
// further updates are rejected.
func (r *Registry) UpdateCourseProgress(call Call, p types.UpdateProgressPayload) error {
	key := types.EnrollmentKey{CourseID: p.CourseID, Student: call.Sender}
	enrollment, enrolled, err := r.state.GetEnrollment(key)
	if err != nil {
		return fmt.Errorf("failed to load enrollment for course %d: %w", p.CourseID, err)
	}
	if !enrolled {
		return ErrNotFound
	}

	course, found, err := r.state.GetCourse(p.CourseID)
	if err != nil {
		return fmt.Errorf("failed to load course %d: %w", p.CourseID, err)
	}
	if !found {
		return ErrNotFound
	}
	if !course.Active {
		return ErrCourseNotStarted
	}
	if enrollment.Completed {
		return ErrCourseCompleted
	}

	if p.Progress > MaxProgress {
		return ErrInvalidInput
	}

	enrollment.Progress = p.Progress
	enrollment.Completed = p.Progress == MaxProgress
	return r.state.PutEnrollment(enrollment)
}

// DeactivateCourse closes a course to further enrollment and progress
// updates. Only the course's instructor or an admin may deactivate, and
// deactivating an already inactive course is a no-op.
func (r *Registry) DeactivateCourse(call Call, p types.DeactivateCoursePayload) error {
	course, found, err := r.state.GetCourse(p.CourseID)
	if err != nil {
		return fmt.Errorf("failed to load course %d: %w", p.CourseID, err)
	}
	if !found {
		return ErrNotFound
	}

	user, registered, err := r.state.GetUser(call.Sender)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", call.Sender.Short(), err)
	}
	if !registered {
		return ErrUnauthorized
	}
	if course.Instructor != call.Sender && user.Role != types.RoleAdmin {
		return ErrUnauthorized
	}

	course.Active = false
	return r.state.PutCourse(course)
}
