package cli

import (
	"courseledger.dev/cld/internal/types"
)

// @Title: Register User
// @Command: cld register-user --as <key> --name <name> --email <email> --role <student|instructor|admin>
// @Description: Register the signing identity as a user on the ledger
// @Response: Receipt; code 3 if the principal is already registered, 4 on invalid input
func (s *Service) HandleRegisterUser(sig Signer, name, email, role string) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxRegisterUser, types.RegisterUserPayload{
		Name:  name,
		Email: email,
		Role:  role,
	})
}

// @Title: Create Course
// @Command: cld create-course --as <key> --title <title> --description <text> --capacity <n> --start <height> --end <height>
// @Description: Create a course owned by the signing instructor or admin
// @Response: Receipt with the new course id; code 1 for non-instructors, 4 on invalid input
func (s *Service) HandleCreateCourse(sig Signer, title, description string, capacity, start, end uint64) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxCreateCourse, types.CreateCoursePayload{
		Title:       title,
		Description: description,
		MaxCapacity: capacity,
		StartDate:   start,
		EndDate:     end,
	})
}

// @Title: Enroll In Course
// @Command: cld enroll --as <key> --course <id>
// @Description: Enroll the signing student in a course
// @Response: Receipt; code 2 if the course is unknown, 5 when full, 6 when already enrolled, 7 before the start date
func (s *Service) HandleEnroll(sig Signer, courseID uint64) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxEnrollInCourse, types.EnrollPayload{CourseID: courseID})
}

// @Title: Add Course Material
// @Command: cld add-material --as <key> --course <id> --title <title> --url <url> --type <video|pdf|text|quiz>
// @Description: Attach a content item to a course owned by the signing instructor
// @Response: Receipt with the new material id; code 1 unless the sender teaches the course
func (s *Service) HandleAddMaterial(sig Signer, courseID uint64, title, contentURL, materialType string) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxAddCourseMaterial, types.AddMaterialPayload{
		CourseID:     courseID,
		Title:        title,
		ContentURL:   contentURL,
		MaterialType: materialType,
	})
}

// @Title: Update Course Progress
// @Command: cld update-progress --as <key> --course <id> --progress <0-100>
// @Description: Record the signing student's progress in a course they are enrolled in
// @Response: Receipt; code 2 when not enrolled, 8 once the course is completed
func (s *Service) HandleUpdateProgress(sig Signer, courseID, progress uint64) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxUpdateCourseProgress, types.UpdateProgressPayload{
		CourseID: courseID,
		Progress: progress,
	})
}

// @Title: Deactivate Course
// @Command: cld deactivate-course --as <key> --course <id>
// @Description: Close a course to new enrollments and progress updates
// @Response: Receipt; code 1 unless the sender is the course instructor or an admin
func (s *Service) HandleDeactivateCourse(sig Signer, courseID uint64) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	return s.submit(id, types.TxDeactivateCourse, types.DeactivateCoursePayload{CourseID: courseID})
}
