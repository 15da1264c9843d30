// Contract tests run every entrypoint against an in-memory state and pin
// both the success semantics and the rejection code each failing call must
// return, including the order checks are applied in.
package contract

import (
	"errors"
	"strings"
	"testing"

	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/types"
)

var (
	alice = types.Principal(strings.Repeat("a", types.PrincipalHexLen))
	bob   = types.Principal(strings.Repeat("b", types.PrincipalHexLen))
	carol = types.Principal(strings.Repeat("c", types.PrincipalHexLen))
	dave  = types.Principal(strings.Repeat("d", types.PrincipalHexLen))
	erin  = types.Principal(strings.Repeat("e", types.PrincipalHexLen))
)

func call(p types.Principal, height uint64) Call {
	return Call{Sender: p, Height: height}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(ledger.NewMem())
}

// register adds a user record or fails the test.
func register(t *testing.T, r *Registry, p types.Principal, role types.Role) {
	t.Helper()
	err := r.RegisterUser(call(p, 1), types.RegisterUserPayload{
		Name:  "Test User",
		Email: "user@example.com",
		Role:  string(role),
	})
	if err != nil {
		t.Fatalf("register %s as %s: %v", p.Short(), role, err)
	}
}

// createCourse creates a course owned by the given instructor or fails the
// test. Start and end dates are fixed, capacity is configurable.
func createCourse(t *testing.T, r *Registry, instructor types.Principal, capacity uint64) uint64 {
	t.Helper()
	id, err := r.CreateCourse(call(instructor, 2), types.CreateCoursePayload{
		Title:       "Intro",
		Description: "D",
		MaxCapacity: capacity,
		StartDate:   10,
		EndDate:     20,
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	return id
}

func wantErr(t *testing.T, got error, want *Error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("Got error %v, want %v", got, want)
	}
}

func TestRegisterUserSucceedsOnce(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterUser(call(alice, 42), types.RegisterUserPayload{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Role:  "instructor",
	})
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	user, found, err := r.GetUserInfo(alice)
	if err != nil {
		t.Fatalf("GetUserInfo: %v", err)
	}
	if !found {
		t.Fatal("registered user not found")
	}
	if user.Name != "Ada Lovelace" || user.Email != "ada@example.com" {
		t.Errorf("Got user %+v, want stored name and email", user)
	}
	if user.Role != types.RoleInstructor {
		t.Errorf("Got role %s, want %s", user.Role, types.RoleInstructor)
	}
	if user.RegisteredAt != 42 {
		t.Errorf("Got registered_at %d, want 42", user.RegisteredAt)
	}
	if user.Principal != alice {
		t.Errorf("Got principal %s, want %s", user.Principal, alice)
	}

	// A second registration from the same principal always fails, whatever
	// the payload says.
	err = r.RegisterUser(call(alice, 43), types.RegisterUserPayload{
		Name:  "Someone Else",
		Email: "other@example.com",
		Role:  "student",
	})
	wantErr(t, err, ErrAlreadyExists)

	// The stored record is untouched by the rejected call.
	user, _, _ = r.GetUserInfo(alice)
	if user.Name != "Ada Lovelace" || user.Role != types.RoleInstructor {
		t.Errorf("rejected register mutated the record: %+v", user)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	longName := strings.Repeat("n", MaxNameLen+1)
	longEmail := strings.Repeat("e", MaxEmailLen+1)

	cases := []struct {
		name    string
		payload types.RegisterUserPayload
	}{
		{"EmptyName", types.RegisterUserPayload{Name: "", Email: "a@b.c", Role: "student"}},
		{"NameTooLong", types.RegisterUserPayload{Name: longName, Email: "a@b.c", Role: "student"}},
		{"EmptyEmail", types.RegisterUserPayload{Name: "Ada", Email: "", Role: "student"}},
		{"EmailTooLong", types.RegisterUserPayload{Name: "Ada", Email: longEmail, Role: "student"}},
		{"EmptyRole", types.RegisterUserPayload{Name: "Ada", Email: "a@b.c", Role: ""}},
		{"UnknownRole", types.RegisterUserPayload{Name: "Ada", Email: "a@b.c", Role: "teacher"}},
		{"RoleTooLong", types.RegisterUserPayload{Name: "Ada", Email: "a@b.c", Role: "administrator"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry(t)
			err := r.RegisterUser(call(alice, 1), tc.payload)
			wantErr(t, err, ErrInvalidInput)

			if _, found, _ := r.GetUserInfo(alice); found {
				t.Error("rejected register left a user record behind")
			}
		})
	}

	// Limits are inclusive: values exactly at the bound pass.
	r := newTestRegistry(t)
	err := r.RegisterUser(call(alice, 1), types.RegisterUserPayload{
		Name:  strings.Repeat("n", MaxNameLen),
		Email: strings.Repeat("e", MaxEmailLen),
		Role:  "admin",
	})
	if err != nil {
		t.Fatalf("register at exact limits: %v", err)
	}
}

func TestRegisterUserDuplicateCheckPrecedesValidation(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleStudent)

	// Invalid payload from an already registered caller reports
	// already-exists, not invalid-input: the existence check runs first.
	err := r.RegisterUser(call(alice, 2), types.RegisterUserPayload{
		Name: "", Email: "", Role: "nonsense",
	})
	wantErr(t, err, ErrAlreadyExists)
}

func TestCreateCourseAuthorization(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, bob, types.RoleStudent)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, erin, types.RoleAdmin)

	payload := types.CreateCoursePayload{
		Title: "Intro", Description: "D", MaxCapacity: 2, StartDate: 10, EndDate: 20,
	}

	// Unregistered caller.
	_, err := r.CreateCourse(call(carol, 2), payload)
	wantErr(t, err, ErrUnauthorized)

	// Registered student.
	_, err = r.CreateCourse(call(bob, 2), payload)
	wantErr(t, err, ErrUnauthorized)

	// Instructor and admin both may create.
	if _, err := r.CreateCourse(call(alice, 2), payload); err != nil {
		t.Fatalf("instructor create: %v", err)
	}
	if _, err := r.CreateCourse(call(erin, 2), payload); err != nil {
		t.Fatalf("admin create: %v", err)
	}
}

func TestCreateCourseValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload types.CreateCoursePayload
	}{
		{"EmptyTitle", types.CreateCoursePayload{Title: "", Description: "D", MaxCapacity: 1, StartDate: 1, EndDate: 2}},
		{"TitleTooLong", types.CreateCoursePayload{Title: strings.Repeat("t", MaxTitleLen+1), Description: "D", MaxCapacity: 1, StartDate: 1, EndDate: 2}},
		{"EmptyDescription", types.CreateCoursePayload{Title: "T", Description: "", MaxCapacity: 1, StartDate: 1, EndDate: 2}},
		{"DescriptionTooLong", types.CreateCoursePayload{Title: "T", Description: strings.Repeat("d", MaxDescriptionLen+1), MaxCapacity: 1, StartDate: 1, EndDate: 2}},
		{"ZeroCapacity", types.CreateCoursePayload{Title: "T", Description: "D", MaxCapacity: 0, StartDate: 1, EndDate: 2}},
		{"StartEqualsEnd", types.CreateCoursePayload{Title: "T", Description: "D", MaxCapacity: 1, StartDate: 5, EndDate: 5}},
		{"StartAfterEnd", types.CreateCoursePayload{Title: "T", Description: "D", MaxCapacity: 1, StartDate: 9, EndDate: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry(t)
			register(t, r, alice, types.RoleInstructor)

			_, err := r.CreateCourse(call(alice, 2), tc.payload)
			wantErr(t, err, ErrInvalidInput)

			last, err := r.GetTotalCourses()
			if err != nil {
				t.Fatalf("GetTotalCourses: %v", err)
			}
			if last != 0 {
				t.Errorf("rejected create advanced the course counter to %d", last)
			}
		})
	}
}

func TestCreateCourseRoleCheckPrecedesValidation(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, bob, types.RoleStudent)

	// An invalid payload from a student reports unauthorized: role is
	// checked before input shape.
	_, err := r.CreateCourse(call(bob, 2), types.CreateCoursePayload{
		Title: "", Description: "", MaxCapacity: 0, StartDate: 9, EndDate: 2,
	})
	wantErr(t, err, ErrUnauthorized)
}

func TestCourseIDsDenseAndNeverReused(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)

	first := createCourse(t, r, alice, 5)
	second := createCourse(t, r, alice, 5)
	if first != 1 || second != 2 {
		t.Fatalf("Got course ids %d, %d, want 1, 2", first, second)
	}

	// A failed creation does not consume an id.
	_, err := r.CreateCourse(call(alice, 2), types.CreateCoursePayload{
		Title: "", Description: "D", MaxCapacity: 1, StartDate: 10, EndDate: 20,
	})
	wantErr(t, err, ErrInvalidInput)

	third := createCourse(t, r, alice, 5)
	if third != 3 {
		t.Fatalf("Got course id %d after failed create, want 3", third)
	}

	course, found, err := r.GetCourse(third)
	if err != nil || !found {
		t.Fatalf("GetCourse(%d): found=%v err=%v", third, found, err)
	}
	if !course.Active || course.CurrentEnrollments != 0 || course.Instructor != alice {
		t.Errorf("new course has wrong initial state: %+v", course)
	}
}

func TestEnrollInCourse(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleStudent)
	id := createCourse(t, r, alice, 2)

	if err := r.EnrollInCourse(call(bob, 15), types.EnrollPayload{CourseID: id}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	enr, found, err := r.GetEnrollment(id, bob)
	if err != nil || !found {
		t.Fatalf("GetEnrollment: found=%v err=%v", found, err)
	}
	if enr.Progress != 0 || enr.Completed {
		t.Errorf("Got enrollment progress=%d completed=%v, want 0 and false", enr.Progress, enr.Completed)
	}
	if enr.EnrolledAt != 15 {
		t.Errorf("Got enrolled_at %d, want 15", enr.EnrolledAt)
	}

	course, _, _ := r.GetCourse(id)
	if course.CurrentEnrollments != 1 {
		t.Errorf("Got current_enrollments %d, want 1", course.CurrentEnrollments)
	}
}

func TestEnrollChecks(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleStudent)
	id := createCourse(t, r, alice, 1)

	// Unknown course comes first, even for an unregistered caller.
	err := r.EnrollInCourse(call(carol, 15), types.EnrollPayload{CourseID: 99})
	wantErr(t, err, ErrNotFound)

	// Known course, unregistered caller.
	err = r.EnrollInCourse(call(carol, 15), types.EnrollPayload{CourseID: id})
	wantErr(t, err, ErrUnauthorized)

	// Full course: capacity 1, bob takes the seat.
	if err := r.EnrollInCourse(call(bob, 15), types.EnrollPayload{CourseID: id}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	register(t, r, carol, types.RoleStudent)
	err = r.EnrollInCourse(call(carol, 16), types.EnrollPayload{CourseID: id})
	wantErr(t, err, ErrCourseFull)

	// Capacity is checked before the duplicate check, so even the seat
	// holder re-enrolling in a full course sees course-full.
	err = r.EnrollInCourse(call(bob, 16), types.EnrollPayload{CourseID: id})
	wantErr(t, err, ErrCourseFull)

	// On a course with free seats the duplicate check fires.
	wide := createCourse(t, r, alice, 10)
	if err := r.EnrollInCourse(call(bob, 17), types.EnrollPayload{CourseID: wide}); err != nil {
		t.Fatalf("enroll wide: %v", err)
	}
	err = r.EnrollInCourse(call(bob, 18), types.EnrollPayload{CourseID: wide})
	wantErr(t, err, ErrAlreadyEnrolled)

	// Inactive course.
	if err := r.DeactivateCourse(call(alice, 19), types.DeactivateCoursePayload{CourseID: wide}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	err = r.EnrollInCourse(call(carol, 20), types.EnrollPayload{CourseID: wide})
	wantErr(t, err, ErrCourseNotStarted)
}

// TestEnrollmentScenario walks the documented four-party example end to end:
// a capacity-2 course fills up over three enrollment attempts and rejects a
// fourth party with course-full.
func TestEnrollmentScenario(t *testing.T) {
	r := newTestRegistry(t)

	register(t, r, alice, types.RoleInstructor)
	id, err := r.CreateCourse(call(alice, 5), types.CreateCoursePayload{
		Title:       "Intro",
		Description: "D",
		MaxCapacity: 2,
		StartDate:   10,
		EndDate:     20,
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if id != 1 {
		t.Fatalf("Got course id %d, want 1", id)
	}

	register(t, r, bob, types.RoleStudent)
	if err := r.EnrollInCourse(call(bob, 6), types.EnrollPayload{CourseID: 1}); err != nil {
		t.Fatalf("enroll B: %v", err)
	}
	course, _, _ := r.GetCourse(1)
	if course.CurrentEnrollments != 1 {
		t.Fatalf("Got current_enrollments %d after B, want 1", course.CurrentEnrollments)
	}

	err = r.EnrollInCourse(call(bob, 7), types.EnrollPayload{CourseID: 1})
	wantErr(t, err, ErrAlreadyEnrolled)

	register(t, r, carol, types.RoleStudent)
	if err := r.EnrollInCourse(call(carol, 8), types.EnrollPayload{CourseID: 1}); err != nil {
		t.Fatalf("enroll C: %v", err)
	}
	course, _, _ = r.GetCourse(1)
	if course.CurrentEnrollments != 2 {
		t.Fatalf("Got current_enrollments %d after C, want 2", course.CurrentEnrollments)
	}

	register(t, r, dave, types.RoleStudent)
	err = r.EnrollInCourse(call(dave, 9), types.EnrollPayload{CourseID: 1})
	wantErr(t, err, ErrCourseFull)

	// The rejected enrollment left the count alone.
	course, _, _ = r.GetCourse(1)
	if course.CurrentEnrollments != 2 {
		t.Errorf("Got current_enrollments %d after rejected enroll, want 2", course.CurrentEnrollments)
	}
}

func TestAddCourseMaterial(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	id := createCourse(t, r, alice, 2)

	matID, err := r.AddCourseMaterial(call(alice, 6), types.AddMaterialPayload{
		CourseID:     id,
		Title:        "Week 1 lecture",
		ContentURL:   "https://example.com/lectures/1",
		MaterialType: "video",
	})
	if err != nil {
		t.Fatalf("add material: %v", err)
	}
	if matID != 1 {
		t.Fatalf("Got material id %d, want 1", matID)
	}

	mat, found, err := r.GetCourseMaterial(id, matID)
	if err != nil || !found {
		t.Fatalf("GetCourseMaterial: found=%v err=%v", found, err)
	}
	if mat.Title != "Week 1 lecture" || mat.MaterialType != types.MaterialVideo {
		t.Errorf("stored material mismatch: %+v", mat)
	}

	count, err := r.GetCourseMaterialCount(id)
	if err != nil {
		t.Fatalf("GetCourseMaterialCount: %v", err)
	}
	if count != 1 {
		t.Errorf("Got material count %d, want 1", count)
	}
}

func TestMaterialIDsScopedPerCourse(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	first := createCourse(t, r, alice, 2)
	second := createCourse(t, r, alice, 2)

	add := func(courseID uint64) uint64 {
		t.Helper()
		id, err := r.AddCourseMaterial(call(alice, 6), types.AddMaterialPayload{
			CourseID:     courseID,
			Title:        "Reading",
			ContentURL:   "https://example.com/r",
			MaterialType: "pdf",
		})
		if err != nil {
			t.Fatalf("add material to course %d: %v", courseID, err)
		}
		return id
	}

	if got := add(first); got != 1 {
		t.Errorf("Got first material id %d in course %d, want 1", got, first)
	}
	if got := add(first); got != 2 {
		t.Errorf("Got second material id %d in course %d, want 2", got, first)
	}
	// A fresh course starts its own sequence at 1.
	if got := add(second); got != 1 {
		t.Errorf("Got first material id %d in course %d, want 1", got, second)
	}
}

func TestAddMaterialChecks(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleInstructor)
	id := createCourse(t, r, alice, 2)

	valid := types.AddMaterialPayload{
		CourseID:     id,
		Title:        "Notes",
		ContentURL:   "https://example.com/notes",
		MaterialType: "text",
	}

	// Unknown course.
	unknown := valid
	unknown.CourseID = 42
	_, err := r.AddCourseMaterial(call(alice, 6), unknown)
	wantErr(t, err, ErrNotFound)

	// Unregistered caller.
	_, err = r.AddCourseMaterial(call(carol, 6), valid)
	wantErr(t, err, ErrUnauthorized)

	// Input validation runs before the ownership check: a registered user
	// sending a malformed payload against someone else's course sees
	// invalid-input, not unauthorized.
	badType := valid
	badType.MaterialType = "audio"
	_, err = r.AddCourseMaterial(call(bob, 6), badType)
	wantErr(t, err, ErrInvalidInput)

	longURL := valid
	longURL.ContentURL = strings.Repeat("u", MaxContentURLLen+1)
	_, err = r.AddCourseMaterial(call(alice, 6), longURL)
	wantErr(t, err, ErrInvalidInput)

	emptyTitle := valid
	emptyTitle.Title = ""
	_, err = r.AddCourseMaterial(call(alice, 6), emptyTitle)
	wantErr(t, err, ErrInvalidInput)

	// A well-formed payload from an instructor who does not teach this
	// course is rejected: holding the instructor role elsewhere grants
	// nothing here.
	_, err = r.AddCourseMaterial(call(bob, 6), valid)
	wantErr(t, err, ErrUnauthorized)

	// None of the rejected calls consumed a material id.
	count, _ := r.GetCourseMaterialCount(id)
	if count != 0 {
		t.Errorf("Got material count %d after rejected adds, want 0", count)
	}
}

func TestUpdateCourseProgress(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleStudent)
	id := createCourse(t, r, alice, 2)
	if err := r.EnrollInCourse(call(bob, 15), types.EnrollPayload{CourseID: id}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	set := func(progress uint64) error {
		return r.UpdateCourseProgress(call(bob, 16), types.UpdateProgressPayload{
			CourseID: id, Progress: progress,
		})
	}
	get := func() types.Enrollment {
		t.Helper()
		enr, found, err := r.GetEnrollment(id, bob)
		if err != nil || !found {
			t.Fatalf("GetEnrollment: found=%v err=%v", found, err)
		}
		return enr
	}

	if err := set(40); err != nil {
		t.Fatalf("set 40: %v", err)
	}
	if enr := get(); enr.Progress != 40 || enr.Completed {
		t.Errorf("Got progress=%d completed=%v, want 40 and false", enr.Progress, enr.Completed)
	}

	if err := set(99); err != nil {
		t.Fatalf("set 99: %v", err)
	}
	if enr := get(); enr.Progress != 99 || enr.Completed {
		t.Errorf("Got progress=%d completed=%v, want 99 and false", enr.Progress, enr.Completed)
	}

	// Over 100 is rejected and leaves the record untouched.
	wantErr(t, set(101), ErrInvalidInput)
	if enr := get(); enr.Progress != 99 || enr.Completed {
		t.Errorf("rejected update mutated enrollment: %+v", enr)
	}

	if err := set(100); err != nil {
		t.Fatalf("set 100: %v", err)
	}
	if enr := get(); enr.Progress != 100 || !enr.Completed {
		t.Errorf("Got progress=%d completed=%v, want 100 and true", enr.Progress, enr.Completed)
	}

	// Once completed, further updates are rejected.
	wantErr(t, set(50), ErrCourseCompleted)
	if enr := get(); enr.Progress != 100 || !enr.Completed {
		t.Errorf("post-completion update mutated enrollment: %+v", enr)
	}
}

func TestUpdateProgressChecks(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleStudent)
	id := createCourse(t, r, alice, 2)

	// No enrollment.
	err := r.UpdateCourseProgress(call(bob, 16), types.UpdateProgressPayload{CourseID: id, Progress: 10})
	wantErr(t, err, ErrNotFound)

	// Unknown course.
	err = r.UpdateCourseProgress(call(bob, 16), types.UpdateProgressPayload{CourseID: 42, Progress: 10})
	wantErr(t, err, ErrNotFound)

	// Deactivated course blocks updates from enrolled students.
	if err := r.EnrollInCourse(call(bob, 16), types.EnrollPayload{CourseID: id}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := r.DeactivateCourse(call(alice, 17), types.DeactivateCoursePayload{CourseID: id}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	err = r.UpdateCourseProgress(call(bob, 18), types.UpdateProgressPayload{CourseID: id, Progress: 10})
	wantErr(t, err, ErrCourseNotStarted)
}

// Enrollments are never deleted, so the course lookup inside the progress
// update must still be checked on its own. Plant an orphaned enrollment
// directly in state to reach that branch.
func TestUpdateProgressOrphanedEnrollment(t *testing.T) {
	state := ledger.NewMem()
	r := NewRegistry(state)

	if err := state.PutEnrollment(types.Enrollment{CourseID: 7, Student: bob, EnrolledAt: 1}); err != nil {
		t.Fatalf("plant enrollment: %v", err)
	}

	err := r.UpdateCourseProgress(call(bob, 2), types.UpdateProgressPayload{CourseID: 7, Progress: 10})
	wantErr(t, err, ErrNotFound)
}

func TestDeactivateCourse(t *testing.T) {
	r := newTestRegistry(t)
	register(t, r, alice, types.RoleInstructor)
	register(t, r, bob, types.RoleInstructor)
	register(t, r, erin, types.RoleAdmin)
	id := createCourse(t, r, alice, 2)

	// Unknown course.
	err := r.DeactivateCourse(call(alice, 6), types.DeactivateCoursePayload{CourseID: 99})
	wantErr(t, err, ErrNotFound)

	// Unregistered caller.
	err = r.DeactivateCourse(call(carol, 6), types.DeactivateCoursePayload{CourseID: id})
	wantErr(t, err, ErrUnauthorized)

	// An instructor of a different course may not deactivate this one.
	err = r.DeactivateCourse(call(bob, 6), types.DeactivateCoursePayload{CourseID: id})
	wantErr(t, err, ErrUnauthorized)

	// The course's own instructor may.
	if err := r.DeactivateCourse(call(alice, 7), types.DeactivateCoursePayload{CourseID: id}); err != nil {
		t.Fatalf("instructor deactivate: %v", err)
	}
	course, _, _ := r.GetCourse(id)
	if course.Active {
		t.Error("course still active after deactivation")
	}

	// Deactivating again is a no-op, not an error.
	if err := r.DeactivateCourse(call(alice, 8), types.DeactivateCoursePayload{CourseID: id}); err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}

	// An admin may deactivate any course.
	second := createCourse(t, r, alice, 2)
	if err := r.DeactivateCourse(call(erin, 9), types.DeactivateCoursePayload{CourseID: second}); err != nil {
		t.Fatalf("admin deactivate: %v", err)
	}
	course, _, _ = r.GetCourse(second)
	if course.Active {
		t.Error("course still active after admin deactivation")
	}
}

func TestAccessorsOnEmptyState(t *testing.T) {
	r := newTestRegistry(t)

	if _, found, err := r.GetUserInfo(alice); err != nil || found {
		t.Errorf("GetUserInfo on empty state: found=%v err=%v", found, err)
	}
	if _, found, err := r.GetCourse(1); err != nil || found {
		t.Errorf("GetCourse on empty state: found=%v err=%v", found, err)
	}
	if _, found, err := r.GetEnrollment(1, alice); err != nil || found {
		t.Errorf("GetEnrollment on empty state: found=%v err=%v", found, err)
	}
	if _, found, err := r.GetCourseMaterial(1, 1); err != nil || found {
		t.Errorf("GetCourseMaterial on empty state: found=%v err=%v", found, err)
	}

	last, err := r.GetTotalCourses()
	if err != nil || last != 0 {
		t.Errorf("GetTotalCourses on empty state: got %d err=%v, want 0", last, err)
	}
	count, err := r.GetCourseMaterialCount(9)
	if err != nil || count != 0 {
		t.Errorf("GetCourseMaterialCount for unknown course: got %d err=%v, want 0", count, err)
	}

	registered, err := r.IsUserRegistered(alice)
	if err != nil || registered {
		t.Errorf("IsUserRegistered on empty state: got %v err=%v", registered, err)
	}
	enrolled, err := r.IsEnrolled(1, alice)
	if err != nil || enrolled {
		t.Errorf("IsEnrolled on empty state: got %v err=%v", enrolled, err)
	}
}

func TestErrorCodes(t *testing.T) {
	// Receipt codes are part of the persisted surface and must not drift.
	cases := []struct {
		err  *Error
		code uint32
	}{
		{ErrUnauthorized, 1},
		{ErrNotFound, 2},
		{ErrAlreadyExists, 3},
		{ErrInvalidInput, 4},
		{ErrCourseFull, 5},
		{ErrAlreadyEnrolled, 6},
		{ErrCourseNotStarted, 7},
		{ErrCourseCompleted, 8},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("Got code %d for %s, want %d", tc.err.Code, tc.err.Name, tc.code)
		}
		if CodeOf(tc.err) != tc.code {
			t.Errorf("CodeOf(%s) = %d, want %d", tc.err.Name, CodeOf(tc.err), tc.code)
		}
	}

	if CodeOf(errors.New("disk failure")) != 0 {
		t.Error("CodeOf classified a storage failure as a rejection")
	}
	if CodeOf(nil) != 0 {
		t.Error("CodeOf(nil) is not 0")
	}
}
