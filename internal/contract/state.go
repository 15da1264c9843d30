package contract

import (
	"courseledger.dev/cld/internal/types"
)

// State is the keyed storage an entrypoint reads and writes: the four record
// collections plus the two identifier counters. Implementations must return
// (zero value, false, nil) for missing records and reserve the error for
// storage failures.
//
// Entrypoints validate before they write, but they are only atomic when the
// caller executes them against a transactional view; the runtime wraps every
// invocation in one store transaction so a rejected call leaves no partial
// writes behind.
type State interface {
	GetUser(p types.Principal) (types.User, bool, error)
	PutUser(u types.User) error

	GetCourse(id uint64) (types.Course, bool, error)
	PutCourse(c types.Course) error

	GetEnrollment(k types.EnrollmentKey) (types.Enrollment, bool, error)
	PutEnrollment(e types.Enrollment) error

	GetMaterial(k types.MaterialKey) (types.CourseMaterial, bool, error)
	PutMaterial(m types.CourseMaterial) error

	// LastCourseID is the highest course identifier assigned so far, 0 when
	// no course exists. Course identifiers are dense, so this doubles as the
	// total course count.
	LastCourseID() (uint64, error)
	SetLastCourseID(id uint64) error

	// MaterialCount is the highest material identifier assigned within a
	// course, 0 for a course without materials (or an unknown course).
	MaterialCount(courseID uint64) (uint64, error)
	SetMaterialCount(courseID, count uint64) error
}
