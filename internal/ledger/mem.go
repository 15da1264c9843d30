package ledger

import (
	"sync"

	"courseledger.dev/cld/internal/types"
)

// Mem is an in-memory ledger state: the four record collections and the two
// identifier counters held in maps. It backs contract unit tests and
// dry-run execution; durable state lives in Store.
type Mem struct {
	mu             sync.RWMutex
	users          map[types.Principal]types.User
	courses        map[uint64]types.Course
	enrollments    map[types.EnrollmentKey]types.Enrollment
	materials      map[types.MaterialKey]types.CourseMaterial
	lastCourseID   uint64
	materialCounts map[uint64]uint64
}

// NewMem creates an empty in-memory state.
func NewMem() *Mem {
	return &Mem{
		users:          make(map[types.Principal]types.User),
		courses:        make(map[uint64]types.Course),
		enrollments:    make(map[types.EnrollmentKey]types.Enrollment),
		materials:      make(map[types.MaterialKey]types.CourseMaterial),
		materialCounts: make(map[uint64]uint64),
	}
}

// Clone returns a deep copy, so callers can stage writes and throw them away.
func (m *Mem) Clone() *Mem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := NewMem()
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.courses {
		c.courses[k] = v
	}
	for k, v := range m.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range m.materials {
		c.materials[k] = v
	}
	for k, v := range m.materialCounts {
		c.materialCounts[k] = v
	}
	c.lastCourseID = m.lastCourseID
	return c
}

func (m *Mem) GetUser(p types.Principal) (types.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[p]
	return u, ok, nil
}

func (m *Mem) PutUser(u types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Principal] = u
	return nil
}

func (m *Mem) GetCourse(id uint64) (types.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	return c, ok, nil
}

func (m *Mem) PutCourse(c types.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *Mem) GetEnrollment(k types.EnrollmentKey) (types.Enrollment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[k]
	return e, ok, nil
}

func (m *Mem) PutEnrollment(e types.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[types.EnrollmentKey{CourseID: e.CourseID, Student: e.Student}] = e
	return nil
}

func (m *Mem) GetMaterial(k types.MaterialKey) (types.CourseMaterial, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mat, ok := m.materials[k]
	return mat, ok, nil
}

func (m *Mem) PutMaterial(mat types.CourseMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[types.MaterialKey{CourseID: mat.CourseID, MaterialID: mat.ID}] = mat
	return nil
}

func (m *Mem) LastCourseID() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCourseID, nil
}

func (m *Mem) SetLastCourseID(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCourseID = id
	return nil
}

func (m *Mem) MaterialCount(courseID uint64) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.materialCounts[courseID], nil
}

func (m *Mem) SetMaterialCount(courseID, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materialCounts[courseID] = count
	return nil
}
