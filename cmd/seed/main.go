// Command seed populates a fresh ledger with a demo cohort: an instructor,
// an admin, a handful of students, seeded courses with materials, and a
// spread of enrollments and progress values. Useful for trying the cld query
// commands against something non-empty.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"courseledger.dev/cld/internal/identity"
	"courseledger.dev/cld/internal/keyring"
	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/logging"
	"courseledger.dev/cld/internal/runtime"
	"courseledger.dev/cld/internal/types"
)

type step struct {
	name     string
	duration time.Duration
	err      error
}

type seeder struct {
	node  *runtime.Node
	ring  *keyring.Keyring
	steps []step
}

func main() {
	var (
		dataDir  string
		prefix   string
		students int
		courses  int
	)

	flag.StringVar(&dataDir, "data", "cld-data", "Ledger data directory")
	flag.StringVar(&prefix, "prefix", "demo", "Alias prefix for the seeded keyring identities")
	flag.IntVar(&students, "students", 4, "Number of student identities to seed")
	flag.IntVar(&courses, "courses", 2, "Number of courses to seed")
	flag.Parse()

	if students < 1 || courses < 1 {
		log.Fatal("need at least one student and one course")
	}

	store, err := ledger.NewStore(filepath.Join(dataDir, ledger.DefaultDBFile))
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	node, err := runtime.Open(store, logging.Nop().Sugar)
	if err != nil {
		log.Fatalf("open node: %v", err)
	}
	if node.Height() != 0 {
		log.Fatalf("ledger in %s already has %d blocks; seeding wants a fresh ledger", dataDir, node.Height())
	}

	ring, err := keyring.Open(dataDir)
	if err != nil {
		log.Fatalf("open keyring: %v", err)
	}

	s := &seeder{node: node, ring: ring}

	instructor := s.mustIdentity(prefix + "-instructor")
	admin := s.mustIdentity(prefix + "-admin")
	studentIDs := make([]*identity.Identity, students)
	for i := range studentIDs {
		studentIDs[i] = s.mustIdentity(fmt.Sprintf("%s-student-%d", prefix, i+1))
	}

	s.submit("register instructor", instructor, types.TxRegisterUser, types.RegisterUserPayload{
		Name: "Demo Instructor", Email: "instructor@example.com", Role: "instructor",
	})
	s.submit("register admin", admin, types.TxRegisterUser, types.RegisterUserPayload{
		Name: "Demo Admin", Email: "admin@example.com", Role: "admin",
	})
	for i, sid := range studentIDs {
		s.submit(fmt.Sprintf("register student %d", i+1), sid, types.TxRegisterUser, types.RegisterUserPayload{
			Name:  fmt.Sprintf("Demo Student %d", i+1),
			Email: fmt.Sprintf("student%d@example.com", i+1),
			Role:  "student",
		})
	}

	var courseIDs []uint64
	for c := 1; c <= courses; c++ {
		rcpt := s.submit(fmt.Sprintf("create course %d", c), instructor, types.TxCreateCourse, types.CreateCoursePayload{
			Title:       fmt.Sprintf("Demo Course %d", c),
			Description: "Seeded demo course.",
			MaxCapacity: uint64(students + 2),
			StartDate:   1,
			EndDate:     100000,
		})
		if rcpt.OK() {
			var result runtime.CourseResult
			if err := json.Unmarshal(rcpt.Result, &result); err != nil {
				log.Fatalf("decode create-course result: %v", err)
			}
			courseIDs = append(courseIDs, result.CourseID)
		}
	}

	for _, courseID := range courseIDs {
		s.submit(fmt.Sprintf("add syllabus to course %d", courseID), instructor, types.TxAddCourseMaterial, types.AddMaterialPayload{
			CourseID:     courseID,
			Title:        "Syllabus",
			ContentURL:   fmt.Sprintf("https://example.com/course-%d/syllabus.pdf", courseID),
			MaterialType: "pdf",
		})
		s.submit(fmt.Sprintf("add lecture to course %d", courseID), instructor, types.TxAddCourseMaterial, types.AddMaterialPayload{
			CourseID:     courseID,
			Title:        "Lecture 1",
			ContentURL:   fmt.Sprintf("https://example.com/course-%d/lecture-1", courseID),
			MaterialType: "video",
		})
	}

	for i, sid := range studentIDs {
		for _, courseID := range courseIDs {
			s.submit(fmt.Sprintf("enroll student %d in course %d", i+1, courseID), sid,
				types.TxEnrollInCourse, types.EnrollPayload{CourseID: courseID})
			// Spread progress values across the cohort, including a few
			// completed enrollments.
			progress := uint64((i*37 + int(courseID)*29) % 101)
			s.submit(fmt.Sprintf("progress of student %d in course %d", i+1, courseID), sid,
				types.TxUpdateCourseProgress, types.UpdateProgressPayload{CourseID: courseID, Progress: progress})
		}
	}

	if len(courseIDs) > 1 {
		last := courseIDs[len(courseIDs)-1]
		s.submit(fmt.Sprintf("deactivate course %d", last), admin,
			types.TxDeactivateCourse, types.DeactivateCoursePayload{CourseID: last})
	}

	var failed int
	for _, st := range s.steps {
		if st.err != nil {
			failed++
			log.Printf("[%s] ❌ failed after %s: %v", st.name, st.duration.Truncate(time.Millisecond), st.err)
		} else {
			log.Printf("[%s] ✅ applied in %s", st.name, st.duration.Truncate(time.Millisecond))
		}
	}
	if failed > 0 {
		log.Fatalf("seeding failed on %d step(s)", failed)
	}
	log.Printf("seeded %d transactions, ledger height is now %d", len(s.steps), node.Height())
}

// mustIdentity loads the alias from the keyring, creating it first when a
// previous run has not left one behind.
func (s *seeder) mustIdentity(alias string) *identity.Identity {
	if _, ok := s.ring.Get(alias); !ok {
		if _, err := s.ring.Create(alias); err != nil {
			log.Fatalf("create key %q: %v", alias, err)
		}
		log.Printf("created signing key %q", alias)
	}
	id, err := s.ring.Resolve(alias)
	if err != nil {
		log.Fatalf("load key %q: %v", alias, err)
	}
	return id
}

// submit signs and delivers one transaction, recording the outcome as a step.
// A rejected receipt counts as a failed step.
func (s *seeder) submit(name string, id *identity.Identity, entrypoint types.Entrypoint, params any) runtime.Receipt {
	start := time.Now()
	rcpt, err := s.deliver(id, entrypoint, params)
	if err == nil && !rcpt.OK() {
		err = fmt.Errorf("rejected with code %d: %s", rcpt.Code, rcpt.Log)
	}
	s.steps = append(s.steps, step{name: name, duration: time.Since(start), err: err})
	return rcpt
}

func (s *seeder) deliver(id *identity.Identity, entrypoint types.Entrypoint, params any) (runtime.Receipt, error) {
	tx, err := types.NewTransaction(entrypoint, params)
	if err != nil {
		return runtime.Receipt{}, err
	}
	signed, err := tx.Sign(id)
	if err != nil {
		return runtime.Receipt{}, err
	}
	raw, err := json.Marshal(signed)
	if err != nil {
		return runtime.Receipt{}, err
	}
	return s.node.DeliverTx(raw)
}
