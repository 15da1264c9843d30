package cli

import (
	"fmt"

	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/types"
)

// resolvePrincipal turns a command-line subject into a principal: an explicit
// hex string wins, otherwise the keyring alias is looked up.
func (s *Service) resolvePrincipal(hex, alias string) (types.Principal, error) {
	if hex != "" {
		return types.ParsePrincipal(hex)
	}
	if alias == "" {
		return "", fmt.Errorf("no subject: pass --principal <hex> or --as <name>")
	}
	entry, ok := s.ring.Get(alias)
	if !ok {
		return "", fmt.Errorf("unknown key %q", alias)
	}
	return entry.Principal, nil
}

// @Title: Get User
// @Command: cld user --principal <hex> | cld user --as <key>
// @Description: Fetch a registered user record
// @Response: User object, or an error document when the principal is not registered
func (s *Service) HandleGetUser(hex, alias string) error {
	p, err := s.resolvePrincipal(hex, alias)
	if err != nil {
		return err
	}
	user, found, err := s.node.UserInfo(p)
	if err != nil {
		return err
	}
	if !found {
		return s.writeError(fmt.Sprintf("user %s is not registered", p.Short()))
	}
	return s.writeJSON(user)
}

// @Title: Get Course
// @Command: cld course --course <id>
// @Description: Fetch a course record by id
// @Response: Course object, or an error document when the id is unknown
func (s *Service) HandleGetCourse(courseID uint64) error {
	course, found, err := s.node.CourseDetails(courseID)
	if err != nil {
		return err
	}
	if !found {
		return s.writeError(fmt.Sprintf("course %d does not exist", courseID))
	}
	return s.writeJSON(course)
}

// @Title: Get Enrollment
// @Command: cld enrollment --course <id> --principal <hex> | --as <key>
// @Description: Fetch a student's enrollment in a course
// @Response: Enrollment object, or an error document when the student is not enrolled
func (s *Service) HandleGetEnrollment(courseID uint64, hex, alias string) error {
	p, err := s.resolvePrincipal(hex, alias)
	if err != nil {
		return err
	}
	enr, found, err := s.node.EnrollmentDetails(courseID, p)
	if err != nil {
		return err
	}
	if !found {
		return s.writeError(fmt.Sprintf("%s is not enrolled in course %d", p.Short(), courseID))
	}
	return s.writeJSON(enr)
}

// @Title: Get Course Material
// @Command: cld material --course <id> --material <id>
// @Description: Fetch one content item of a course
// @Response: CourseMaterial object, or an error document when the ids are unknown
func (s *Service) HandleGetMaterial(courseID, materialID uint64) error {
	mat, found, err := s.node.CourseMaterial(courseID, materialID)
	if err != nil {
		return err
	}
	if !found {
		return s.writeError(fmt.Sprintf("course %d has no material %d", courseID, materialID))
	}
	return s.writeJSON(mat)
}

// @Title: Count Course Materials
// @Command: cld materials-count --course <id>
// @Description: Report how many content items a course carries
// @Response: {"course_id": n, "materials": n}
func (s *Service) HandleMaterialsCount(courseID uint64) error {
	count, err := s.node.CourseMaterialsCount(courseID)
	if err != nil {
		return err
	}
	return s.writeJSON(map[string]uint64{
		"course_id": courseID,
		"materials": count,
	})
}

// @Title: Last Course ID
// @Command: cld last-course-id
// @Description: Report the highest course id issued so far, which doubles as the total course count
// @Response: {"last_course_id": n}
func (s *Service) HandleLastCourseID() error {
	last, err := s.node.LastCourseID()
	if err != nil {
		return err
	}
	return s.writeJSON(map[string]uint64{"last_course_id": last})
}

// @Title: Block Height
// @Command: cld height
// @Description: Report the last committed block height
// @Response: {"height": n}
func (s *Service) HandleHeight() error {
	return s.writeJSON(map[string]uint64{"height": s.node.Height()})
}

// @Title: Chain Status
// @Command: cld status
// @Description: Report the chain name, genesis time, and committed height
// @Response: ChainInfo object
func (s *Service) HandleStatus() error {
	info, err := s.store.ChainInfo()
	if err != nil {
		return err
	}
	return s.writeJSON(info)
}

// @Title: Transaction Log
// @Command: cld txlog [--limit <n>]
// @Description: List recently applied transactions, newest first
// @Response: Array of transaction log records
func (s *Service) HandleTxLog(limit int) error {
	records, err := s.node.TxLog(limit)
	if err != nil {
		return err
	}
	if records == nil {
		records = []ledger.TxRecord{}
	}
	return s.writeJSON(records)
}
