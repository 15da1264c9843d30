// Package types defines the core domain models for CourseLedger (cld).
// It contains the user, course, enrollment, and material records stored in
// the ledger, plus the role and material-type vocabularies the contract
// validates against. Records are addressed by caller principal and by
// counter-assigned numeric identifiers.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Version is the current version of cld
const Version = "0.1.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// Principal is the canonical caller identifier: the lowercase hex encoding
// of an ed25519 public key. Every ledger record that references an actor
// stores a Principal.
type Principal string

// PrincipalHexLen is the exact length of a well-formed principal string
// (32 public key bytes, hex encoded).
const PrincipalHexLen = 64

// ParsePrincipal validates and normalizes a principal string. It accepts
// upper- or lowercase hex and returns the lowercase canonical form.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != PrincipalHexLen {
		return "", fmt.Errorf("principal must be %d hex characters, got %d", PrincipalHexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("principal is not valid hex: %w", err)
	}
	return Principal(s), nil
}

// Short returns a truncated form of the principal for log lines and
// human-facing listings.
func (p Principal) Short() string {
	if len(p) <= 8 {
		return string(p)
	}
	return string(p[:8])
}

// Role classifies a registered user. Only instructors and admins may
// create courses; only a course's instructor may attach materials.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// MaterialType classifies a course material entry.
type MaterialType string

const (
	MaterialVideo MaterialType = "video"
	MaterialPDF   MaterialType = "pdf"
	MaterialText  MaterialType = "text"
	MaterialQuiz  MaterialType = "quiz"
)

// Valid reports whether the material type is one of the recognized values.
func (m MaterialType) Valid() bool {
	switch m {
	case MaterialVideo, MaterialPDF, MaterialText, MaterialQuiz:
		return true
	}
	return false
}

// User is a registered participant. Users register themselves once; the
// record is keyed by the caller's principal and is immutable afterwards.
type User struct {
	Principal    Principal `json:"principal"`     // Caller identity that registered
	Name         string    `json:"name"`          // Display name, 1-50 bytes
	Email        string    `json:"email"`         // Contact address, 1-100 bytes
	Role         Role      `json:"role"`          // student, instructor, or admin
	RegisteredAt uint64    `json:"registered_at"` // Block height at registration
}

// Course is a single offering created by an instructor or admin. Course
// identifiers are dense and ascending starting at 1.
type Course struct {
	ID                 uint64    `json:"id"`                  // Counter-assigned course identifier
	Title              string    `json:"title"`               // 1-100 bytes
	Description        string    `json:"description"`         // 1-500 bytes
	Instructor         Principal `json:"instructor"`          // Creator; owns material management
	MaxCapacity        uint64    `json:"max_capacity"`        // Enrollment ceiling, > 0
	CurrentEnrollments uint64    `json:"current_enrollments"` // Live enrollment count
	StartDate          uint64    `json:"start_date"`          // Block height the course opens
	EndDate            uint64    `json:"end_date"`            // Block height the course closes, > start
	Active             bool      `json:"active"`              // False once deactivated
}

// Enrollment records one student's membership in one course, keyed by
// (course id, student principal).
type Enrollment struct {
	CourseID   uint64    `json:"course_id"`
	Student    Principal `json:"student"`
	EnrolledAt uint64    `json:"enrolled_at"` // Block height at enrollment
	Progress   uint64    `json:"progress"`    // 0-100
	Completed  bool      `json:"completed"`   // Set once progress reaches 100
}

// CourseMaterial is one content item attached to a course. Material
// identifiers are dense and ascending per course starting at 1.
type CourseMaterial struct {
	CourseID     uint64       `json:"course_id"`
	ID           uint64       `json:"id"` // Per-course material identifier
	Title        string       `json:"title"`
	ContentURL   string       `json:"content_url"`
	MaterialType MaterialType `json:"material_type"` // video, pdf, text, or quiz
}

// EnrollmentKey addresses one student's membership in one course.
type EnrollmentKey struct {
	CourseID uint64
	Student  Principal
}

// MaterialKey addresses one material within one course.
type MaterialKey struct {
	CourseID   uint64
	MaterialID uint64
}
