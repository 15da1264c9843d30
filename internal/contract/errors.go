package contract

import (
	"errors"
	"fmt"
)

// Error is a contract rejection. The numeric code is the stable wire value
// recorded in receipts; the name is for humans. Entrypoints return these
// sentinels directly so callers can match with errors.Is.
type Error struct {
	Code uint32
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Name, e.Code)
}

// Rejection codes. These values are fixed: they are persisted in receipts
// and must never be renumbered.
var (
	ErrUnauthorized     = &Error{Code: 1, Name: "unauthorized"}
	ErrNotFound         = &Error{Code: 2, Name: "not-found"}
	ErrAlreadyExists    = &Error{Code: 3, Name: "already-exists"}
	ErrInvalidInput     = &Error{Code: 4, Name: "invalid-input"}
	ErrCourseFull       = &Error{Code: 5, Name: "course-full"}
	ErrAlreadyEnrolled  = &Error{Code: 6, Name: "already-enrolled"}
	ErrCourseNotStarted = &Error{Code: 7, Name: "course-not-started"}
	ErrCourseCompleted  = &Error{Code: 8, Name: "course-completed"}
)

// CodeOf returns the rejection code carried by err, or 0 when err is not a
// contract rejection (storage failures, encoding errors).
func CodeOf(err error) uint32 {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return 0
}
