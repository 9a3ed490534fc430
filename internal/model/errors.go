package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced teacher, student or lesson does
	// not exist (or is soft-deleted).
	ErrNotFound = errors.New("not found")
	// ErrValidation represents a business-rule rejection: bad time slot,
	// scheduling conflict, invalid transition, missing assignment.
	ErrValidation = errors.New("validation error")
)

// Scheduling rejections shared between the service's upfront checks and the
// store's transactional re-check.
var (
	ErrTeacherConflict = fmt.Errorf("%w: Teacher has a conflicting lesson at this time", ErrValidation)
	ErrStudentConflict = fmt.Errorf("%w: Student has a conflicting lesson at this time", ErrValidation)
	ErrNotAssigned     = fmt.Errorf("%w: Student must be assigned to teacher before creating a lesson", ErrValidation)
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a business-rule rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
