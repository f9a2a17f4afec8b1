// Package services defines the business logic for student records.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStudentNotFound indicates that no record exists for the control id.
	ErrStudentNotFound = errors.New("student not found")

	// ErrDuplicateControlID is returned when the control id is already taken.
	ErrDuplicateControlID = errors.New("a student with this control id already exists")

	// ErrDuplicateFullName is returned when another record carries the same
	// first name and both surnames.
	ErrDuplicateFullName = errors.New("a student with this full name already exists")

	// ErrIntegrityConflict covers any other constraint violation.
	ErrIntegrityConflict = errors.New("the record violates a data integrity rule")

	// ErrDatabase wraps non-constraint storage failures.
	ErrDatabase = errors.New("database error")

	// ErrUnexpected wraps panics and cancellations during a write.
	ErrUnexpected = errors.New("unexpected error")
)

// ValidationError lists the required fields that were absent or empty.
// Fields are sorted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// FieldError reports a present field whose value has the wrong shape.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// ConflictKind tags which uniqueness rule a write violated.
type ConflictKind int

const (
	ConflictIntegrity ConflictKind = iota
	ConflictControlID
	ConflictFullName
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictControlID:
		return "control_id"
	case ConflictFullName:
		return "full_name"
	default:
		return "integrity"
	}
}

// ConflictError is a classified constraint violation. Constraint holds the
// constraint name when the store reported one.
type ConflictError struct {
	Kind       ConflictKind
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string { return e.sentinel().Error() }

func (e *ConflictError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the conflict kind.
func (e *ConflictError) Is(target error) bool { return target == e.sentinel() }

func (e *ConflictError) sentinel() error {
	switch e.Kind {
	case ConflictControlID:
		return ErrDuplicateControlID
	case ConflictFullName:
		return ErrDuplicateFullName
	default:
		return ErrIntegrityConflict
	}
}
