package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tbourn/student-records/internal/domain"
)

// SQLite result codes (https://www.sqlite.org/rescode.html).
const (
	sqliteConstraint           = 19
	sqliteConstraintPrimaryKey = 1555
)

// sqliteCoder matches the error type of the pure-Go SQLite driver, whose
// Code method returns the extended result code.
type sqliteCoder interface {
	Code() int
}

// classifyWriteError maps a failed write into the service error taxonomy:
//
//   - *ConflictError for constraint violations, tagged by kind
//   - ErrUnexpected for context cancellation or deadline
//   - ErrDatabase for everything else
//
// Structured identifiers win: a Postgres *pgconn.PgError with SQLSTATE class 23
// names the violated constraint, and SQLite reports PRIMARYKEY violations with
// a dedicated extended code. When neither identifies the constraint the error
// text is inspected, which depends on driver wording and schema names and may
// drift if either changes.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnexpected, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if !strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %w", ErrDatabase, err)
		}
		switch pgErr.ConstraintName {
		case domain.PrimaryKeyConstraint:
			return &ConflictError{Kind: ConflictControlID, Constraint: pgErr.ConstraintName, Err: err}
		case domain.FullNameConstraint:
			return &ConflictError{Kind: ConflictFullName, Constraint: pgErr.ConstraintName, Err: err}
		case "":
			return classifyByText(err, true)
		default:
			return &ConflictError{Kind: ConflictIntegrity, Constraint: pgErr.ConstraintName, Err: err}
		}
	}

	var coded sqliteCoder
	if errors.As(err, &coded) {
		code := coded.Code()
		if code == sqliteConstraintPrimaryKey {
			return &ConflictError{Kind: ConflictControlID, Constraint: domain.PrimaryKeyConstraint, Err: err}
		}
		if code&0xff == sqliteConstraint {
			return classifyByText(err, true)
		}
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	return classifyByText(err, false)
}

// classifyByText inspects the error message. known reports whether the
// caller already established that err is a constraint violation.
func classifyByText(err error, known bool) error {
	low := strings.ToLower(err.Error())
	constraint := known || looksLikeConstraint(low)

	switch {
	case strings.Contains(low, domain.FullNameConstraint):
		return &ConflictError{Kind: ConflictFullName, Constraint: domain.FullNameConstraint, Err: err}
	case strings.Contains(low, domain.PrimaryKeyConstraint):
		return &ConflictError{Kind: ConflictControlID, Constraint: domain.PrimaryKeyConstraint, Err: err}
	case !constraint:
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	case strings.Contains(low, "first_name") &&
		strings.Contains(low, "paternal_surname") &&
		strings.Contains(low, "maternal_surname"):
		return &ConflictError{Kind: ConflictFullName, Constraint: domain.FullNameConstraint, Err: err}
	case strings.Contains(low, "control_id"):
		return &ConflictError{Kind: ConflictControlID, Constraint: domain.PrimaryKeyConstraint, Err: err}
	default:
		return &ConflictError{Kind: ConflictIntegrity, Err: err}
	}
}

func looksLikeConstraint(low string) bool {
	return strings.Contains(low, "constraint") ||
		strings.Contains(low, "unique") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "duplicated key")
}
