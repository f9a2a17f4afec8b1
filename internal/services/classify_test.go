package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tbourn/student-records/internal/domain"
)

// codedErr mimics the SQLite driver error.
type codedErr struct {
	code int
	msg  string
}

func (e *codedErr) Error() string { return e.msg }
func (e *codedErr) Code() int     { return e.code }

func TestClassifyWriteError(t *testing.T) {
	type want struct {
		kind     ConflictKind
		conflict bool
		sentinel error
	}
	cases := []struct {
		name string
		err  error
		want want
	}{
		{"pg primary key", &pgconn.PgError{Code: "23505", ConstraintName: "students_pkey"}, want{kind: ConflictControlID, conflict: true}},
		{"pg full name", &pgconn.PgError{Code: "23505", ConstraintName: "ux_students_full_name"}, want{kind: ConflictFullName, conflict: true}},
		{"pg other constraint", &pgconn.PgError{Code: "23514", ConstraintName: "ck_semester"}, want{kind: ConflictIntegrity, conflict: true}},
		{"pg unnamed falls back to text", &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "ux_students_full_name"`}, want{kind: ConflictFullName, conflict: true}},
		{"pg wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "students_pkey"}), want{kind: ConflictControlID, conflict: true}},
		{"pg non-constraint", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, want{sentinel: ErrDatabase}},
		{"sqlite primary key code", &codedErr{1555, "UNIQUE constraint failed: students.control_id (1555)"}, want{kind: ConflictControlID, conflict: true}},
		{"sqlite unique on names", &codedErr{2067, "UNIQUE constraint failed: students.first_name, students.paternal_surname, students.maternal_surname (2067)"}, want{kind: ConflictFullName, conflict: true}},
		{"sqlite not null", &codedErr{1299, "NOT NULL constraint failed: students.semester (1299)"}, want{kind: ConflictIntegrity, conflict: true}},
		{"sqlite busy", &codedErr{5, "database is locked (5)"}, want{sentinel: ErrDatabase}},
		{"text control id", errors.New("UNIQUE constraint failed: students.control_id"), want{kind: ConflictControlID, conflict: true}},
		{"text constraint name", errors.New(`ERROR: duplicate key value violates unique constraint "students_pkey"`), want{kind: ConflictControlID, conflict: true}},
		{"text generic", gorm.ErrDuplicatedKey, want{kind: ConflictIntegrity, conflict: true}},
		{"text control id without constraint wording", errors.New("no such column: control_id"), want{sentinel: ErrDatabase}},
		{"connection failure", errors.New("dial tcp: connection refused"), want{sentinel: ErrDatabase}},
		{"canceled", context.Canceled, want{sentinel: ErrUnexpected}},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), want{sentinel: ErrUnexpected}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyWriteError(tc.err)
			var cerr *ConflictError
			isConflict := errors.As(got, &cerr)
			if isConflict != tc.want.conflict {
				t.Fatalf("conflict=%v want %v (err=%v)", isConflict, tc.want.conflict, got)
			}
			if isConflict {
				if cerr.Kind != tc.want.kind {
					t.Fatalf("kind=%v want %v", cerr.Kind, tc.want.kind)
				}
				if !errors.Is(got, tc.err) {
					t.Fatalf("classified error must wrap the original")
				}
				return
			}
			if !errors.Is(got, tc.want.sentinel) {
				t.Fatalf("expected %v, got %v", tc.want.sentinel, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("classified error must wrap the original")
			}
		})
	}
}

func TestClassifyWriteError_Nil(t *testing.T) {
	if classifyWriteError(nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}

// Real driver errors from the pure-Go SQLite store land on the right kind.
func TestClassifyWriteError_SQLiteDriver(t *testing.T) {
	db := newSvcDB(t)
	base := &domain.Student{ControlID: "A1", FirstName: "Ana", PaternalSurname: "Lopez", MaternalSurname: "Diaz", Semester: 3}
	if err := db.Create(base).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	dupID := *base
	dupID.FirstName = "Eva"
	err := classifyWriteError(db.Create(&dupID).Error)
	if !errors.Is(err, ErrDuplicateControlID) {
		t.Fatalf("expected duplicate control id, got %v", err)
	}

	dupName := *base
	dupName.ControlID = "A2"
	err = classifyWriteError(db.Create(&dupName).Error)
	if !errors.Is(err, ErrDuplicateFullName) {
		t.Fatalf("expected duplicate full name, got %v", err)
	}
}

func TestConflictError_IsAndMessage(t *testing.T) {
	cases := []struct {
		kind ConflictKind
		want error
		str  string
	}{
		{ConflictControlID, ErrDuplicateControlID, "control_id"},
		{ConflictFullName, ErrDuplicateFullName, "full_name"},
		{ConflictIntegrity, ErrIntegrityConflict, "integrity"},
	}
	for _, tc := range cases {
		e := &ConflictError{Kind: tc.kind}
		if !errors.Is(e, tc.want) {
			t.Fatalf("%v: errors.Is failed", tc.kind)
		}
		if e.Error() != tc.want.Error() {
			t.Fatalf("%v: message %q", tc.kind, e.Error())
		}
		if tc.kind.String() != tc.str {
			t.Fatalf("String() = %q", tc.kind.String())
		}
	}
	if errors.Is(&ConflictError{Kind: ConflictControlID}, ErrDuplicateFullName) {
		t.Fatalf("kinds must not cross-match")
	}
}
