// Package services – StudentService
//
// This file implements StudentService, which owns the student record
// lifecycle. Create runs the insert pipeline: normalization, duplicate
// pre-check by control id then full name, a single write, and classification
// of any write failure. All mutations run inside one GORM transaction so a
// failure leaves no partial state.
//
// Observability: public methods are OpenTelemetry-instrumented and create
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/student-records/internal/domain"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StudentRepo defines the repository contract required by StudentService.
// Every method receives the handle to run on, which is a transaction during
// mutations.
type StudentRepo interface {
	CreateStudent(ctx context.Context, db *gorm.DB, s *domain.Student) error
	GetStudent(ctx context.Context, db *gorm.DB, controlID string) (*domain.Student, error)
	ListStudents(ctx context.Context, db *gorm.DB) ([]domain.Student, error)
	ExistsByControlID(ctx context.Context, db *gorm.DB, controlID string) (bool, error)
	ExistsByFullName(ctx context.Context, db *gorm.DB, first, paternal, maternal string) (bool, error)
	UpdateStudentFields(ctx context.Context, db *gorm.DB, controlID string, fields map[string]any) error
	DeleteStudent(ctx context.Context, db *gorm.DB, controlID string) error
	StudentsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// StudentService provides create, read, update and delete for students.
type StudentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the student repository used by this service.
	Repo StudentRepo
}

// NewStudentService constructs a StudentService.
func NewStudentService(db *gorm.DB, r StudentRepo) *StudentService {
	return &StudentService{DB: db, Repo: r}
}

func tracer() trace.Tracer { return otel.Tracer("services/StudentService") }

// Create validates body and inserts a new student.
//
// Errors: *ValidationError, *FieldError, *ConflictError (matching
// ErrDuplicateControlID, ErrDuplicateFullName or ErrIntegrityConflict),
// ErrDatabase, ErrUnexpected. On any error nothing is written.
func (s *StudentService) Create(ctx context.Context, body map[string]any) (out *domain.Student, err error) {
	ctx, span := tracer().Start(ctx, "Create")
	defer span.End()
	defer func() {
		createOutcomes.WithLabelValues(outcomeOf(err)).Inc()
		endSpan(span, err)
	}()

	in, err := NormalizeCreate(body)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("student.control_id", in.ControlID))

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", ErrUnexpected, r)
		}
	}()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.precheck(ctx, tx, in); err != nil {
			return err
		}
		if err := s.Repo.CreateStudent(ctx, tx, in); err != nil {
			return classifyWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, classified(err)
	}
	return in, nil
}

// precheck looks for an existing control id, then an existing full name.
func (s *StudentService) precheck(ctx context.Context, tx *gorm.DB, in *domain.Student) error {
	_, span := tracer().Start(ctx, "precheck")
	defer span.End()

	taken, err := s.Repo.ExistsByControlID(ctx, tx, in.ControlID)
	if err != nil {
		return storeError(err)
	}
	if taken {
		return &ConflictError{Kind: ConflictControlID}
	}

	taken, err = s.Repo.ExistsByFullName(ctx, tx, in.FirstName, in.PaternalSurname, in.MaternalSurname)
	if err != nil {
		return storeError(err)
	}
	if taken {
		return &ConflictError{Kind: ConflictFullName}
	}
	return nil
}

// List returns every student ordered by control id.
func (s *StudentService) List(ctx context.Context) ([]domain.Student, error) {
	ctx, span := tracer().Start(ctx, "List")
	defer span.End()

	items, err := s.Repo.ListStudents(ctx, s.DB)
	if err != nil {
		endSpan(span, err)
		return nil, storeError(err)
	}
	return items, nil
}

// Stats returns the row count and latest update time, for list ETags.
func (s *StudentService) Stats(ctx context.Context) (int64, *time.Time, error) {
	count, maxAt, err := s.Repo.StudentsStats(ctx, s.DB)
	if err != nil {
		return 0, nil, storeError(err)
	}
	return count, maxAt, nil
}

// Get fetches one student by control id.
func (s *StudentService) Get(ctx context.Context, controlID string) (*domain.Student, error) {
	ctx, span := tracer().Start(ctx, "Get",
		trace.WithAttributes(attribute.String("student.control_id", controlID)),
	)
	defer span.End()

	st, err := s.Repo.GetStudent(ctx, s.DB, controlID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		endSpan(span, err)
		return nil, storeError(err)
	}
	return st, nil
}

// Update applies a partial update and returns the stored record.
//
// Present mutable fields overwrite stored values verbatim; an empty patch is
// a no-op that still reports ErrStudentNotFound for an unknown id. A rename
// onto another record's full name returns a *ConflictError.
func (s *StudentService) Update(ctx context.Context, controlID string, body map[string]any) (out *domain.Student, err error) {
	ctx, span := tracer().Start(ctx, "Update",
		trace.WithAttributes(attribute.String("student.control_id", controlID)),
	)
	defer span.End()
	defer func() { endSpan(span, err) }()

	patch, err := NormalizePatch(body)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", ErrUnexpected, r)
		}
	}()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(patch) > 0 {
			if err := s.Repo.UpdateStudentFields(ctx, tx, controlID, patch); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrStudentNotFound
				}
				return classifyWriteError(err)
			}
		}
		st, err := s.Repo.GetStudent(ctx, tx, controlID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		if err != nil {
			return storeError(err)
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, classified(err)
	}
	return out, nil
}

// Delete removes a student by control id.
func (s *StudentService) Delete(ctx context.Context, controlID string) (err error) {
	ctx, span := tracer().Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("student.control_id", controlID)),
	)
	defer span.End()
	defer func() { endSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.DeleteStudent(ctx, tx, controlID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return classified(err)
	}
	return nil
}

// storeError wraps a failed read or non-insert write.
func storeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}

// classified passes through errors already in the service taxonomy and
// classifies the rest (e.g. a failed COMMIT).
func classified(err error) error {
	var (
		cerr *ConflictError
		verr *ValidationError
		ferr *FieldError
	)
	switch {
	case errors.As(err, &cerr), errors.As(err, &verr), errors.As(err, &ferr),
		errors.Is(err, ErrStudentNotFound),
		errors.Is(err, ErrDatabase),
		errors.Is(err, ErrUnexpected):
		return err
	}
	return classifyWriteError(err)
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
