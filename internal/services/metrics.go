package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// createOutcomes counts create attempts by result. Outcome values are a fixed
// set (see outcomeOf) so cardinality stays bounded.
var createOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "student_create_total",
		Help: "Student create attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(createOutcomes)
}

// outcomeOf names the result of a create call for the outcome label.
func outcomeOf(err error) string {
	var (
		verr *ValidationError
		ferr *FieldError
	)
	switch {
	case err == nil:
		return "created"
	case errors.As(err, &verr), errors.As(err, &ferr):
		return "invalid"
	case errors.Is(err, ErrDuplicateControlID):
		return "duplicate_control_id"
	case errors.Is(err, ErrDuplicateFullName):
		return "duplicate_full_name"
	case errors.Is(err, ErrIntegrityConflict):
		return "conflict"
	case errors.Is(err, ErrDatabase):
		return "database_error"
	default:
		return "internal_error"
	}
}
