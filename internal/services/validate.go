package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/student-records/internal/domain"
)

// JSON field names accepted by create and update.
const (
	FieldControlID       = "controlId"
	FieldFirstName       = "firstName"
	FieldPaternalSurname = "paternalSurname"
	FieldMaternalSurname = "maternalSurname"
	FieldSemester        = "semester"
)

// RequiredFields is the set every create request must carry.
var RequiredFields = []string{
	FieldControlID,
	FieldFirstName,
	FieldPaternalSurname,
	FieldMaternalSurname,
	FieldSemester,
}

// patchColumns maps mutable JSON fields to their columns. controlId is absent
// on purpose: it is immutable and ignored when sent.
var patchColumns = map[string]string{
	FieldFirstName:       "first_name",
	FieldPaternalSurname: "paternal_surname",
	FieldMaternalSurname: "maternal_surname",
	FieldSemester:        "semester",
}

// NormalizeCreate validates a decoded create body and returns the record to
// insert. Numbers should be decoded with json.Decoder.UseNumber so their
// literal text survives.
//
// Every value is stringified, trimmed and NFC-normalized. Absent, null,
// composite or blank values are reported together in a *ValidationError.
// A control id that cannot round-trip through /students/{id}, or a semester
// that is not a base-10 integer, yields a *FieldError.
func NormalizeCreate(body map[string]any) (*domain.Student, error) {
	vals := make(map[string]string, len(RequiredFields))
	var missing []string
	for _, f := range RequiredFields {
		s, ok := stringify(body[f])
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			missing = append(missing, f)
			continue
		}
		vals[f] = norm.NFC.String(s)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ValidationError{Fields: missing}
	}

	if !addressableID(vals[FieldControlID]) {
		return nil, &FieldError{Field: FieldControlID, Reason: "must be a single path segment (no '/', not '.' or '..')"}
	}

	sem, err := strconv.Atoi(vals[FieldSemester])
	if err != nil {
		return nil, &FieldError{Field: FieldSemester, Reason: "must be an integer"}
	}

	return &domain.Student{
		ControlID:       vals[FieldControlID],
		FirstName:       vals[FieldFirstName],
		PaternalSurname: vals[FieldPaternalSurname],
		MaternalSurname: vals[FieldMaternalSurname],
		Semester:        sem,
	}, nil
}

// NormalizePatch turns a decoded update body into a column->value patch.
// String fields are kept verbatim. semester accepts an integral number or a
// numeric string. Unknown keys and controlId are ignored.
func NormalizePatch(body map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(patchColumns))
	for field, col := range patchColumns {
		v, present := body[field]
		if !present {
			continue
		}
		if field == FieldSemester {
			n, err := toInt(v)
			if err != nil {
				return nil, &FieldError{Field: field, Reason: err.Error()}
			}
			out[col] = n
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, &FieldError{Field: field, Reason: "must be a string"}
		}
		out[col] = s
	}
	return out, nil
}

// addressableID reports whether id can be used as one URL path segment.
func addressableID(id string) bool {
	return id != "." && id != ".." && !strings.Contains(id, "/")
}

// stringify renders scalar JSON values as text. ok is false for null,
// objects and arrays.
func stringify(v any) (s string, ok bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(t.String())
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		return n, nil
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("must be an integer")
		}
		return int(t), nil
	case int:
		return t, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be an integer")
	}
}
