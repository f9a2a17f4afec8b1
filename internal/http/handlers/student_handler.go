// Student HTTP handlers.
//
// This file exposes REST endpoints for student records:
//   - GET    /students        (list, ETag support)
//   - POST   /students        (create, optional Idempotency-Key)
//   - GET    /students/{id}   (fetch)
//   - PATCH  /students/{id}   (partial update)
//   - DELETE /students/{id}   (remove)
//
// Handlers are transport-thin: they check the media type and JSON shape,
// delegate to StudentService, and translate the service error taxonomy into
// status codes and the ErrorResponse envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/student-records/internal/domain"
	"github.com/tbourn/student-records/internal/http/middleware"
	"github.com/tbourn/student-records/internal/services"
)

//
// Service contracts (context-aware)
//

// StudentService defines the student operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type StudentService interface {
	// Create validates a decoded JSON object and inserts a student.
	Create(ctx context.Context, body map[string]any) (*domain.Student, error)
	// List returns all students ordered by control id.
	List(ctx context.Context) ([]domain.Student, error)
	// Stats returns the row count and latest update time (for ETags).
	Stats(ctx context.Context) (int64, *time.Time, error)
	// Get fetches one student.
	Get(ctx context.Context, controlID string) (*domain.Student, error)
	// Update applies a partial update and returns the stored record.
	Update(ctx context.Context, controlID string, body map[string]any) (*domain.Student, error)
	// Delete removes one student.
	Delete(ctx context.Context, controlID string) error
}

// IdempotencyStore persists completed creates keyed by Idempotency-Key.
type IdempotencyStore interface {
	// Lookup returns the control id recorded for key, if still valid at now.
	Lookup(ctx context.Context, key string, now time.Time) (controlID string, found bool, err error)
	// Remember records a completed create for key.
	Remember(ctx context.Context, key, controlID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the student endpoints.
type Handlers struct {
	svc      StudentService
	idem     IdempotencyStore
	basePath string
}

// New constructs Handlers. idem may be nil, which disables replay.
// basePath prefixes Location headers ("/" when routes are mounted at root).
func New(svc StudentService, idem IdempotencyStore, basePath string) *Handlers {
	prefix := path.Clean("/" + strings.Trim(basePath, "/"))
	return &Handlers{svc: svc, idem: idem, basePath: strings.TrimSuffix(prefix, "/")}
}

//
// DTOs
//

// CreateStudentRequest documents the create payload. Handlers decode the body
// generically so numbers keep their literal text; this type exists for docs.
type CreateStudentRequest struct {
	ControlID       string `json:"controlId" example:"C100"`
	FirstName       string `json:"firstName" example:"Luis"`
	PaternalSurname string `json:"paternalSurname" example:"Gomez"`
	MaternalSurname string `json:"maternalSurname" example:"Ruiz"`
	Semester        int    `json:"semester" example:"2"`
}

// UpdateStudentRequest documents the partial update payload. Every field is
// optional; controlId is ignored.
type UpdateStudentRequest struct {
	FirstName       *string `json:"firstName,omitempty" example:"Luis"`
	PaternalSurname *string `json:"paternalSurname,omitempty" example:"Gomez"`
	MaternalSurname *string `json:"maternalSurname,omitempty" example:"Ruiz"`
	Semester        *int    `json:"semester,omitempty" example:"3"`
}

// CreateStudentResponse is returned with 201 Created.
type CreateStudentResponse struct {
	Message  string          `json:"message" example:"student created"`
	Student  *domain.Student `json:"student"`
	Location string          `json:"location" example:"/students/C100"`
}

// UpdateStudentResponse is returned by a successful PATCH.
type UpdateStudentResponse struct {
	Message string          `json:"message" example:"student updated"`
	Student *domain.Student `json:"student"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message" example:"student deleted"`
}

//
// Helpers
//

// decodeObject checks the media type, then decodes the body as one JSON
// object with numbers kept as json.Number. It writes the error response and
// returns false on failure.
func decodeObject(c *gin.Context) (map[string]any, bool) {
	mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mt != "application/json" {
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, "Content-Type must be application/json")
		return nil, false
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body must be valid JSON")
		return nil, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body must contain a single JSON object")
		return nil, false
	}
	obj, isObj := v.(map[string]any)
	if !isObj {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body must be a JSON object")
		return nil, false
	}
	return obj, true
}

// writeServiceError maps the service error taxonomy to HTTP.
func writeServiceError(c *gin.Context, err error) {
	var (
		verr *services.ValidationError
		ferr *services.FieldError
	)
	switch {
	case errors.As(err, &verr):
		failWith(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeMissingFields, Message: verr.Error(), Fields: verr.Fields}, nil)
	case errors.As(err, &ferr):
		fail(c, http.StatusBadRequest, ErrCodeInvalidField, ferr.Error())
	case errors.Is(err, services.ErrStudentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "student not found")
	case errors.Is(err, services.ErrDuplicateControlID):
		fail(c, http.StatusConflict, ErrCodeDuplicateControlID, services.ErrDuplicateControlID.Error())
	case errors.Is(err, services.ErrDuplicateFullName):
		fail(c, http.StatusConflict, ErrCodeDuplicateFullName, services.ErrDuplicateFullName.Error())
	case errors.Is(err, services.ErrIntegrityConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, services.ErrIntegrityConflict.Error())
	case errors.Is(err, services.ErrDatabase):
		failWith(c, http.StatusInternalServerError, ErrorResponse{Code: ErrCodeDatabase, Message: "database error"}, err)
	default:
		failWith(c, http.StatusInternalServerError, ErrorResponse{Code: ErrCodeInternal, Message: "unexpected error"}, err)
	}
}

// location returns the canonical URL path of a student. The id is escaped as
// a single segment and never cleaned, so it routes back to GET /students/:id.
func (h *Handlers) location(controlID string) string {
	return h.basePath + "/students/" + url.PathEscape(controlID)
}

func (h *Handlers) created(c *gin.Context, s *domain.Student) {
	loc := h.location(s.ControlID)
	c.Header("Location", loc)
	ok(c, http.StatusCreated, CreateStudentResponse{
		Message:  "student created",
		Student:  s,
		Location: loc,
	})
}

//
// Handlers
//

// ListStudents godoc
// @ID          listStudents
// @Summary     List students
// @Description Returns every student ordered by control id. Supports weak ETags via If-None-Match.
// @Tags        Students
// @Produce     json
// @Param       If-None-Match  header  string  false  "ETag from a previous list response"
// @Success     200  {array}   domain.Student
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /students [get]
func (h *Handlers) ListStudents(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var etag string
	if count, maxTS, err := h.svc.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag = fmt.Sprintf(`W/"students:%d:%d"`, count, ts)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Header("ETag", etag)
			notModified(c)
			return
		}
	}

	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if etag != "" {
		c.Header("ETag", etag)
	}
	ok(c, http.StatusOK, items)
}

// CreateStudent godoc
// @ID          createStudent
// @Summary     Create a student
// @Description Validates and inserts a student. All five fields are required; values are trimmed.
// @Description A retry carrying the same Idempotency-Key replays the original 201 response.
// @Tags        Students
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body  body  handlers.CreateStudentRequest  true  "Student"
// @Success     201  {object}  handlers.CreateStudentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed body, missing fields or invalid semester"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate control id or full name"
// @Failure     415  {object}  handlers.ErrorResponse  "Content-Type is not application/json"
// @Failure     500  {object}  handlers.ErrorResponse  "Database or unexpected error"
// @Router      /students [post]
func (h *Handlers) CreateStudent(c *gin.Context) {
	ctx := c.Request.Context()

	body, valid := decodeObject(c)
	if !valid {
		return
	}

	// Idempotency (replay path). The validator already found the key, so
	// only replays read the stored control id.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil && middleware.IsReplay(c) {
		if id, found, err := h.idem.Lookup(ctx, idemKey, time.Now().UTC()); err == nil && found {
			if prev, err := h.svc.Get(ctx, id); err == nil {
				c.Header("Idempotency-Replayed", "true")
				h.created(c, prev)
				return
			}
		}
	}

	s, err := h.svc.Create(ctx, body)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, idemKey, s.ControlID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("control_id", s.ControlID).Msg("idempotency record not stored")
		}
	}

	h.created(c, s)
}

// GetStudent godoc
// @ID          getStudent
// @Summary     Get a student
// @Tags        Students
// @Produce     json
// @Param       id   path      string  true  "Control id"
// @Success     200  {object}  domain.Student
// @Failure     404  {object}  handlers.ErrorResponse  "Student not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /students/{id} [get]
func (h *Handlers) GetStudent(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// UpdateStudent godoc
// @ID          updateStudent
// @Summary     Partially update a student
// @Description Overwrites each present field verbatim. controlId cannot be changed.
// @Tags        Students
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Control id"
// @Param       body  body  handlers.UpdateStudentRequest  true  "Fields to change"
// @Success     200  {object}  handlers.UpdateStudentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed body or wrong field type"
// @Failure     404  {object}  handlers.ErrorResponse  "Student not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Full name already used"
// @Failure     415  {object}  handlers.ErrorResponse  "Content-Type is not application/json"
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /students/{id} [patch]
func (h *Handlers) UpdateStudent(c *gin.Context) {
	body, valid := decodeObject(c)
	if !valid {
		return
	}
	s, err := h.svc.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, UpdateStudentResponse{Message: "student updated", Student: s})
}

// DeleteStudent godoc
// @ID          deleteStudent
// @Summary     Delete a student
// @Tags        Students
// @Produce     json
// @Param       id   path      string  true  "Control id"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Student not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /students/{id} [delete]
func (h *Handlers) DeleteStudent(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "student deleted"})
}
