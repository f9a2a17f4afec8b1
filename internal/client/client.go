// Package client is a small HTTP client for the student records API, used by
// the terminal client. Every call returns an Exchange describing what went
// over the wire so callers can show it to the user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/student-records/internal/domain"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrUnexpectedStatus is returned by typed helpers when the server answered
// with a non-2xx status. The Exchange is still returned alongside it.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Exchange records one request and its response.
type Exchange struct {
	Method  string
	URL     string
	Payload any // nil when no body was sent

	Status     int
	StatusText string
	Body       []byte
}

// OK reports a 2xx status.
func (e *Exchange) OK() bool { return e.Status >= 200 && e.Status < 300 }

// ErrorBody is the server's error envelope.
type ErrorBody struct {
	RequestID string   `json:"request_id"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields"`
}

// APIError decodes the error envelope, or returns nil if the body is not one.
func (e *Exchange) APIError() *ErrorBody {
	var eb ErrorBody
	if err := json.Unmarshal(e.Body, &eb); err != nil || eb.Code == "" {
		return nil
	}
	return &eb
}

// Client talks to one API base URL.
type Client struct {
	base string
	hc   *http.Client
}

// New returns a client for baseURL (e.g. http://127.0.0.1:8080).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

// URL returns the absolute URL for an API path.
func (c *Client) URL(path string) string { return c.base + path }

func studentPath(controlID string) string {
	return "/students/" + url.PathEscape(controlID)
}

// Do sends one request. payload, when non-nil, is sent as JSON. The error is
// non-nil only for transport failures; HTTP error statuses are reported in
// the Exchange.
func (c *Client) Do(ctx context.Context, method, path string, payload any, hdr http.Header) (*Exchange, error) {
	ex := &Exchange{Method: method, URL: c.URL(path), Payload: payload}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return ex, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, ex.URL, body)
	if err != nil {
		return ex, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range hdr {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return ex, err
	}
	defer resp.Body.Close()

	ex.Status = resp.StatusCode
	ex.StatusText = http.StatusText(resp.StatusCode)
	ex.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ex, fmt.Errorf("read response: %w", err)
	}
	return ex, nil
}

// List fetches every student.
func (c *Client) List(ctx context.Context) ([]domain.Student, *Exchange, error) {
	ex, err := c.Do(ctx, http.MethodGet, "/students", nil, nil)
	if err != nil {
		return nil, ex, err
	}
	if !ex.OK() {
		return nil, ex, ErrUnexpectedStatus
	}
	var out []domain.Student
	if err := json.Unmarshal(ex.Body, &out); err != nil {
		return nil, ex, fmt.Errorf("decode students: %w", err)
	}
	return out, ex, nil
}

// Get fetches one student.
func (c *Client) Get(ctx context.Context, controlID string) (*domain.Student, *Exchange, error) {
	ex, err := c.Do(ctx, http.MethodGet, studentPath(controlID), nil, nil)
	if err != nil {
		return nil, ex, err
	}
	if !ex.OK() {
		return nil, ex, ErrUnexpectedStatus
	}
	var s domain.Student
	if err := json.Unmarshal(ex.Body, &s); err != nil {
		return nil, ex, fmt.Errorf("decode student: %w", err)
	}
	return &s, ex, nil
}

// CreateInput is the body of a create request.
type CreateInput struct {
	ControlID       string `json:"controlId"`
	FirstName       string `json:"firstName"`
	PaternalSurname string `json:"paternalSurname"`
	MaternalSurname string `json:"maternalSurname"`
	Semester        int    `json:"semester"`
}

// Create posts a new student under a fresh Idempotency-Key, so a retried
// request cannot insert twice.
func (c *Client) Create(ctx context.Context, in CreateInput) (*Exchange, error) {
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", uuid.NewString())
	return c.Do(ctx, http.MethodPost, "/students", in, hdr)
}

// Update sends a partial update with only the given fields.
func (c *Client) Update(ctx context.Context, controlID string, fields map[string]any) (*Exchange, error) {
	return c.Do(ctx, http.MethodPatch, studentPath(controlID), fields, nil)
}

// Delete removes a student.
func (c *Client) Delete(ctx context.Context, controlID string) (*Exchange, error) {
	return c.Do(ctx, http.MethodDelete, studentPath(controlID), nil, nil)
}
