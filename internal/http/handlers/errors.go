// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes give
// clients a stable, machine-readable error taxonomy next to the
// human-readable message.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, not_found, conflict) mirror HTTP semantics.
//   - Student-specific codes name the rule that failed so clients can branch
//     without parsing messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "missing_fields",
//	  "message": "missing required fields: firstName, semester",
//	  "fields": ["firstName", "semester"]
//	}
package handlers

const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeNotFound             = "not_found"
	ErrCodeConflict             = "conflict"
	ErrCodeUnsupportedMediaType = "unsupported_media_type"
	ErrCodePayloadTooLarge      = "payload_too_large"
	ErrCodeMethodNotAllowed     = "method_not_allowed"
	ErrCodeInternal             = "internal_error"

	// Student-specific:
	ErrCodeMissingFields      = "missing_fields"
	ErrCodeInvalidField       = "invalid_field"
	ErrCodeDuplicateControlID = "duplicate_control_id"
	ErrCodeDuplicateFullName  = "duplicate_full_name"
	ErrCodeDatabase           = "database_error"
)
