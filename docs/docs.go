// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/students": {
            "get": {
                "description": "Returns every student ordered by control id. Supports weak ETags via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["Students"],
                "summary": "List students",
                "operationId": "listStudents",
                "parameters": [
                    {"type": "string", "description": "ETag from a previous list response", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Student"}}},
                    "304": {"description": "Not modified"},
                    "500": {"description": "Database error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates and inserts a student. All five fields are required; values are trimmed.\nA retry carrying the same Idempotency-Key replays the original 201 response.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Students"],
                "summary": "Create a student",
                "operationId": "createStudent",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Student", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.CreateStudentResponse"}},
                    "400": {"description": "Malformed body, missing fields or invalid semester", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Duplicate control id or full name", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "415": {"description": "Content-Type is not application/json", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Database or unexpected error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Students"],
                "summary": "Get a student",
                "operationId": "getStudent",
                "parameters": [
                    {"type": "string", "description": "Control id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Student"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Database error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Students"],
                "summary": "Delete a student",
                "operationId": "deleteStudent",
                "parameters": [
                    {"type": "string", "description": "Control id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Database error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "patch": {
                "description": "Overwrites the fields present in the body. controlId cannot be changed.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Students"],
                "summary": "Update a student",
                "operationId": "updateStudent",
                "parameters": [
                    {"type": "string", "description": "Control id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.UpdateStudentResponse"}},
                    "400": {"description": "Malformed body or wrong field type", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Full name already taken", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "415": {"description": "Content-Type is not application/json", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Database or unexpected error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Student": {
            "type": "object",
            "properties": {
                "controlId": {"type": "string", "example": "C100"},
                "firstName": {"type": "string", "example": "Luis"},
                "paternalSurname": {"type": "string", "example": "Gomez"},
                "maternalSurname": {"type": "string", "example": "Ruiz"},
                "semester": {"type": "integer", "example": 2}
            }
        },
        "handlers.CreateStudentRequest": {
            "type": "object",
            "properties": {
                "controlId": {"type": "string", "example": "C100"},
                "firstName": {"type": "string", "example": "Luis"},
                "paternalSurname": {"type": "string", "example": "Gomez"},
                "maternalSurname": {"type": "string", "example": "Ruiz"},
                "semester": {"type": "integer", "example": 2}
            }
        },
        "handlers.UpdateStudentRequest": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string", "example": "Luis"},
                "paternalSurname": {"type": "string", "example": "Gomez"},
                "maternalSurname": {"type": "string", "example": "Ruiz"},
                "semester": {"type": "integer", "example": 3}
            }
        },
        "handlers.CreateStudentResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "student created"},
                "student": {"$ref": "#/definitions/domain.Student"},
                "location": {"type": "string", "example": "/students/C100"}
            }
        },
        "handlers.UpdateStudentResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "student updated"},
                "student": {"$ref": "#/definitions/domain.Student"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "student deleted"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "missing_fields"},
                "message": {"type": "string", "example": "missing required fields: firstName"},
                "fields": {"type": "array", "items": {"type": "string"}, "example": ["firstName"]}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Student Records API",
	Description:      "Create, list, update and delete student records.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
