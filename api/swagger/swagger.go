package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AirConnect API",
        "description": "Campus platform API: announcements, job postings, student applications and live notifications.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and session introspection"},
        {"name": "Announcements", "description": "Campus announcements with audience targeting"},
        {"name": "Applications", "description": "Student applications and the advisor/coordinator workflow"},
        {"name": "Jobs", "description": "Job and internship postings"},
        {"name": "Notifications", "description": "Per-user notification feed"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current account details",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "List announcements visible to the caller",
                "parameters": [
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "Publish an announcement",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/announcements/{id}": {
            "get": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "Fetch a single announcement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "Edit an announcement (author only)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete an announcement (author only)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications": {
            "get": {
                "tags": ["Applications"],
                "security": [{"BearerAuth": []}],
                "summary": "List applications for the caller's role",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Applications"],
                "security": [{"BearerAuth": []}],
                "summary": "Submit an application (students)",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/advisor-action": {
            "post": {
                "tags": ["Applications"],
                "security": [{"BearerAuth": []}],
                "summary": "Record the advisor decision",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/coordinator-action": {
            "post": {
                "tags": ["Applications"],
                "security": [{"BearerAuth": []}],
                "summary": "Record the coordinator decision",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/export": {
            "post": {
                "tags": ["Applications"],
                "security": [{"BearerAuth": []}],
                "summary": "Generate the application register (CSV or PDF)",
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs": {
            "get": {
                "tags": ["Jobs"],
                "security": [{"BearerAuth": []}],
                "summary": "List job postings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Jobs"],
                "security": [{"BearerAuth": []}],
                "summary": "Publish a job posting",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "security": [{"BearerAuth": []}],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
