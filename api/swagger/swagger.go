package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "coursewatch API",
        "description": "Course enrollment monitoring and notification service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Courses", "description": "Ad-hoc course availability lookups"},
        {"name": "Monitors", "description": "Course monitor management"},
        {"name": "History", "description": "Snapshot time-series and audit trails"},
        {"name": "Notifications", "description": "Delivery channels and testing"},
        {"name": "Metrics", "description": "Engine observability"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/courses/search": {
            "get": {
                "tags": ["Courses"],
                "summary": "Look up a course by query parameters",
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "required": true},
                    {"name": "subject", "in": "query", "type": "string", "required": true},
                    {"name": "courseNumber", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/api/v1/terms/{term}/courses/{subject}/{courseNumber}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get live course availability",
                "parameters": [
                    {"name": "term", "in": "path", "type": "string", "required": true},
                    {"name": "subject", "in": "path", "type": "string", "required": true},
                    {"name": "courseNumber", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/api/v1/terms/{term}/courses/{subject}/{courseNumber}/history": {
            "get": {
                "tags": ["History"],
                "summary": "Snapshot history for a course across monitors",
                "parameters": [
                    {"name": "term", "in": "path", "type": "string", "required": true},
                    {"name": "subject", "in": "path", "type": "string", "required": true},
                    {"name": "courseNumber", "in": "path", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitors": {
            "get": {
                "tags": ["Monitors"],
                "summary": "List monitors",
                "parameters": [
                    {"name": "term", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "courseNumber", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Monitors"],
                "summary": "Register a course monitor",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMonitorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/v1/monitors/{id}": {
            "get": {
                "tags": ["Monitors"],
                "summary": "Get monitor detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Monitors"],
                "summary": "Update monitor preferences",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMonitorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Monitors"],
                "summary": "Stop and soft-delete a monitor",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/api/v1/monitors/{id}/purge": {
            "delete": {
                "tags": ["Monitors"],
                "summary": "Hard-delete a monitor and its history (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Purged"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/monitors/{id}/history": {
            "get": {
                "tags": ["History"],
                "summary": "Monitor snapshot history",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/monitors/{id}/history/export": {
            "get": {
                "tags": ["History"],
                "summary": "Export monitor history as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/api/v1/monitors/{id}/notifications": {
            "get": {
                "tags": ["History"],
                "summary": "Notification audit trail for a monitor",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/notifications/test": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Send a test notification through every enabled channel",
                "responses": {
                    "200": {"description": "Per-channel outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/preferences/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Effective channel configuration with secrets redacted",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/metrics": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated engine metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/prometheus": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Prometheus exposition endpoint",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "CreateMonitorRequest": {
            "type": "object",
            "required": ["term", "subject", "course_number"],
            "properties": {
                "term": {"type": "string"},
                "subject": {"type": "string"},
                "course_number": {"type": "string"},
                "section_id": {"type": "string"},
                "notify_on_open": {"type": "boolean"},
                "notify_on_waitlist": {"type": "boolean"},
                "check_interval": {"type": "integer"}
            }
        },
        "UpdateMonitorRequest": {
            "type": "object",
            "properties": {
                "notify_on_open": {"type": "boolean"},
                "notify_on_waitlist": {"type": "boolean"},
                "check_interval": {"type": "integer"},
                "active": {"type": "boolean"}
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
