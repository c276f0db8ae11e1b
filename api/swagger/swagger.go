package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Roster API",
        "description": "Roster reconciliation and lesson-plan status service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Roster", "description": "Joined parent/child and teacher/course views"},
        {"name": "LessonPlans", "description": "Derived submission status and daily submissions"},
        {"name": "Notifications", "description": "Aggregated posts and chat unread feed"},
        {"name": "Reports", "description": "Asynchronous status exports"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "A backing store is unreachable"}
                }
            }
        },
        "/roster/parents/{parentId}/children": {
            "get": {
                "tags": ["Roster"],
                "summary": "Children of one parent",
                "parameters": [
                    {"name": "parentId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/children": {
            "get": {
                "tags": ["Roster"],
                "summary": "Full parent to children map",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster/teachers/me/courses": {
            "get": {
                "tags": ["Roster"],
                "summary": "Courses assigned to the authenticated teacher",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/status": {
            "get": {
                "tags": ["LessonPlans"],
                "summary": "Lesson plan submission status table",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lesson-plans/submit-daily": {
            "post": {
                "tags": ["LessonPlans"],
                "summary": "Submit one planned day",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitDailyRequest"}}
                ],
                "responses": {
                    "200": {"description": "Already submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Day already missed"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Aggregated notification feed",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/posts/{id}/seen": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one post as seen",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/chats/{chatId}/unread": {
            "delete": {
                "tags": ["Notifications"],
                "summary": "Clear a chat's unread counter",
                "parameters": [
                    {"name": "chatId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/reports/lesson-plans": {
            "post": {
                "tags": ["Reports"],
                "summary": "Enqueue a lesson plan status export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/lesson-plans/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job progress",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "SubmitDailyRequest": {
            "type": "object",
            "required": ["courseId", "academicYear", "week", "dayName"],
            "properties": {
                "courseId": {"type": "string"},
                "academicYear": {"type": "string"},
                "week": {"type": "integer"},
                "dayName": {"type": "string"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["courseId", "academicYear", "format"],
            "properties": {
                "courseId": {"type": "string"},
                "academicYear": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
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
