package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Exam API",
        "description": "Exam scheduling and room/seat allocation engine",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scheduling", "description": "Sitting generation and lifecycle"},
        {"name": "Allocation", "description": "Room and seat assignment"},
        {"name": "Candidates", "description": "Candidate registration and SBD issue"},
        {"name": "Invigilators", "description": "Room supervisor assignment"}
    ],
    "paths": {
        "/exams/{id}/schedules/generate": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Generate subject sittings for an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No sitting could be scheduled"}
                }
            }
        },
        "/exams/{id}/schedules": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "List sittings of an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "grade", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Scheduling"],
                "summary": "Create one sitting manually",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSittingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping sitting"}
                }
            }
        },
        "/schedules/{id}/time": {
            "put": {
                "tags": ["Scheduling"],
                "summary": "Move a sitting to a new date and time",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSittingTimeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping sitting"}
                }
            }
        },
        "/schedules/{id}": {
            "delete": {
                "tags": ["Scheduling"],
                "summary": "Delete a sitting and cascade its allocations",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schedules/{id}/rooms/assign": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Fill a sitting's bound rooms with its candidates",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "maxPerRoom", "in": "query", "type": "integer", "default": 24}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/rooms/assign-advanced": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Allocate several sittings, avoiding booked rooms",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoomsAdvancedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/rooms": {
            "delete": {
                "tags": ["Allocation"],
                "summary": "Reset a sitting's allocations",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schedules/{id}/distribution": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Per-room occupancy summary for a sitting",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/schedules/{scheduleId}/invigilators": {
            "post": {
                "tags": ["Invigilators"],
                "summary": "Draw a supervisor pair for every room of a sitting",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "scheduleId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/candidates": {
            "get": {
                "tags": ["Candidates"],
                "summary": "List registered candidates of an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "grade", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Candidates"],
                "summary": "Register candidates and issue SBDs",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterCandidatesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "grade": {"type": "integer"},
                "allGrades": {"type": "boolean"},
                "daysCount": {"type": "integer"},
                "maxPerDay": {"type": "integer"},
                "startHour": {"type": "integer"},
                "breakMinutes": {"type": "integer"},
                "defaultDuration": {"type": "integer"}
            }
        },
        "CreateSittingRequest": {
            "type": "object",
            "required": ["grade", "subjectId", "examDate", "durationMinutes"],
            "properties": {
                "grade": {"type": "integer"},
                "subjectId": {"type": "string"},
                "examDate": {"type": "string", "format": "date"},
                "startHour": {"type": "integer"},
                "startMinute": {"type": "integer"},
                "durationMinutes": {"type": "integer"}
            }
        },
        "UpdateSittingTimeRequest": {
            "type": "object",
            "required": ["examDate"],
            "properties": {
                "examDate": {"type": "string", "format": "date"},
                "startHour": {"type": "integer"},
                "startMinute": {"type": "integer"},
                "durationMinutes": {"type": "integer"}
            }
        },
        "AssignRoomsAdvancedRequest": {
            "type": "object",
            "required": ["sittingIds"],
            "properties": {
                "sittingIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "RegisterCandidatesRequest": {
            "type": "object",
            "required": ["grade", "candidates"],
            "properties": {
                "grade": {"type": "integer"},
                "candidates": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "studentId": {"type": "string"},
                            "fullName": {"type": "string"}
                        }
                    }
                }
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
