package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SchedExpress API",
        "description": "Student course scheduling and change request workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Schedules", "description": "Schedule assignment and export"},
        {"name": "ChangeRequests", "description": "Course change workflow"},
        {"name": "Conflicts", "description": "Detected scheduling conflicts"},
        {"name": "Rules", "description": "Global scheduling rules"},
        {"name": "CourseRules", "description": "Pairwise course rules"},
        {"name": "Settings", "description": "School settings singleton"},
        {"name": "Notifications", "description": "Per-user notification inbox"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "gradeLevel", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/students/{id}/schedule": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a student's schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List catalog courses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "period", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a catalog course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Courses"],
                "summary": "Update a catalog course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a catalog course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/courses/{id}/rules": {
            "get": {
                "tags": ["CourseRules"],
                "summary": "List rules referencing a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Assign a student's schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Period clash, full course, or existing schedule"}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Schedules"],
                "summary": "Add and remove schedule courses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Period clash or full course"}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schedules/{id}/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export a schedule as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/change-requests": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "List change requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Submit a course change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateChangeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change-requests/pending": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "List pending change requests awaiting review",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change-requests/{id}": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "Get change request detail with conflicts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["ChangeRequests"],
                "summary": "Delete a change request and its conflicts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/change-requests/{id}/review": {
            "patch": {
                "tags": ["ChangeRequests"],
                "summary": "Approve, deny, or comment on a change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewChangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed or unresolved conflicts"}
                }
            }
        },
        "/change-requests/{id}/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List conflicts attached to a change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List detected conflicts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/{id}/resolve": {
            "patch": {
                "tags": ["Conflicts"],
                "summary": "Mark a conflict as resolved",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/rules": {
            "get": {
                "tags": ["Rules"],
                "summary": "List scheduling rules",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rules"],
                "summary": "Create a scheduling rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rules/{id}": {
            "get": {
                "tags": ["Rules"],
                "summary": "Get a scheduling rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Rules"],
                "summary": "Update a scheduling rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Rules"],
                "summary": "Delete a scheduling rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/course-rules": {
            "get": {
                "tags": ["CourseRules"],
                "summary": "List course rules",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["CourseRules"],
                "summary": "Create a course rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/course-rules/{id}": {
            "patch": {
                "tags": ["CourseRules"],
                "summary": "Update a course rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCourseRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["CourseRules"],
                "summary": "Delete a course rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get school settings",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Settings"],
                "summary": "Update school settings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/read-all": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark every unread notification as read",
                "security": [{"BearerAuth": []}],
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
        "CreateCourseRequest": {
            "type": "object",
            "required": ["courseCode", "name", "period", "capacity"],
            "properties": {
                "courseCode": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "period": {"type": "integer"},
                "capacity": {"type": "integer"}
            }
        },
        "UpdateCourseRequest": {
            "type": "object",
            "properties": {
                "courseCode": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "period": {"type": "integer"},
                "capacity": {"type": "integer"}
            }
        },
        "CreateScheduleRequest": {
            "type": "object",
            "required": ["studentId", "courseIds", "semester", "year"],
            "properties": {
                "studentId": {"type": "string"},
                "courseIds": {"type": "array", "items": {"type": "string"}},
                "semester": {"type": "string"},
                "year": {"type": "integer"}
            }
        },
        "UpdateScheduleRequest": {
            "type": "object",
            "properties": {
                "addCourseIds": {"type": "array", "items": {"type": "string"}},
                "removeCourseIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateChangeRequest": {
            "type": "object",
            "required": ["studentId", "currentCourseId", "newCourseId", "reason"],
            "properties": {
                "studentId": {"type": "string"},
                "currentCourseId": {"type": "string"},
                "newCourseId": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "ReviewChangeRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["APPROVED", "DENIED"]},
                "comments": {"type": "string"}
            }
        },
        "CreateRuleRequest": {
            "type": "object",
            "required": ["type", "description"],
            "properties": {
                "type": {"type": "string"},
                "description": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "UpdateRuleRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "description": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "CreateCourseRuleRequest": {
            "type": "object",
            "required": ["courseId", "conflictingCourseId", "type"],
            "properties": {
                "courseId": {"type": "string"},
                "conflictingCourseId": {"type": "string"},
                "type": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "UpdateCourseRuleRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "schoolName": {"type": "string"},
                "academicYear": {"type": "string"},
                "semester": {"type": "string"},
                "maxCourseLoad": {"type": "integer"},
                "allowConflicts": {"type": "boolean"}
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
