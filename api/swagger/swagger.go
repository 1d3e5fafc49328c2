package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "VitalPoint Consultation API",
        "description": "Consultation scheduling service: doctor availability, slot listing and booking lifecycle",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Token issuance and session management"},
        {"name": "Doctors", "description": "Doctor directory"},
        {"name": "Availability", "description": "Weekly schedules and bookable slots"},
        {"name": "Consultations", "description": "Booking lifecycle"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctors": {
            "get": {
                "tags": ["Doctors"],
                "summary": "List doctors",
                "parameters": [
                    {"name": "specialty", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Doctors"],
                "summary": "Register doctor",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDoctorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctors/{id}": {
            "get": {
                "tags": ["Doctors"],
                "summary": "Get doctor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            },
            "patch": {
                "tags": ["Doctors"],
                "summary": "Update doctor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDoctorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Doctors"],
                "summary": "Deactivate doctor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/doctors/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get weekly availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace weekly availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/doctors/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List bookable slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date"},
                    "404": {"description": "Doctor not found"}
                }
            }
        },
        "/consultations": {
            "get": {
                "tags": ["Consultations"],
                "summary": "List consultations visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Consultations"],
                "summary": "Book a consultation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookConsultationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Time conflict"}
                }
            }
        },
        "/consultations/{id}": {
            "get": {
                "tags": ["Consultations"],
                "summary": "Get consultation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            },
            "patch": {
                "tags": ["Consultations"],
                "summary": "Update consultation (staff)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminUpdateConsultationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consultations/{id}/reschedule": {
            "post": {
                "tags": ["Consultations"],
                "summary": "Reschedule consultation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleConsultationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Time conflict"}
                }
            }
        },
        "/consultations/{id}/cancel": {
            "post": {
                "tags": ["Consultations"],
                "summary": "Cancel consultation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid state"}
                }
            }
        },
        "/consultations/{id}/summary.pdf": {
            "get": {
                "tags": ["Consultations"],
                "summary": "Download consultation summary PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "Doctor": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "full_name": {"type": "string"},
                "specialty": {"type": "string"},
                "bio": {"type": "string"},
                "consultation_fee": {"type": "number"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateDoctorRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "full_name": {"type": "string"},
                "specialty": {"type": "string"},
                "bio": {"type": "string"},
                "consultation_fee": {"type": "number"}
            },
            "required": ["user_id", "full_name", "specialty"]
        },
        "UpdateDoctorRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "specialty": {"type": "string"},
                "bio": {"type": "string"},
                "consultation_fee": {"type": "number"},
                "active": {"type": "boolean"}
            }
        },
        "AvailabilityWindow": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "doctor_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        },
        "SetAvailabilityRequest": {
            "type": "object",
            "properties": {
                "windows": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AvailabilityWindow"}
                }
            },
            "required": ["windows"]
        },
        "Consultation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "doctor_id": {"type": "string"},
                "patient_id": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "type": {"type": "string"},
                "status": {"type": "string"},
                "fee": {"type": "number"},
                "paid": {"type": "boolean"},
                "notes": {"type": "string"},
                "prescription": {"type": "string"},
                "meeting_link": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "BookConsultationRequest": {
            "type": "object",
            "properties": {
                "doctor_id": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "type": {"type": "string", "enum": ["VIDEO", "AUDIO", "CHAT", "IN_PERSON"]}
            },
            "required": ["doctor_id", "scheduled_at", "type"]
        },
        "RescheduleConsultationRequest": {
            "type": "object",
            "properties": {
                "scheduled_at": {"type": "string"}
            },
            "required": ["scheduled_at"]
        },
        "AdminUpdateConsultationRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "notes": {"type": "string"},
                "prescription": {"type": "string"},
                "meeting_link": {"type": "string"},
                "paid": {"type": "boolean"}
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
