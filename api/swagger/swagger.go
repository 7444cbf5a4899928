package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Concern Verifier API",
        "description": "Resident waste management concerns with automatic legitimacy verification",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Concerns", "description": "Concern submission, review and reporting"},
        {"name": "Residents", "description": "Resident registry"}
    ],
    "paths": {
        "/concerns": {
            "post": {
                "tags": ["Concerns"],
                "summary": "Submit a concern",
                "description": "Stores the concern as pending and queues it for automatic verification.",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitConcernRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Resident not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Concerns"],
                "summary": "List concerns",
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"in": "query", "name": "residentId", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/concerns/stats": {
            "get": {
                "tags": ["Concerns"],
                "summary": "Verification statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ConcernStats"}}
                }
            }
        },
        "/concerns/export": {
            "get": {
                "tags": ["Concerns"],
                "summary": "Export concerns",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"in": "query", "name": "status", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"in": "query", "name": "residentId", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/concerns/process-all": {
            "post": {
                "tags": ["Concerns"],
                "summary": "Verify every pending concern",
                "description": "Queues all pending concerns and waits for the batch to settle.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProcessAllResponse"}}
                }
            }
        },
        "/concerns/{id}": {
            "get": {
                "tags": ["Concerns"],
                "summary": "Get a concern",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Concern"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Concerns"],
                "summary": "Override verification status",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/OverrideConcernRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Concern"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/residents": {
            "post": {
                "tags": ["Residents"],
                "summary": "Create a resident",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateResidentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Resident"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Residents"],
                "summary": "List residents",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/residents/test": {
            "post": {
                "tags": ["Residents"],
                "summary": "Create a sample resident",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Resident"}}
                }
            }
        },
        "/residents/{id}": {
            "get": {
                "tags": ["Residents"],
                "summary": "Get a resident",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Resident"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Verification": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
                "aiSuggestion": {"type": "string"},
                "aiReason": {"type": "string"},
                "confidence": {"type": "number"},
                "category": {"type": "string"},
                "processedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Concern": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "text": {"type": "string"},
                "residentId": {"type": "string"},
                "residentName": {"type": "string"},
                "submittedAt": {"type": "string", "format": "date-time"},
                "verification": {"$ref": "#/definitions/Verification"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Resident": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "avatar": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "SubmitConcernRequest": {
            "type": "object",
            "required": ["text", "residentId"],
            "properties": {
                "text": {"type": "string", "maxLength": 5000},
                "residentId": {"type": "string"}
            }
        },
        "OverrideConcernRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]}
            }
        },
        "CreateResidentRequest": {
            "type": "object",
            "required": ["name", "email"],
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "email": {"type": "string", "format": "email"},
                "avatar": {"type": "string", "format": "uri"}
            }
        },
        "ProcessResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "concernId": {"type": "string"},
                "concern": {"$ref": "#/definitions/Concern"},
                "error": {"type": "string"}
            }
        },
        "ProcessAllResponse": {
            "type": "object",
            "properties": {
                "processed": {"type": "integer"},
                "successful": {"type": "integer"},
                "failed": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/ProcessResult"}}
            }
        },
        "ConcernStats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "approved": {"type": "integer"},
                "rejected": {"type": "integer"},
                "byCategory": {"type": "object", "additionalProperties": {"type": "integer"}},
                "generatedAt": {"type": "string", "format": "date-time"}
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
