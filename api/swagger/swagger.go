package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Crawdwall Capital Review API",
        "description": "Funding proposal review and voting decision engine",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login for organizers, officers and admins"},
        {"name": "Proposals", "description": "Funding proposal lifecycle"},
        {"name": "Voting", "description": "Officer voting and decision trail"},
        {"name": "Admin", "description": "Oversight: overrides, roster, settings, reports"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate organizer or admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token or OTP challenge", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/officer/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate review officer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/otp/verify": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Complete admin login with the emailed code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyOTPRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or wrong code"},
                    "429": {"description": "Too many attempts"}
                }
            }
        },
        "/proposals": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Submit a funding proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProposalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            },
            "get": {
                "tags": ["Proposals"],
                "summary": "List proposals for review",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/mine": {
            "get": {
                "tags": ["Proposals"],
                "summary": "List the caller's own proposals",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Fetch a single proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/proposals/{id}/submit": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Submit a draft proposal for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not a draft"}
                }
            }
        },
        "/proposals/{id}/history": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Status transition history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/votes": {
            "post": {
                "tags": ["Voting"],
                "summary": "Cast an officer vote",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitVoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Vote recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Officer not active"},
                    "409": {"description": "Already voted or proposal closed"}
                }
            },
            "get": {
                "tags": ["Voting"],
                "summary": "Vote summary for a proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/audit": {
            "get": {
                "tags": ["Voting"],
                "summary": "Decision audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/votes/mine": {
            "get": {
                "tags": ["Voting"],
                "summary": "The caller's voting history",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/investor/opportunities": {
            "get": {
                "tags": ["Investor"],
                "summary": "List approved proposals open for investment",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/investor/portfolio": {
            "get": {
                "tags": ["Investor"],
                "summary": "List the caller's investments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/investor/investments": {
            "post": {
                "tags": ["Investor"],
                "summary": "Invest in an approved proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InvestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already invested or not fundable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/investor/stats": {
            "get": {
                "tags": ["Investor"],
                "summary": "Portfolio summary for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/investor/activity": {
            "get": {
                "tags": ["Investor"],
                "summary": "Recent activity for the caller",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/proposals/{id}/override": {
            "post": {
                "tags": ["Admin"],
                "summary": "Force a proposal decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "Overridden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Reason too short"},
                    "409": {"description": "Already decided"}
                }
            }
        },
        "/admin/officers": {
            "post": {
                "tags": ["Admin"],
                "summary": "Onboard a review officer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOfficerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken"}
                }
            },
            "get": {
                "tags": ["Admin"],
                "summary": "List the officer roster",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/officers/{id}/status": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Change an officer's status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OfficerStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/admin/officers/{id}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Remove an officer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Platform-wide counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/audit/recent": {
            "get": {
                "tags": ["Admin"],
                "summary": "Newest audit entries across all proposals",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/settings": {
            "get": {
                "tags": ["Admin"],
                "summary": "Effective voting parameters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Admin"],
                "summary": "Adjust voting parameters",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/proposals/{id}/reports": {
            "post": {
                "tags": ["Admin"],
                "summary": "Queue a decision report export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestReportPayload"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reports/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Check a report export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reports/{id}/download": {
            "post": {
                "tags": ["Admin"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Report not finished"}
                }
            }
        },
        "/reports/download": {
            "get": {
                "tags": ["Admin"],
                "summary": "Stream a report by signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
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
        "VerifyOTPRequest": {
            "type": "object",
            "required": ["email", "code"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "CreateProposalRequest": {
            "type": "object",
            "required": ["event_title", "description", "event_type", "budget_requested", "expected_revenue", "timeline"],
            "properties": {
                "event_title": {"type": "string", "minLength": 5, "maxLength": 200},
                "description": {"type": "string", "minLength": 10, "maxLength": 2000},
                "event_type": {"type": "string", "enum": ["CONFERENCE", "CONCERT", "FESTIVAL", "SPORTS", "EXHIBITION", "WORKSHOP", "OTHER"]},
                "budget_requested": {"type": "number"},
                "expected_revenue": {"type": "number"},
                "timeline": {"type": "string"},
                "draft": {"type": "boolean"}
            }
        },
        "SubmitVoteRequest": {
            "type": "object",
            "required": ["decision", "risk_assessment", "revenue_comment"],
            "properties": {
                "decision": {"type": "string", "enum": ["ACCEPT", "REJECT"]},
                "risk_assessment": {"type": "string"},
                "revenue_comment": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": ["decision", "reason"],
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "reason": {"type": "string", "minLength": 10}
            }
        },
        "InvestRequest": {
            "type": "object",
            "required": ["proposal_id", "amount"],
            "properties": {
                "proposal_id": {"type": "string"},
                "amount": {"type": "number", "minimum": 0, "exclusiveMinimum": true}
            }
        },
        "CreateOfficerRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8}
            }
        },
        "OfficerStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "INACTIVE", "SUSPENDED"]}
            }
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "acceptance_threshold": {"type": "integer", "minimum": 1},
                "callback_offset_days": {"type": "integer", "minimum": 1},
                "reapply_offset_days": {"type": "integer", "minimum": 1},
                "minimum_investment": {"type": "number", "minimum": 0, "exclusiveMinimum": true}
            }
        },
        "RequestReportPayload": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["pdf", "csv"]}
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
