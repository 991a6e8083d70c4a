package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "StemKit Identity API",
        "description": "Account registration, authentication and session lifecycle",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Registration, login and session management"},
        {"name": "Users", "description": "Account moderation"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "400": {"description": "Invalid input or duplicate account", "schema": {"$ref": "#/definitions/Envelope"}},
                    "503": {"description": "Transient store failure", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Account banned", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/login-external": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate with an external identity provider",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExternalLoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "401": {"description": "Invalid external token", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Account banned", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh session",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "400": {"description": "Invalid refresh token", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout session",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ActionResult"}},
                    "400": {"description": "Invalid refresh token", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Account banned", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/me/permissions": {
            "get": {
                "tags": ["Authentication"],
                "summary": "List my permissions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/admin/users/{id}/ban": {
            "post": {
                "tags": ["Users"],
                "summary": "Ban user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ActionResult"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Already banned", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/admin/users/{id}/unban": {
            "post": {
                "tags": ["Users"],
                "summary": "Unban user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ActionResult"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Not banned", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Metrics summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "email", "password", "role"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["Customer", "Staff"]},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email_or_username", "password"],
            "properties": {
                "email_or_username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ExternalLoginRequest": {
            "type": "object",
            "required": ["id_token"],
            "properties": {"id_token": {"type": "string"}}
        },
        "TokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AuthResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "access_token_expires_at": {"type": "string", "format": "date-time"},
                "refresh_token_expires_at": {"type": "string", "format": "date-time"},
                "user": {"$ref": "#/definitions/UserInfo"}
            }
        },
        "ActionResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "code": {"type": "string"},
                "data": {"type": "object"}
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
