// Package docs holds the OpenAPI document served under /swagger/.
// Regenerate with `make swagger-gen` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/readyz": {
            "get": {
                "description": "200 when the gateway is running, 503 with the current state otherwise.",
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "ready", "schema": {"type": "string"}},
                    "503": {"description": "gateway state", "schema": {"type": "string"}}
                }
            }
        },
        "/api/status": {
            "get": {
                "security": [{"BasicAuth": []}],
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "Gateway status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/logs": {
            "get": {
                "security": [{"BasicAuth": []}],
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "Recent gateway output",
                "parameters": [
                    {"type": "integer", "description": "number of lines (default 100, capped at buffer capacity)", "name": "n", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LogsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/logs/stream": {
            "get": {
                "security": [{"BasicAuth": []}],
                "description": "Sends the last n buffered lines, then every new line and lifecycle event as JSON frames.",
                "tags": ["gateway"],
                "summary": "Live gateway output over a websocket",
                "parameters": [
                    {"type": "integer", "description": "backlog lines (default 100, 0 for none)", "name": "n", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols", "schema": {"$ref": "#/definitions/types.StreamMessage"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/config": {
            "get": {
                "security": [{"BasicAuth": []}],
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Stored gateway config (secrets masked)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ConfigResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BasicAuth": []}],
                "description": "Accepts JSON (default, comments allowed), YAML or TOML. Secrets sent back as the placeholder keep their stored value; an empty string clears them.",
                "consumes": ["application/json", "application/yaml", "application/toml"],
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Replace the gateway config and restart the gateway",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.UpdateConfigResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/gateway/{action}": {
            "post": {
                "security": [{"BasicAuth": []}],
                "description": "Spawn failures are reported with ok=false and the crashed state, not as an HTTP error.",
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "Start, stop or restart the gateway",
                "parameters": [
                    {"type": "string", "description": "start, stop or restart", "name": "action", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"},
                "category": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/types.FieldError"}}
            }
        },
        "types.FieldError": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "types.ExitStatus": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "signal": {"type": "string"},
                "expected": {"type": "boolean"},
                "at_unix": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "pid": {"type": "integer"},
                "run_id": {"type": "string"},
                "started_at_unix": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "last_exit": {"$ref": "#/definitions/types.ExitStatus"},
                "last_error": {"type": "string"},
                "starts": {"type": "integer"},
                "crashes": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.LogLine": {
            "type": "object",
            "properties": {
                "seq": {"type": "integer"},
                "ts_unix_ms": {"type": "integer"},
                "text": {"type": "string"}
            }
        },
        "types.LogsResponse": {
            "type": "object",
            "properties": {
                "lines": {"type": "array", "items": {"$ref": "#/definitions/types.LogLine"}},
                "count": {"type": "integer"},
                "capacity": {"type": "integer"}
            }
        },
        "types.StreamMessage": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "line": {"$ref": "#/definitions/types.LogLine"},
                "event": {"type": "string"},
                "run_id": {"type": "string"},
                "fields": {"type": "object"}
            }
        },
        "types.ConfigResponse": {
            "type": "object",
            "properties": {
                "config": {"type": "object"},
                "secrets_set": {"type": "array", "items": {"type": "string"}},
                "placeholder": {"type": "string"}
            }
        },
        "types.ActionResponse": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "ok": {"type": "boolean"},
                "changed": {"type": "boolean"},
                "state": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "types.UpdateConfigResponse": {
            "type": "object",
            "properties": {
                "config": {"type": "object"},
                "secrets_set": {"type": "array", "items": {"type": "string"}},
                "placeholder": {"type": "string"},
                "gateway": {"$ref": "#/definitions/types.StatusResponse"},
                "restart": {"$ref": "#/definitions/types.ActionResponse"}
            }
        }
    },
    "securityDefinitions": {
        "BasicAuth": {"type": "basic"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "gatewayd API",
	Description:      "Supervisor and admin API for the nanobot messaging gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
