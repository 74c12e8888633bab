// Package docs holds the swagger document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "http://www.example.com/support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/triggers": {
            "post": {
                "description": "Runs one orchestration pass synchronously and returns its summary",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["triggers"],
                "summary": "Execute a trigger",
                "parameters": [
                    {"description": "Trigger descriptor", "name": "trigger", "in": "body", "required": true, "schema": {"$ref": "#/definitions/engine.TriggerRequest"}},
                    {"type": "integer", "description": "Pass deadline in milliseconds", "name": "timeout_ms", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Summary"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/metrics/rules": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "List rule execution metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/execmetrics.Snapshot"}}}
                }
            }
        },
        "/metrics/rules/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get one rule's execution metrics",
                "parameters": [{"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/execmetrics.Snapshot"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/metrics/actions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get one action's execution metrics",
                "parameters": [{"type": "string", "description": "Action ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/execmetrics.Snapshot"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/metrics/reset": {
            "post": {
                "description": "Drops every in-memory rule and action counter",
                "tags": ["metrics"],
                "summary": "Reset execution metrics",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/rules/{id}/executions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["executions"],
                "summary": "List recent executions of a rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum records", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ExecutionRecord"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "engine.TriggerRequest": {
            "type": "object",
            "required": ["customer_id"],
            "properties": {
                "trigger_id": {"type": "string"},
                "trigger_type": {"type": "string", "enum": ["timer", "request", "storage_change", "event"]},
                "customer_id": {"type": "string"},
                "event_type": {"type": "string"},
                "rule_id": {"type": "string"},
                "filter": {"type": "string"},
                "entity_ids": {"$ref": "#/definitions/models.EntityIDs"},
                "payload": {"type": "object", "additionalProperties": true}
            }
        },
        "models.EntityIDs": {
            "type": "object",
            "properties": {
                "customer_id": {"type": "string"},
                "order_id": {"type": "string"},
                "product_id": {"type": "string"}
            }
        },
        "models.Summary": {
            "type": "object",
            "properties": {
                "trigger_id": {"type": "string"},
                "rules_evaluated": {"type": "integer"},
                "rules_matched": {"type": "integer"},
                "actions_executed": {"type": "integer"},
                "success_rate": {"type": "number"},
                "duplicate": {"type": "boolean"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/models.ExecutionRecord"}}
            }
        },
        "models.ExecutionRecord": {
            "type": "object",
            "additionalProperties": true
        },
        "execmetrics.Snapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "executions": {"type": "integer"},
                "successes": {"type": "integer"},
                "failures": {"type": "integer"},
                "not_matched": {"type": "integer"},
                "success_rate": {"type": "number"},
                "avg_response_time_ms": {"type": "number"},
                "last_executed_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Ruleflow Engine Service API",
	Description:      "REST API for submitting triggers and reading execution metrics and history",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
