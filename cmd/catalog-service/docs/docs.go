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
        "/rules": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "List rules",
                "parameters": [
                    {"type": "string", "description": "Owning customer", "name": "customer_id", "in": "query"},
                    {"type": "string", "description": "active, inactive or draft", "name": "status", "in": "query"},
                    {"type": "string", "description": "Event type the rule applies to", "name": "event_type", "in": "query"},
                    {"type": "string", "description": "Tag", "name": "tag", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.Rule"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Create a rule",
                "parameters": [
                    {"description": "Rule", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.CreateRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.Rule"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/rules/validate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Validate a condition",
                "parameters": [
                    {"description": "Condition source", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.ValidateConditionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/management.ConditionReport"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/rules/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Get a rule",
                "parameters": [{"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Rule"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Update a rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.UpdateRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Rule"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "delete": {
                "tags": ["rules"],
                "summary": "Deactivate a rule",
                "parameters": [{"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/rules/{id}/versions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["versions"],
                "summary": "List rule versions",
                "parameters": [{"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/management.Version"}}}
                }
            }
        },
        "/actions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "List actions",
                "parameters": [
                    {"type": "string", "description": "Owning customer", "name": "customer_id", "in": "query"},
                    {"type": "string", "description": "email, sms, webhook, database or notification", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.Action"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Create an action",
                "parameters": [
                    {"description": "Action", "name": "action", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.CreateActionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.Action"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/actions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["actions"],
                "summary": "Get an action",
                "parameters": [{"type": "string", "description": "Action ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Action"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "delete": {
                "tags": ["actions"],
                "summary": "Deactivate an action",
                "parameters": [{"type": "string", "description": "Action ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/filters/examples": {
            "get": {
                "produces": ["application/json"],
                "tags": ["filters"],
                "summary": "Filter expression examples",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/filters/validate": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["filters"],
                "summary": "Validate a filter expression",
                "parameters": [
                    {"description": "Filter expression", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.ValidateFilterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/audit/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "List audit logs",
                "parameters": [
                    {"type": "string", "description": "rule or action", "name": "entity_type", "in": "query"},
                    {"type": "string", "description": "Entity ID", "name": "entity_id", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Maximum number of logs to return (1-1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/management.AuditLog"}}}
                }
            }
        },
        "/catalog/reload": {
            "post": {
                "tags": ["catalog"],
                "summary": "Ask engines to reload the catalog",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        }
    },
    "definitions": {
        "catalog.Rule": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "customer_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "integer"},
                "status": {"type": "string"},
                "event_types": {"type": "array", "items": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}},
                "condition": {"type": "string"},
                "action_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "catalog.Action": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "customer_id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string"},
                "config": {"type": "object", "additionalProperties": true}
            }
        },
        "management.CreateRuleRequest": {
            "type": "object",
            "required": ["customer_id", "name", "condition"],
            "properties": {
                "id": {"type": "string"},
                "customer_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "integer"},
                "status": {"type": "string"},
                "event_types": {"type": "array", "items": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}},
                "condition": {"type": "string"},
                "action_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "management.UpdateRuleRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "integer"},
                "status": {"type": "string"},
                "event_types": {"type": "array", "items": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}},
                "condition": {"type": "string"},
                "action_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "management.CreateActionRequest": {
            "type": "object",
            "required": ["name", "type", "config"],
            "properties": {
                "id": {"type": "string"},
                "customer_id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string"},
                "config": {"type": "object", "additionalProperties": true}
            }
        },
        "management.ValidateConditionRequest": {
            "type": "object",
            "required": ["condition"],
            "properties": {"condition": {"type": "string"}}
        },
        "management.ConditionReport": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "paths": {"type": "array", "items": {"type": "string"}},
                "then_actions": {"type": "array", "items": {"type": "string"}},
                "else_actions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "management.ValidateFilterRequest": {
            "type": "object",
            "required": ["filter"],
            "properties": {"filter": {"type": "string"}}
        },
        "management.Version": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "version": {"type": "integer"},
                "data": {"type": "object", "additionalProperties": true},
                "changed_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "management.AuditLog": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "operation": {"type": "string"},
                "trace_id": {"type": "string"},
                "changes": {"type": "object", "additionalProperties": true},
                "created_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8081",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Ruleflow Catalog Service API",
	Description:      "REST API for authoring rules and actions, validating conditions and filters, and browsing their history",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
