// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package docs registers the Paysync OpenAPI document with swag so
// http-swagger can serve it at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/payments/orders": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Create a checkout order",
                "parameters": [
                    {"description": "Checkout order", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Order"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed or gateway rejected the order", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Gateway unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/orders/test": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Create a test order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Disabled in production", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Receive a payment gateway webhook",
                "parameters": [
                    {"type": "string", "description": "base64 HMAC-SHA256 of the raw body", "name": "x-webhook-signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.WebhookAck"}},
                    "400": {"description": "Invalid signature or payload", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/webhook/test": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Webhook reachability probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.WebhookAck"}}
                }
            }
        },
        "/payments/redirect": {
            "get": {
                "tags": ["Payments"],
                "summary": "Browser return from checkout",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "order_id", "in": "query", "required": true},
                    {"type": "string", "description": "Opaque gateway token", "name": "order_token", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Redirect to the front end"}
                }
            }
        },
        "/payments/orders/{orderID}/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Get order payment status",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StatusResponse"}},
                    "400": {"description": "Invalid order id", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Unknown order", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Gateway unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/orders/{orderID}/retry": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Retry reconciliation of an order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StatusResponse"}},
                    "400": {"description": "Invalid order id", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Gateway unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/orders/{orderID}/ticket": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Raise a ticket for a quarantined payment",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true},
                    {"type": "string", "description": "What happened", "name": "description", "in": "formData", "required": true},
                    {"type": "file", "description": "Evidence file (repeatable)", "name": "evidence", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No quarantine record", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "415": {"description": "Unsupported file type", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/payments/orders/{orderID}/quarantine": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Get a quarantined payment",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No quarantine record", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "security": [{"BasicAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Admin login",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/quarantine": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List quarantined orders",
                "parameters": [
                    {"type": "boolean", "description": "Filter on the resolved flag", "name": "resolved", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Maximum records (1-500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/quarantine/{orderID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Get a quarantined order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No quarantine record", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/quarantine/{orderID}/resolve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Resolve a quarantined order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true},
                    {"description": "Resolution notes", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ResolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No quarantine record", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/ledger/{orderID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Get a ledger entry",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No ledger entry", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/evidence/{key}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["Admin"],
                "summary": "Get ticket evidence",
                "parameters": [
                    {"type": "string", "description": "Evidence key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/admin/events/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Live reconciliation feed",
                "responses": {
                    "101": {"description": "Switching protocols"}
                }
            }
        },
        "/admin/audit": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json", "text/plain"],
                "tags": ["Admin"],
                "summary": "Query the audit trail",
                "parameters": [
                    {"type": "string", "description": "Comma-separated event types", "name": "type", "in": "query"},
                    {"type": "string", "description": "Actor name", "name": "actor", "in": "query"},
                    {"type": "string", "description": "Order ID", "name": "order_id", "in": "query"},
                    {"type": "string", "description": "RFC 3339 lower bound", "name": "since", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Maximum events (1-500)", "name": "limit", "in": "query"},
                    {"type": "string", "default": "json", "description": "json or cef", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ResolveRequest": {
            "type": "object",
            "required": ["notes"],
            "properties": {
                "notes": {"type": "string", "maxLength": 2000}
            }
        },
        "models.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {},
                "metadata": {"$ref": "#/definitions/models.Metadata"},
                "error": {"$ref": "#/definitions/models.APIError"}
            }
        },
        "models.Metadata": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "query_time_ms": {"type": "integer"},
                "request_id": {"type": "string"}
            }
        },
        "models.Customer": {
            "type": "object",
            "required": ["name", "email", "phone"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string", "maxLength": 100},
                "email": {"type": "string"},
                "phone": {"type": "string", "maxLength": 20}
            }
        },
        "models.Order": {
            "type": "object",
            "required": ["orderId", "orderAmount", "customer"],
            "properties": {
                "orderId": {"type": "string", "maxLength": 50},
                "orderAmount": {"type": "number"},
                "currency": {"type": "string"},
                "customer": {"$ref": "#/definitions/models.Customer"},
                "planType": {"type": "string", "enum": ["premium", "silver"]},
                "promocode": {"type": "string"},
                "originalAmount": {"type": "number"},
                "context": {"type": "string", "enum": ["registration", "existing_user"]}
            }
        },
        "models.StatusResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "orderStatus": {"type": "string"},
                "paymentStatus": {"type": "string"},
                "transactionId": {"type": "string"},
                "amount": {"type": "number"},
                "alreadyProcessed": {"type": "boolean"},
                "outcome": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.WebhookAck": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "outcome": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BasicAuth": {"type": "basic"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Paysync API",
	Description:      "Payment reconciliation: checkout, gateway webhooks, browser redirects, status polling and quarantine triage.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
