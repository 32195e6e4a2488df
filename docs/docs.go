// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/polls": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["polls"],
                "summary": "Create a poll",
                "responses": {"201": {"description": "Created"}, "400": {"description": "VALIDATION_ERROR"}}
            }
        },
        "/polls/my-polls": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["polls"],
                "summary": "List polls created by the caller",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/polls/{code}": {
            "get": {
                "tags": ["polls"],
                "summary": "Get a poll by access code",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/polls/{code}/join": {
            "post": {
                "tags": ["participation"],
                "summary": "Join a poll as a participant",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "500": {"description": "POLL_NOT_ACTIVE"}}
            }
        },
        "/polls/{code}/respond": {
            "post": {
                "tags": ["participation"],
                "summary": "Submit an answer",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "PARTICIPANT_NOT_FOUND"}, "500": {"description": "DUPLICATE_RESPONSE or POLL_EXPIRED"}}
            }
        },
        "/polls/{code}/results": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["results"],
                "summary": "Get per-question results",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Not the owner"}}
            }
        },
        "/polls/{code}/admin-next-question": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["session"],
                "summary": "Advance the live session",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "500": {"description": "NOT_LIVE or BOUNDARY"}}
            }
        },
        "/polls/{code}/admin-previous-question": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["session"],
                "summary": "Step the live session back",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "500": {"description": "NOT_LIVE or BOUNDARY"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Authorization header using the Bearer scheme. Example: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "LivePoll API",
	Description:      "Interactive live polling backend",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
