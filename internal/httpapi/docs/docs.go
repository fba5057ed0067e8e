// Package docs registers the OpenAPI description of the HTTP API with swag
// so that /swagger/doc.json can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "hdi1d maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate": {
            "post": {
                "summary": "Generate one image",
                "consumes": ["application/json", "application/x-www-form-urlencoded", "multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Invalid input or unknown variant", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported content type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Generation slot busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Model load or sampling failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/variants": {
            "get": {
                "summary": "List variants, schedulers, presets and formats",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OptionsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "summary": "Model manager status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/switch": {
            "post": {
                "summary": "Load a variant in the background",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.SwitchRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.SwitchResponse"}},
                    "400": {"description": "Unknown variant", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/unload": {
            "post": {
                "summary": "Release the loaded pipeline",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/cleanup": {
            "post": {
                "summary": "Delete temporary download copies",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CleanupResponse"}}}
            }
        },
        "/history": {
            "get": {
                "summary": "Recent generations, newest first",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "variant", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}}}
            }
        },
        "/download/{name}": {
            "get": {
                "summary": "Download a temporary copy (hdi1_*)",
                "produces": ["image/png", "image/jpeg", "image/webp"],
                "parameters": [{"in": "path", "name": "name", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/outputs/{name}": {
            "get": {
                "summary": "Serve a permanent output",
                "produces": ["image/png", "image/jpeg", "image/webp"],
                "parameters": [{"in": "path", "name": "name", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
        "types.GenerateRequest": {
            "type": "object",
            "required": ["prompt"],
            "properties": {
                "variant": {"type": "string", "example": "fast"},
                "prompt": {"type": "string", "example": "a red cube"},
                "resolution": {"type": "string", "example": "1024 × 1024"},
                "width": {"type": "integer", "example": 1024},
                "height": {"type": "integer", "example": 1024},
                "seed": {"type": "integer", "example": 42},
                "scheduler": {"type": "string", "example": "FlashFlowMatchEulerDiscreteScheduler"},
                "guidance_scale": {"type": "number", "example": 0},
                "steps": {"type": "integer", "example": 16},
                "shift": {"type": "number", "example": 3},
                "format": {"type": "string", "example": "PNG"}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string"},
                "seed": {"type": "integer"},
                "variant": {"type": "string"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "format": {"type": "string"},
                "save_message": {"type": "string"},
                "saved_path": {"type": "string"},
                "download_path": {"type": "string"},
                "download_url": {"type": "string"},
                "image_url": {"type": "string"},
                "duration_ms": {"type": "integer"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid steps: must be between 1 and 100"},
                "code": {"type": "integer", "example": 400},
                "kind": {"type": "string", "example": "validation"},
                "field": {"type": "string", "example": "steps"},
                "status": {"type": "string"}
            }
        },
        "types.Variant": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "fast"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "guidance_scale": {"type": "number"},
                "steps": {"type": "integer"},
                "shift": {"type": "number"},
                "scheduler": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "types.Preset": {
            "type": "object",
            "properties": {
                "label": {"type": "string", "example": "1024 × 1024 (Square)"},
                "width": {"type": "integer"},
                "height": {"type": "integer"}
            }
        },
        "types.OptionsResponse": {
            "type": "object",
            "properties": {
                "variants": {"type": "array", "items": {"$ref": "#/definitions/types.Variant"}},
                "default_variant": {"type": "string"},
                "schedulers": {"type": "array", "items": {"type": "string"}},
                "presets": {"type": "array", "items": {"$ref": "#/definitions/types.Preset"}},
                "formats": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "loaded_variant": {"type": "string"},
                "state": {"type": "string"},
                "backend": {"type": "string"},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "last_error": {"type": "string"},
                "loaded_at_unix": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "fallbacks_total": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.SwitchRequest": {
            "type": "object",
            "properties": {"variant": {"type": "string", "example": "full"}}
        },
        "types.SwitchResponse": {
            "type": "object",
            "properties": {"op_id": {"type": "string"}, "variant": {"type": "string"}}
        },
        "types.CleanupResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "deleted": {"type": "array", "items": {"type": "string"}},
                "failed": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.HistoryEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at_unix": {"type": "integer"},
                "variant": {"type": "string"},
                "prompt": {"type": "string"},
                "seed": {"type": "integer"},
                "scheduler": {"type": "string"},
                "guidance_scale": {"type": "number"},
                "steps": {"type": "integer"},
                "shift": {"type": "number"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "format": {"type": "string"},
                "saved_path": {"type": "string"},
                "duration_ms": {"type": "integer"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {"entries": {"type": "array", "items": {"$ref": "#/definitions/types.HistoryEntry"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "hdi1d API",
	Description:      "HTTP API for HiDream-I1 image generation and model management.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
