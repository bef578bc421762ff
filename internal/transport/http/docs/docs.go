// Package docs registers the OpenAPI document served at /openapi.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "openapi": "3.0.3",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/detect/ai": {
            "post": {
                "tags": ["Detect"],
                "summary": "Estimate whether an image was generated by AI",
                "parameters": [
                    {"name": "x-turnstile-token", "in": "header", "schema": {"type": "string"}},
                    {"name": "cf-turnstile-response", "in": "header", "schema": {"type": "string"}}
                ],
                "requestBody": {
                    "required": true,
                    "content": {
                        "multipart/form-data": {
                            "schema": {
                                "type": "object",
                                "required": ["image"],
                                "properties": {
                                    "image": {"type": "string", "format": "binary"},
                                    "turnstileToken": {"type": "string"}
                                }
                            }
                        }
                    }
                },
                "responses": {
                    "200": {"description": "Verdict", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/DetectResponse"}}}},
                    "400": {"description": "Missing or unsupported file, missing token", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
                    "403": {"description": "Invalid anti-bot token", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
                    "413": {"description": "File too large", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
                    "429": {"description": "Rate limited", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
                    "503": {"description": "Upstream or configuration failure", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Health"}}}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Counter totals as text lines",
                "responses": {
                    "200": {"description": "OK", "content": {"text/plain": {"schema": {"type": "string"}}}}
                }
            }
        }
    },
    "components": {
        "schemas": {
            "DetectResponse": {
                "type": "object",
                "properties": {
                    "result": {
                        "type": "object",
                        "properties": {
                            "aiGenerated": {"type": "number"},
                            "percentage": {"type": "integer"},
                            "label": {"type": "string", "enum": ["baja", "media", "alta"]},
                            "message": {"type": "string"}
                        }
                    },
                    "analysis": {
                        "type": "object",
                        "properties": {
                            "requestId": {"type": "string"},
                            "timestamp": {},
                            "status": {"type": "string"},
                            "operations": {"type": "integer"}
                        }
                    },
                    "media": {
                        "type": "object",
                        "properties": {
                            "filename": {"type": "string"},
                            "mimetype": {"type": "string"},
                            "sizeBytes": {"type": "integer"}
                        }
                    },
                    "disclaimer": {"type": "string"}
                }
            },
            "Error": {
                "type": "object",
                "properties": {
                    "statusCode": {"type": "integer"},
                    "error": {"type": "string"},
                    "message": {"type": "string"},
                    "code": {"type": "string"},
                    "throttler": {"type": "string"},
                    "retryAfterMs": {"type": "integer"},
                    "details": {"type": "array", "items": {"type": "string"}}
                }
            },
            "Health": {
                "type": "object",
                "properties": {
                    "status": {"type": "string"},
                    "service": {"type": "string"},
                    "timestamp": {"type": "string", "format": "date-time"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported OpenAPI info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Title:            "alejo-lab-api",
	Description:      "AI-generated image detection relay",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
