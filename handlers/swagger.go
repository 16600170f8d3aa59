package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the gateway.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>qanda-gateway Swagger UI</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document of the gateway's REST surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "qanda-gateway", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Answer": { "type": "object", "properties": { "id": {"type":"string"}, "content": {"type":"string"}, "questionId": {"type":"string"}, "createdAt": {"type":"string"} } },
      "Question": { "type": "object", "properties": { "id": {"type":"string"}, "content": {"type":"string"}, "createdAt": {"type":"string"}, "answers": {"type":"array","items":{"$ref":"#/components/schemas/Answer"}} } },
      "Message": { "type": "object", "properties": { "message": {"type":"string"} } }
    }
  },
  "paths": {
    "/oauth2/token": {
      "post": {
        "summary": "Exchange an OAuth2 grant at the identity provider; access_token mirrors id_token",
        "requestBody": { "content": { "application/x-www-form-urlencoded": { "schema": {"type":"object","properties":{"grant_type":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"},"refresh_token":{"type":"string"}}}}}},
        "responses": { "200": { "description": "token fields from the identity provider" }, "default": { "description": "identity provider status and body, propagated" } }
      }
    },
    "/questions": {
      "get": {
        "summary": "List today's five newest questions",
        "responses": { "200": { "description": "questions", "content": { "application/json": { "schema": {"type":"array","items":{"$ref":"#/components/schemas/Question"}}}}}, "500": { "description": "internal error" } }
      },
      "post": {
        "summary": "Post a question together with its first answer",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"question":{"type":"string"},"answer":{"type":"string"}}}}}},
        "responses": { "200": { "description": "ids of the question and answer" }, "400": { "description": "malformed body" }, "500": { "description": "internal error; the question may have been rolled back" } }
      }
    },
    "/questions/{id}/answers": {
      "post": {
        "summary": "Post an answer to a question",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": {"type":"string"} } ],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"content":{"type":"string"}}}}}},
        "responses": { "200": { "description": "the created answer", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Answer"}}}}, "400": { "description": "missing question id" }, "500": { "description": "internal error" } }
      }
    },
    "/questions/{id}": {
      "delete": {
        "summary": "Delete a question and its answers (idempotent)",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": {"type":"string"} } ],
        "responses": { "204": { "description": "deleted" }, "400": { "description": "missing question id" }, "500": { "description": "internal error" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } }
  }
}`
