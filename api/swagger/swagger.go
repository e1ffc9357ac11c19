package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Content Vault API",
        "description": "Anonymous submissions of exams, study material and memes with staff moderation.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Batches", "description": "Anonymous multi-file submissions"},
        {"name": "Content", "description": "Approved exams and study material"},
        {"name": "Memes", "description": "Meme gallery"},
        {"name": "Ranking", "description": "Anonymous teacher ranking"},
        {"name": "Admin", "description": "Staff moderation"}
    ],
    "paths": {
        "/batches": {
            "post": {
                "tags": ["Batches"],
                "summary": "Open a submission batch",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "schema": {"$ref": "#/definitions/CreateBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/{id}/files": {
            "post": {
                "tags": ["Batches"],
                "summary": "Attach files to a pending batch",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"$ref": "#/parameters/BatchToken"},
                    {"in": "formData", "name": "files", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Files stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Upload rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Batch already approved; returned only after the token, stored token and session all match, otherwise 403", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Batches"],
                "summary": "List batch files",
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"$ref": "#/parameters/BatchToken"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/{id}/files/{fileId}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Download one batch file",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"in": "path", "name": "fileId", "type": "string", "required": true},
                    {"$ref": "#/parameters/BatchToken"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Batches"],
                "summary": "Remove a file from a pending batch",
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"in": "path", "name": "fileId", "type": "string", "required": true},
                    {"$ref": "#/parameters/BatchToken"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Batch already approved; returned only after the token, stored token and session all match, otherwise 403", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/{id}/archive": {
            "get": {
                "tags": ["Batches"],
                "summary": "Download the batch as a streamed ZIP",
                "produces": ["application/zip"],
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"$ref": "#/parameters/BatchToken"}
                ],
                "responses": {
                    "200": {"description": "ZIP archive", "schema": {"type": "file"}},
                    "404": {"description": "No files available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/review/batches/{id}/archive": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download a batch through a signed review link",
                "produces": ["application/zip"],
                "parameters": [
                    {"$ref": "#/parameters/BatchID"},
                    {"in": "query", "name": "sig", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "ZIP archive", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content": {
            "get": {
                "tags": ["Content"],
                "summary": "List approved content",
                "parameters": [
                    {"in": "query", "name": "year", "type": "integer"},
                    {"in": "query", "name": "contentType", "type": "string", "enum": ["EXAM", "MATERIAL"]},
                    {"in": "query", "name": "subject", "type": "string"},
                    {"in": "query", "name": "teacher", "type": "string"},
                    {"in": "query", "name": "program", "type": "string"},
                    {"in": "query", "name": "sort", "type": "string", "enum": ["newest", "most_downloaded"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Content"],
                "summary": "Submit an exam or study material",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "title", "type": "string", "required": true},
                    {"in": "formData", "name": "contentType", "type": "string", "required": true},
                    {"in": "formData", "name": "year", "type": "integer"},
                    {"in": "formData", "name": "subject", "type": "string"},
                    {"in": "formData", "name": "teacher", "type": "string"},
                    {"in": "formData", "name": "program", "type": "string"},
                    {"in": "formData", "name": "file", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Upload rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/facets": {
            "get": {
                "tags": ["Content"],
                "summary": "Distinct filter values among approved content",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/bundle": {
            "get": {
                "tags": ["Content"],
                "summary": "Download several approved items as one ZIP",
                "produces": ["application/zip"],
                "parameters": [
                    {"in": "query", "name": "ids", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true}
                ],
                "responses": {
                    "200": {"description": "ZIP archive", "schema": {"type": "file"}},
                    "404": {"description": "No files available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/{id}/download": {
            "get": {
                "tags": ["Content"],
                "summary": "Download an approved content item",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/memes": {
            "get": {
                "tags": ["Memes"],
                "summary": "List approved memes",
                "parameters": [
                    {"in": "query", "name": "sort", "type": "string", "enum": ["newest", "likes"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Memes"],
                "summary": "Submit a meme",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "title", "type": "string", "required": true},
                    {"in": "formData", "name": "image", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Upload rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/memes/{id}/image": {
            "get": {
                "tags": ["Memes"],
                "summary": "Serve an approved meme image",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Image", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/memes/{id}/like": {
            "post": {
                "tags": ["Memes"],
                "summary": "Like a meme once per visitor",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "header", "name": "X-Visitor-Id", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ranking/next": {
            "get": {
                "tags": ["Ranking"],
                "summary": "Next unanswered ranking category",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ranking/votes": {
            "post": {
                "tags": ["Ranking"],
                "summary": "Cast a ranking vote",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/VoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown category or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ranking/results": {
            "get": {
                "tags": ["Ranking"],
                "summary": "Ranking results per category",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/batches": {
            "get": {
                "tags": ["Admin"],
                "summary": "Moderation queue",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/batches/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the moderation queue",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "status", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}}
                }
            }
        },
        "/admin/batches/{id}/review-link": {
            "get": {
                "tags": ["Admin"],
                "summary": "Signed review link for a batch",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/BatchID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/batches/status": {
            "post": {
                "tags": ["Admin"],
                "summary": "Bulk approve or reject batches",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/content/status": {
            "post": {
                "tags": ["Admin"],
                "summary": "Bulk approve or reject content",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/memes/status": {
            "post": {
                "tags": ["Admin"],
                "summary": "Bulk approve or reject memes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/blobs/verify": {
            "get": {
                "tags": ["Admin"],
                "summary": "Report ledger rows whose stored bytes are missing",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Runtime counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "BatchID": {"in": "path", "name": "id", "type": "string", "required": true},
        "BatchToken": {"in": "header", "name": "X-Batch-Token", "type": "string", "description": "Batch access token; a bearer token is accepted too"}
    },
    "definitions": {
        "CreateBatchRequest": {
            "type": "object",
            "properties": {
                "context": {"type": "string"},
                "typeOption": {"type": "string"},
                "subject": {"type": "string"},
                "program": {"type": "string"},
                "teacher": {"type": "string"},
                "year": {"type": "integer"}
            }
        },
        "VoteRequest": {
            "type": "object",
            "required": ["categoryId", "teacherId"],
            "properties": {
                "categoryId": {"type": "string"},
                "teacherId": {"type": "string"}
            }
        },
        "StatusRequest": {
            "type": "object",
            "required": ["ids", "status"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
