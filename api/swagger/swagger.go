package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Scoring Engine API",
        "description": "Scores exam attempts, aggregates marklists and guards grading windows.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Attempts",
            "description": "Exam attempt scoring"
        },
        {
            "name": "Grades",
            "description": "Manual grade entry"
        },
        {
            "name": "Exams",
            "description": "Exam administration"
        },
        {
            "name": "Marklists",
            "description": "Rubric marklists and aggregation"
        },
        {
            "name": "Access",
            "description": "Grading window guard"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Dependency unavailable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/exams/{id}": {
            "get": {
                "tags": [
                    "Exams"
                ],
                "summary": "Get exam",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Exam not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/exams/{id}/lock": {
            "put": {
                "tags": [
                    "Exams"
                ],
                "summary": "Lock or unlock exam grading",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetLockRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/exams/{id}/attempts/submit": {
            "post": {
                "tags": [
                    "Attempts"
                ],
                "summary": "Submit and grade an attempt",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already submitted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "423": {
                        "description": "Exam locked",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Write window expired",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitAttemptRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/exams/{id}/attempts/progress": {
            "put": {
                "tags": [
                    "Attempts"
                ],
                "summary": "Save draft answers",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already submitted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SaveProgressRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/exams/{id}/attempts/{studentId}": {
            "get": {
                "tags": [
                    "Attempts"
                ],
                "summary": "Get a student's attempt",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Attempt not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/grades/manual": {
            "post": {
                "tags": [
                    "Grades"
                ],
                "summary": "Record a manual exam grade",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "423": {
                        "description": "Exam locked",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Write window expired",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RecordManualGradeRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/grades/{examId}/{studentId}": {
            "get": {
                "tags": [
                    "Grades"
                ],
                "summary": "Get a student's exam grade",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "examId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "studentId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Grade not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/marklists": {
            "put": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Create or replace a marklist configuration",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SaveMarklistConfigRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}": {
            "get": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Get a marklist with all entries",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}/reconcile": {
            "post": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Create missing entries for active students",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}/marks": {
            "post": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Enter a column mark",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "423": {
                        "description": "Marklist locked",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EnterMarkRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}/entries/{studentId}/recompute": {
            "post": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Recompute an entry from its marks",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}/lock": {
            "put": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Lock or unlock a marklist",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetLockRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/marklists/{id}/export": {
            "get": {
                "tags": [
                    "Marklists"
                ],
                "summary": "Export a marklist",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/api/v1/access/check": {
            "post": {
                "tags": [
                    "Access"
                ],
                "summary": "Check whether a grading write is currently allowed",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AccessCheckRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/schools/{id}/grading-policy": {
            "get": {
                "tags": [
                    "Access"
                ],
                "summary": "Get a school's effective grading window policy",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            },
            "put": {
                "tags": [
                    "Access"
                ],
                "summary": "Set a school's grading window policy",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpsertGradingPolicyRequest"
                        }
                    }
                ]
            }
        }
    },
    "definitions": {
        "SubmitAttemptRequest": {
            "type": "object",
            "required": [
                "studentId",
                "answers"
            ],
            "properties": {
                "studentId": {
                    "type": "string"
                },
                "answers": {
                    "type": "object",
                    "description": "Answers keyed by question id"
                }
            }
        },
        "SaveProgressRequest": {
            "type": "object",
            "properties": {
                "studentId": {
                    "type": "string"
                },
                "answers": {
                    "type": "object"
                }
            }
        },
        "RecordManualGradeRequest": {
            "type": "object",
            "required": [
                "examId",
                "studentId",
                "score"
            ],
            "properties": {
                "examId": {
                    "type": "string"
                },
                "studentId": {
                    "type": "string"
                },
                "score": {
                    "type": "number",
                    "minimum": 0,
                    "maximum": 100
                },
                "remark": {
                    "type": "string"
                },
                "attendanceStatus": {
                    "type": "string",
                    "enum": [
                        "PRESENT",
                        "ABSENT",
                        "EXCUSED"
                    ]
                },
                "date": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "SetLockRequest": {
            "type": "object",
            "required": [
                "locked"
            ],
            "properties": {
                "locked": {
                    "type": "boolean"
                }
            }
        },
        "MarklistColumnInput": {
            "type": "object",
            "required": [
                "title",
                "maxMarks"
            ],
            "properties": {
                "id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "maxMarks": {
                    "type": "number",
                    "minimum": 0
                },
                "order": {
                    "type": "integer"
                },
                "isOptional": {
                    "type": "boolean"
                }
            }
        },
        "SaveMarklistConfigRequest": {
            "type": "object",
            "required": [
                "classId",
                "subjectId"
            ],
            "properties": {
                "schoolId": {
                    "type": "string"
                },
                "classId": {
                    "type": "string"
                },
                "subjectId": {
                    "type": "string"
                },
                "columns": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/MarklistColumnInput"
                    }
                }
            }
        },
        "EnterMarkRequest": {
            "type": "object",
            "required": [
                "studentId",
                "columnId",
                "score"
            ],
            "properties": {
                "studentId": {
                    "type": "string"
                },
                "columnId": {
                    "type": "string"
                },
                "score": {
                    "type": "number",
                    "minimum": 0
                }
            }
        },
        "AccessCheckRequest": {
            "type": "object",
            "properties": {
                "examId": {
                    "type": "string"
                },
                "schoolId": {
                    "type": "string"
                },
                "periodId": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "format": "date-time"
                },
                "locked": {
                    "type": "boolean"
                }
            }
        },
        "UpsertGradingPolicyRequest": {
            "type": "object",
            "required": [
                "timezone"
            ],
            "properties": {
                "lockAfterMinutes": {
                    "type": "integer",
                    "minimum": 0
                },
                "timezone": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
