// Package docs registra el documento Swagger 2.0 de la API (formato de swag)
// para http-swagger. Mantener en sync con las anotaciones de los handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/signup": {
            "post": {
                "description": "Email y username son únicos sin distinguir mayúsculas. Deja la sesión iniciada.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Registrar usuario",
                "parameters": [
                    {"description": "Datos de registro", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/accounts.signupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/accounts.sessionResponse"}},
                    "400": {"description": "invalid input", "schema": {"type": "string"}},
                    "409": {"description": "Email already in use.", "schema": {"type": "string"}},
                    "429": {"description": "too many requests", "schema": {"type": "string"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Iniciar sesión",
                "parameters": [
                    {"description": "Credenciales", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/accounts.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/accounts.sessionResponse"}},
                    "401": {"description": "Invalid email or password.", "schema": {"type": "string"}}
                }
            }
        },
        "/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Cerrar sesión", "responses": {"204": {"description": "No Content"}}}
        },
        "/auth/forgot": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["auth"],
                "summary": "Recuperar contraseña (simulado)",
                "responses": {
                    "202": {"description": "Accepted"},
                    "404": {"description": "No account found with that email.", "schema": {"type": "string"}}
                }
            }
        },
        "/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sesión actual",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/accounts.PublicUser"}}, "401": {"description": "unauthorized"}}
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Actualizar perfil",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/accounts.sessionResponse"}}, "409": {"description": "Username already taken."}}
            }
        },
        "/me/password": {
            "post": {"tags": ["auth"], "summary": "Cambiar contraseña", "responses": {"204": {"description": "No Content"}, "401": {"description": "Current password is incorrect."}}}
        },
        "/medications": {
            "get": {
                "produces": ["application/json"],
                "tags": ["medications"],
                "summary": "Listar medicamentos",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/medications.Medication"}}}, "401": {"description": "unauthorized"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["medications"],
                "summary": "Crear medicamento",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/medications.Medication"}}, "400": {"description": "invalid input"}}
            }
        },
        "/medications/refresh": {
            "post": {"tags": ["medications"], "summary": "Normalizar y reprogramar", "responses": {"200": {"description": "OK"}}}
        },
        "/medications/{id}": {
            "get": {"tags": ["medications"], "summary": "Obtener medicamento", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}},
            "patch": {"tags": ["medications"], "summary": "Actualizar medicamento", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}},
            "delete": {"tags": ["medications"], "summary": "Borrar medicamento", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/medications/{id}/doses/{time}": {
            "delete": {"tags": ["medications"], "summary": "Quitar un horario", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "time", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/medications/{id}/logs": {
            "get": {"tags": ["medications"], "summary": "Historial de tomas", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/notifications/delivered": {
            "get": {"tags": ["notifications"], "summary": "Notificaciones entregadas", "responses": {"200": {"description": "OK"}}}
        },
        "/notifications/{instanceID}/response": {
            "post": {"tags": ["notifications"], "summary": "Responder a una notificación", "parameters": [{"type": "string", "name": "instanceID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "notification not found"}}}
        },
        "/preferences/theme": {
            "get": {"tags": ["preferences"], "summary": "Tema actual", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["preferences"], "summary": "Fijar tema", "responses": {"200": {"description": "OK"}, "400": {"description": "invalid mode"}}}
        },
        "/preferences/theme/toggle": {
            "post": {"tags": ["preferences"], "summary": "Alternar tema", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "accounts.PublicUser": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "username": {"type": "string"},
                "avatar": {"type": "string"}
            }
        },
        "accounts.sessionResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/accounts.PublicUser"}
            }
        },
        "accounts.signupRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "accounts.loginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "medications.Medication": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "emoji": {"type": "string"},
                "color": {"type": "string"},
                "dosage": {"type": "string"},
                "dosageAmount": {"type": "number"},
                "dosageUnit": {"type": "string"},
                "frequency": {"type": "integer"},
                "timesPerDay": {"type": "integer"},
                "reminderTimes": {"type": "array", "items": {"type": "string"}},
                "duration": {"type": "integer"},
                "startDate": {"type": "string"},
                "totalAmount": {"type": "number"},
                "remainingAmount": {"type": "number"},
                "enableReminders": {"type": "boolean"},
                "snoozeInterval": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "MediPal API",
	Description:      "Recordatorios de medicación, cuentas locales y preferencias.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
