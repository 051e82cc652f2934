// Package docs registers the swagger spec for the vote-processing
// ingestion API. It exists only for its init side effect; http_dto.go and
// server.go are the source of truth for request/response shapes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "vote-processing ingestion API",
        "description": "Ingests law and election ballots, reports tallies, and exposes reconciliation for operators.",
        "version": "1.0"
    },
    "paths": {
        "/vote": {
            "post": {
                "summary": "Submit a law ballot",
                "parameters": [{"in": "body", "name": "body", "required": true}],
                "responses": {"202": {"description": "accepted"}, "400": {"description": "invalid request"}}
            }
        },
        "/elections/vote": {
            "post": {
                "summary": "Submit an election ballot",
                "parameters": [{"in": "body", "name": "body", "required": true}],
                "responses": {"202": {"description": "accepted"}, "400": {"description": "invalid request"}}
            }
        },
        "/results/{ballot_id}": {
            "get": {
                "summary": "Law ballot tally",
                "parameters": [{"in": "path", "name": "ballot_id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/elections/{election_id}/regions/{region_id}/results": {
            "get": {
                "summary": "Election tally by region",
                "parameters": [
                    {"in": "path", "name": "election_id", "required": true, "type": "integer"},
                    {"in": "path", "name": "region_id", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/health": {
            "get": {
                "summary": "Dependency health probe",
                "responses": {"200": {"description": "ok"}, "503": {"description": "degraded"}}
            }
        }
    }
}`

// SwaggerInfo holds exported swagger doc metadata, consumed by
// http-swagger's handler via swag.GetSwagger.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "vote-processing ingestion API",
	Description:      "Ingests law and election ballots, reports tallies, and exposes reconciliation for operators.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
