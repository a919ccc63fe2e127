// Package apiv1 carries the OpenAPI document for the memory HTTP API.
package apiv1

import _ "embed"

// OpenAPISpec is the embedded OpenAPI 3.0 document served at /openapi.json.
//
//go:embed openapi.json
var OpenAPISpec []byte
