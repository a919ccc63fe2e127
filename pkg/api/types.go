// Package api defines the JSON wire types of the memory HTTP API.
// These types are shared with external clients such as the dashboard.
package api

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	ProjectID string   `json:"project_id"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags,omitempty"`
}

// IngestResponse is the success body of POST /ingest.
type IngestResponse struct {
	IngestedChunks int `json:"ingested_chunks"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	ProjectID string `json:"project_id"`
	Query     string `json:"query"`

	// K is the number of memories to recall. Zero means the server default.
	K int `json:"k,omitempty"`
}

// AskResponse is the success body of POST /ask.
type AskResponse struct {
	Response       string `json:"response"`
	UsedSnippets   int    `json:"used_snippets"`
	TokensEstimate int    `json:"tokens_estimate"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	App           string `json:"app"`
	MemoryTable   string `json:"memory_table"`
	ModelLocation string `json:"model_location"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
