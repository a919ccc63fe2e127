// Package port exposes the memory service over HTTP.
package port

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apiv1 "github.com/memora-labs/memora/api/v1"
	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/errmap"
	"github.com/memora-labs/memora/internal/memory/app"
	"github.com/memora-labs/memora/pkg/api"
)

// maxBodyBytes bounds request bodies. Slightly above the ingest text cap so
// the JSON envelope and tags fit around a maximum-size text.
const maxBodyBytes = domain.MaxIngestTextSize + 64*1024

// HealthInfo is the static configuration summary reported by GET /health.
type HealthInfo struct {
	App           string
	MemoryTable   string
	ModelLocation string
}

// Handler is the HTTP adapter for the memory service.
type Handler struct {
	service *app.MemoryService
	logger  *slog.Logger
	health  HealthInfo
}

// NewHandler creates a Handler for the given service.
func NewHandler(service *app.MemoryService, logger *slog.Logger, health HealthInfo) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, health: health}
}

// Routes builds the router for the memory API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.getHealth)
	r.Get("/openapi.json", h.getOpenAPI)
	r.Post("/ingest", h.postIngest)
	r.Post("/ask", h.postAsk)

	return r
}

func (h *Handler) getHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:        "ok",
		App:           h.health.App,
		MemoryTable:   h.health.MemoryTable,
		ModelLocation: h.health.ModelLocation,
	})
}

func (h *Handler) getOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apiv1.OpenAPISpec)
}

func (h *Handler) postIngest(w http.ResponseWriter, r *http.Request) {
	var req api.IngestRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(r, w, err)
		return
	}

	projectID, err := domain.NewProjectID(req.ProjectID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	n, err := h.service.Ingest(r.Context(), projectID, req.Text, req.Tags)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.IngestResponse{IngestedChunks: n})
}

func (h *Handler) postAsk(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(r, w, err)
		return
	}

	projectID, err := domain.NewProjectID(req.ProjectID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if req.K < 0 {
		h.writeError(r, w, fmt.Errorf("k must be positive: %w", domain.ErrInvalidInput))
		return
	}

	result, err := h.service.Ask(r.Context(), projectID, req.Query, req.K)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.AskResponse{
		Response:       result.Response,
		UsedSnippets:   result.UsedSnippets,
		TokensEstimate: result.TokensEstimate,
	})
}

// decodeBody parses a JSON request body. Malformed or oversized bodies map
// to validation errors.
func decodeBody(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large: %w", domain.ErrTextTooLarge)
		}
		return fmt.Errorf("malformed request body: %w", domain.ErrInvalidInput)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	httpErr := errmap.ToHTTPError(err)

	if httpErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	h.writeJSON(w, httpErr.StatusCode, api.ErrorResponse{
		Code:    httpErr.Code,
		Message: httpErr.Message,
	})
}
