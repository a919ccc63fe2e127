package port_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/memory/adapter"
	"github.com/memora-labs/memora/internal/memory/app"
	"github.com/memora-labs/memora/internal/memory/port"
	"github.com/memora-labs/memora/pkg/api"
)

// memChunkStore keeps chunks in memory for handler tests.
type memChunkStore struct {
	chunks []domain.MemoryChunk
}

func (s *memChunkStore) Upsert(_ context.Context, chunk domain.MemoryChunk) error {
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *memChunkStore) ListByProject(_ context.Context, projectID domain.ProjectID, _ int32) ([]domain.MemoryChunk, error) {
	var out []domain.MemoryChunk
	for _, c := range s.chunks {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

type denyLimiter struct{}

func (denyLimiter) CheckAndIncrement(context.Context, string, int, int) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T, opts ...func(*app.MemoryServiceConfig)) *httptest.Server {
	t.Helper()

	cfg := app.MemoryServiceConfig{
		Chunks:    &memChunkStore{},
		Embedder:  adapter.NewStaticEmbedder(),
		Generator: adapter.NewStaticGenerator(nil),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler := port.NewHandler(app.NewMemoryService(cfg), nil, port.HealthInfo{
		App:           "memora",
		MemoryTable:   "memory_chunks",
		ModelLocation: "us-central1",
	})
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeError(t *testing.T, body []byte) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	return errResp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "memora", health.App)
	assert.Equal(t, "memory_chunks", health.MemoryTable)
	assert.Equal(t, "us-central1", health.ModelLocation)
}

func TestOpenAPI(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc, "openapi")
	assert.Contains(t, doc, "paths")
}

func TestIngest(t *testing.T) {
	t.Run("stores chunks and reports the count", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := postJSON(t, srv.URL+"/ingest", api.IngestRequest{
			ProjectID: "p1",
			Text:      "my favorite wine is malbec",
			Tags:      []string{"taste"},
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.IngestResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, 1, out.IngestedChunks)
	})

	t.Run("missing project id is a 400", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := postJSON(t, srv.URL+"/ingest", api.IngestRequest{Text: "hi"})

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, body).Code)
	})

	t.Run("blank text is a 400", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := postJSON(t, srv.URL+"/ingest", api.IngestRequest{ProjectID: "p1", Text: "  "})

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, body).Code)
	})

	t.Run("malformed JSON is a 400", func(t *testing.T) {
		srv := newTestServer(t)

		resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		srv := newTestServer(t)

		resp, err := http.Post(srv.URL+"/ingest", "application/json",
			strings.NewReader(`{"project_id":"p1","text":"hi","nope":true}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAsk(t *testing.T) {
	t.Run("answers from ingested memory", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := postJSON(t, srv.URL+"/ingest", api.IngestRequest{
			ProjectID: "p1",
			Text:      "my favorite wine is malbec",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := postJSON(t, srv.URL+"/ask", api.AskRequest{
			ProjectID: "p1",
			Query:     "what wine do I like",
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.AskResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.NotEmpty(t, out.Response)
		assert.Equal(t, 1, out.UsedSnippets)
		assert.Positive(t, out.TokensEstimate)
	})

	t.Run("projects are isolated", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := postJSON(t, srv.URL+"/ingest", api.IngestRequest{
			ProjectID: "p1",
			Text:      "my favorite wine is malbec",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := postJSON(t, srv.URL+"/ask", api.AskRequest{
			ProjectID: "p2",
			Query:     "what wine do I like",
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.AskResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Zero(t, out.UsedSnippets, "p2 must not see p1 memories")
	})

	t.Run("negative k is a 400", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := postJSON(t, srv.URL+"/ask", api.AskRequest{
			ProjectID: "p1",
			Query:     "q",
			K:         -1,
		})

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, body).Code)
	})

	t.Run("rate limited projects get a 429", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *app.MemoryServiceConfig) {
			cfg.Limiter = denyLimiter{}
		})

		resp, body := postJSON(t, srv.URL+"/ask", api.AskRequest{
			ProjectID: "p1",
			Query:     "q",
		})

		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "RATE_LIMITED", decodeError(t, body).Code)
	})
}
