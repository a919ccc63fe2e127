// Package app contains the memory service use cases: ingesting text into
// project-scoped memory and answering questions against it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/memora-labs/memora/internal/domain"
)

var tracer = otel.Tracer("memory/app")

var (
	chunksIngestedTotal   metric.Int64Counter
	questionsAskedTotal   metric.Int64Counter
	generationFailedTotal metric.Int64Counter
	rateLimitsTotal       metric.Int64Counter
	contextTokensUsed     metric.Int64Histogram
)

func init() {
	m := otel.Meter("memory/app")

	chunksIngestedTotal, _ = m.Int64Counter("memory_chunks_ingested_total",
		metric.WithDescription("Total memory chunks ingested"))
	questionsAskedTotal, _ = m.Int64Counter("memory_questions_asked_total",
		metric.WithDescription("Total questions asked"))
	generationFailedTotal, _ = m.Int64Counter("memory_generation_failures_total",
		metric.WithDescription("Total answer generation failures"))
	rateLimitsTotal, _ = m.Int64Counter("memory_rate_limits_total",
		metric.WithDescription("Total ask rate limit hits"))
	contextTokensUsed, _ = m.Int64Histogram("memory_context_tokens",
		metric.WithDescription("Estimated tokens of assembled context per question"))
}

// ChunkStore persists and retrieves memory chunks.
type ChunkStore interface {
	Upsert(ctx context.Context, chunk domain.MemoryChunk) error
	ListByProject(ctx context.Context, projectID domain.ProjectID, limit int32) ([]domain.MemoryChunk, error)
}

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a model completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RateLimiter enforces fixed-window request limits.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error)
}

// IngestedEvent describes one completed ingest operation.
type IngestedEvent struct {
	ProjectID string    `json:"project_id"`
	ChunkIDs  []string  `json:"chunk_ids"`
	Tags      []string  `json:"tags,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher announces ingests to downstream consumers.
type EventPublisher interface {
	MemoryIngested(ctx context.Context, event IngestedEvent) error
}

// AskResult is the outcome of answering one question.
type AskResult struct {
	Response       string
	UsedSnippets   int
	TokensEstimate int
}

// MemoryServiceConfig wires the dependencies of MemoryService.
type MemoryServiceConfig struct {
	Chunks    ChunkStore
	Embedder  Embedder
	Generator Generator
	Limiter   RateLimiter
	Events    EventPublisher
	Clock     domain.Clock
	Logger    *slog.Logger

	// Preamble is prepended to every generation prompt.
	Preamble string
}

// MemoryService implements the ingest and ask use cases.
type MemoryService struct {
	chunks    ChunkStore
	embedder  Embedder
	generator Generator
	limiter   RateLimiter
	events    EventPublisher
	clock     domain.Clock
	logger    *slog.Logger
	preamble  string
}

// NewMemoryService creates a MemoryService from cfg.
func NewMemoryService(cfg MemoryServiceConfig) *MemoryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &MemoryService{
		chunks:    cfg.Chunks,
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		limiter:   cfg.Limiter,
		events:    cfg.Events,
		clock:     clock,
		logger:    logger,
		preamble:  cfg.Preamble,
	}
}

// Ingest splits text into overlapping chunks, embeds each one, and stores
// them under the given project. Returns the number of chunks stored.
func (s *MemoryService) Ingest(ctx context.Context, projectID domain.ProjectID, text string, tags []string) (int, error) {
	ctx, span := tracer.Start(ctx, "memory.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("memory.project_id", projectID.String()))

	if projectID.IsZero() {
		return 0, fmt.Errorf("ingest: %w", domain.ErrEmptyID)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("ingest: empty text: %w", domain.ErrInvalidInput)
	}
	if len(text) > domain.MaxIngestTextSize {
		return 0, fmt.Errorf("ingest: %w", domain.ErrTextTooLarge)
	}
	if err := domain.ValidateTags(tags); err != nil {
		return 0, fmt.Errorf("ingest: tags: %w", err)
	}

	pieces := domain.SplitText(text)
	chunkIDs := make([]string, 0, len(pieces))
	now := s.clock.Now().UTC()
	for _, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return len(chunkIDs), fmt.Errorf("ingest: %w", err)
		}

		vec, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return len(chunkIDs), fmt.Errorf("ingest: embed chunk: %w", err)
		}

		chunk := domain.MemoryChunk{
			ProjectID: projectID,
			ChunkID:   domain.GenerateChunkID(),
			Text:      piece,
			Tags:      tags,
			Embedding: vec,
			CreatedAt: now,
		}
		if err := s.chunks.Upsert(ctx, chunk); err != nil {
			return len(chunkIDs), fmt.Errorf("ingest: store chunk: %w", err)
		}
		chunkIDs = append(chunkIDs, chunk.ChunkID.String())
	}

	chunksIngestedTotal.Add(ctx, int64(len(chunkIDs)))

	// Event publication is best-effort: the memories are already durable.
	if s.events != nil && len(chunkIDs) > 0 {
		event := IngestedEvent{
			ProjectID: projectID.String(),
			ChunkIDs:  chunkIDs,
			Tags:      tags,
			At:        s.clock.Now().UTC(),
		}
		if err := s.events.MemoryIngested(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "ingest event publication failed",
				slog.String("project_id", projectID.String()),
				slog.String("error", err.Error()))
		}
	}

	return len(chunkIDs), nil
}

// Ask answers a question against the project's stored memories.
// The retrieval pipeline: embed query, hybrid-rank a candidate pool,
// MMR-select diverse snippets, assemble context within the token budget,
// then generate.
func (s *MemoryService) Ask(ctx context.Context, projectID domain.ProjectID, query string, k int) (*AskResult, error) {
	ctx, span := tracer.Start(ctx, "memory.ask")
	defer span.End()
	span.SetAttributes(attribute.String("memory.project_id", projectID.String()))

	if projectID.IsZero() {
		return nil, fmt.Errorf("ask: %w", domain.ErrEmptyID)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("ask: empty query: %w", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = domain.DefaultRecallK
	}

	if s.limiter != nil {
		key := "ask:" + projectID.String()
		allowed, err := s.limiter.CheckAndIncrement(ctx, key, domain.AskRateLimit, int(domain.AskRateLimitWindow.Seconds()))
		if err != nil {
			// Fail closed: a broken limiter must not open the floodgates.
			return nil, fmt.Errorf("ask: rate limit check: %w", domain.ErrUnavailable)
		}
		if !allowed {
			rateLimitsTotal.Add(ctx, 1)
			return nil, fmt.Errorf("ask: project %q: %w", projectID.String(), domain.ErrRateLimited)
		}
	}

	questionsAskedTotal.Add(ctx, 1)

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ask: embed query: %w", err)
	}

	pool := k
	if pool < domain.MinCandidatePool {
		pool = domain.MinCandidatePool
	}
	candidates, err := s.chunks.ListByProject(ctx, projectID, domain.CandidateScanLimit)
	if err != nil {
		return nil, fmt.Errorf("ask: load candidates: %w", err)
	}

	ranked := rankHybrid(queryVec, query, candidates)
	if len(ranked) > pool {
		ranked = ranked[:pool]
	}

	keep := domain.MaxSelectedSnippets
	if keep > len(ranked) {
		keep = len(ranked)
	}
	selected := selectDiverse(queryVec, ranked, keep, domain.MMRLambda)
	contextText, included := assembleContext(selected, domain.TokenBudget)

	prompt := s.buildPrompt(contextText, query)
	contextTokensUsed.Record(ctx, int64(domain.ApproxTokenCount(contextText)))

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		generationFailedTotal.Add(ctx, 1)
		return nil, fmt.Errorf("ask: %w", err)
	}

	s.logger.DebugContext(ctx, "question answered",
		slog.String("project_id", projectID.String()),
		slog.Int("candidates", len(candidates)),
		slog.Int("used_snippets", len(selected)),
		slog.Int("context_snippets", included))

	// used_snippets reports the diversity-selected set, which can exceed the
	// count that fit in the context budget.
	return &AskResult{
		Response:       strings.TrimSpace(answer),
		UsedSnippets:   len(selected),
		TokensEstimate: domain.ApproxTokenCount(prompt),
	}, nil
}

// buildPrompt renders the generation prompt. Memories are presented as
// stored snippets; when none were retrieved the model is told so instead of
// being handed an empty block.
func (s *MemoryService) buildPrompt(contextText, query string) string {
	memories := contextText
	if memories == "" {
		memories = "[No prior memory found yet]"
	}

	var b strings.Builder
	if s.preamble != "" {
		b.WriteString(s.preamble)
		b.WriteString("\n\n")
	}
	b.WriteString("You are Memora, an assistant that remembers user facts across sessions.\n")
	b.WriteString("Below are pieces of information you've previously stored in your memory.\n")
	b.WriteString("Use all relevant ones to answer the question.\n\n")
	b.WriteString("Stored memory snippets:\n")
	b.WriteString(memories)
	b.WriteString("\n\nUser question: ")
	b.WriteString(query)
	b.WriteString("\n\nIf multiple memories are relevant, combine them naturally.\n")
	b.WriteString("If something seems unrelated, ignore it politely.\n")
	return b.String()
}
