package adapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/memory/app"
)

// Compile-time interface satisfaction checks.
var _ app.Embedder = (*StaticEmbedder)(nil)
var _ app.Generator = (*StaticGenerator)(nil)

// StaticEmbedder is a fake Embedder for local development and testing.
// It derives a deterministic unit vector from the text's word hashes, so
// texts sharing words produce similar vectors and retrieval stays
// exercisable without a model backend.
type StaticEmbedder struct{}

// NewStaticEmbedder creates a StaticEmbedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed returns a deterministic vector of EmbeddingDims dimensions.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, domain.EmbeddingDims)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%domain.EmbeddingDims] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec, nil
}

// StaticGenerator is a fake Generator for local development and testing.
// It logs the prompt and echoes back a canned completion instead of calling
// a real model.
type StaticGenerator struct {
	logger *slog.Logger
}

// NewStaticGenerator creates a StaticGenerator that writes prompts to the
// given structured logger.
func NewStaticGenerator(logger *slog.Logger) *StaticGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticGenerator{logger: logger}
}

// Generate logs the prompt and returns a deterministic completion that
// echoes the prompt's "User question:" line, falling back to the last
// non-empty line for prompts without one.
func (g *StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.logger.InfoContext(ctx, "generation (log-only)",
		slog.Int("prompt_chars", len(prompt)),
	)

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	echo := lines[len(lines)-1]
	for _, line := range lines {
		if strings.HasPrefix(line, "User question:") {
			echo = line
			break
		}
	}

	return fmt.Sprintf("[local] no model configured; %s", echo), nil
}
