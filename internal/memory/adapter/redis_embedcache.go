package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/memory/app"
	redisclient "github.com/memora-labs/memora/internal/redis"
)

// Compile-time interface satisfaction check.
var _ app.Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder decorates an Embedder with a Redis read-through cache.
// Identical texts hit the model exactly once per TTL window. Cache failures
// are logged and degrade to a direct model call, never to a request failure.
type CachedEmbedder struct {
	inner  app.Embedder
	cmd    redisclient.Cmdable
	logger *slog.Logger
}

// NewCachedEmbedder creates a CachedEmbedder wrapping inner.
func NewCachedEmbedder(inner app.Embedder, cmd redisclient.Cmdable, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{inner: inner, cmd: cmd, logger: logger}
}

// Embed returns the cached vector for text, or calls the inner embedder and
// caches the result under the text's hash.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "redis.embedcache.embed")
	defer span.End()

	key := embedCacheKey(text)

	cached, err := e.cmd.Get(ctx, key).Result()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(cached), &vec); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return vec, nil
		}
		// Corrupt entry: fall through and overwrite it.
		e.logger.WarnContext(ctx, "corrupt embedding cache entry", slog.String("key", key))
	case errors.Is(err, redisclient.Nil):
		// Cache miss.
	default:
		e.logger.WarnContext(ctx, "embedding cache read failed", slog.Any("error", err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("embed cache: marshal vector: %w", err)
	}
	if err := e.cmd.Set(ctx, key, payload, domain.EmbeddingCacheTTL).Err(); err != nil {
		e.logger.WarnContext(ctx, "embedding cache write failed", slog.Any("error", err))
	}

	return vec, nil
}

// embedCacheKey hashes text so arbitrary user content never becomes a raw
// Redis key.
func embedCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}
