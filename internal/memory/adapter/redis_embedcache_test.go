package adapter_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/memory/adapter"
	redisclient "github.com/memora-labs/memora/internal/redis"
)

type countingEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.vec, nil
}

func newTestCachedEmbedder(t *testing.T, inner *countingEmbedder) (*adapter.CachedEmbedder, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redisclient.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	return adapter.NewCachedEmbedder(inner, client.RDB, slog.Default()), mr
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("first call hits the model, second hits the cache", func(t *testing.T) {
		inner := &countingEmbedder{vec: []float32{0.5, 0.25}}
		cached, _ := newTestCachedEmbedder(t, inner)

		first, err := cached.Embed(ctx, "favorite wine is malbec")
		require.NoError(t, err)

		second, err := cached.Embed(ctx, "favorite wine is malbec")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls, "identical text should embed once")
	})

	t.Run("different texts embed separately", func(t *testing.T) {
		inner := &countingEmbedder{vec: []float32{1}}
		cached, _ := newTestCachedEmbedder(t, inner)

		_, err := cached.Embed(ctx, "text a")
		require.NoError(t, err)
		_, err = cached.Embed(ctx, "text b")
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls)
	})

	t.Run("cache entries expire", func(t *testing.T) {
		inner := &countingEmbedder{vec: []float32{1}}
		cached, mr := newTestCachedEmbedder(t, inner)

		_, err := cached.Embed(ctx, "text")
		require.NoError(t, err)

		mr.FastForward(domain.EmbeddingCacheTTL + time.Second)

		_, err = cached.Embed(ctx, "text")
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls, "expired entry should re-embed")
	})

	t.Run("redis outage degrades to a direct model call", func(t *testing.T) {
		inner := &countingEmbedder{vec: []float32{1, 2}}
		cached, mr := newTestCachedEmbedder(t, inner)
		mr.Close()

		vec, err := cached.Embed(ctx, "text")

		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, vec)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("model failure propagates and caches nothing", func(t *testing.T) {
		inner := &countingEmbedder{err: errors.New("quota exceeded")}
		cached, mr := newTestCachedEmbedder(t, inner)

		_, err := cached.Embed(ctx, "text")

		require.Error(t, err)
		assert.Empty(t, mr.Keys(), "failed embeds must not be cached")
	})
}
