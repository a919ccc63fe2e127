package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/dynamo"
)

// ---------------------------------------------------------------------------
// Stub — implements chunkDynamoDB for unit tests.
// ---------------------------------------------------------------------------

type stubChunkDynamo struct {
	putItemFn func(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	queryFn   func(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
}

func (s *stubChunkDynamo) PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error) {
	return s.putItemFn(ctx, params, optFns...)
}

func (s *stubChunkDynamo) Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error) {
	return s.queryFn(ctx, params, optFns...)
}

var _ chunkDynamoDB = (*stubChunkDynamo)(nil)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const chunksTable = "memory_chunks"

func sampleChunkItem() chunkItem {
	return chunkItem{
		ProjectID: "proj-42",
		ChunkID:   "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		Text:      "favorite wine is malbec",
		Tags:      []string{"taste"},
		Embedding: []float32{0.1, 0.2, 0.3},
		CreatedAt: "2026-03-01T09:00:00Z",
	}
}

// ---------------------------------------------------------------------------
// Tests — Upsert
// ---------------------------------------------------------------------------

func TestChunkStore_Upsert(t *testing.T) {
	ctx := context.Background()
	chunk := domain.MemoryChunk{
		ProjectID: domain.MustProjectID("proj-42"),
		ChunkID:   domain.MustChunkID("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		Text:      "favorite wine is malbec",
		Tags:      []string{"taste"},
		Embedding: []float32{0.1, 0.2, 0.3},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	t.Run("marshals the chunk into the table", func(t *testing.T) {
		var captured *dynamo.PutItemInput
		db := &stubChunkDynamo{
			putItemFn: func(_ context.Context, params *dynamo.PutItemInput, _ ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error) {
				captured = params
				return &dynamo.PutItemOutput{}, nil
			},
		}
		store := NewChunkStore(db, chunksTable)

		err := store.Upsert(ctx, chunk)

		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Equal(t, chunksTable, *captured.TableName)

		var item chunkItem
		require.NoError(t, dynamo.UnmarshalMap(captured.Item, &item))
		assert.Equal(t, sampleChunkItem(), item)
	})

	t.Run("dynamo error wraps with context", func(t *testing.T) {
		db := &stubChunkDynamo{
			putItemFn: func(_ context.Context, _ *dynamo.PutItemInput, _ ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error) {
				return nil, errors.New("throttled")
			},
		}
		store := NewChunkStore(db, chunksTable)

		err := store.Upsert(ctx, chunk)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk store: put chunk")
	})
}

// ---------------------------------------------------------------------------
// Tests — ListByProject
// ---------------------------------------------------------------------------

func TestChunkStore_ListByProject(t *testing.T) {
	ctx := context.Background()
	projectID := domain.MustProjectID("proj-42")

	t.Run("queries by partition key with the given limit", func(t *testing.T) {
		var captured *dynamo.QueryInput
		db := &stubChunkDynamo{
			queryFn: func(_ context.Context, params *dynamo.QueryInput, _ ...func(*dynamo.Options)) (*dynamo.QueryOutput, error) {
				captured = params
				av, err := dynamo.MarshalMap(sampleChunkItem())
				require.NoError(t, err)
				return &dynamo.QueryOutput{Items: []map[string]dynamo.AttributeValue{av}}, nil
			},
		}
		store := NewChunkStore(db, chunksTable)

		chunks, err := store.ListByProject(ctx, projectID, 128)

		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Equal(t, chunksTable, *captured.TableName)
		require.NotNil(t, captured.Limit)
		assert.Equal(t, int32(128), *captured.Limit)
		assert.NotNil(t, captured.KeyConditionExpression)

		require.Len(t, chunks, 1)
		assert.Equal(t, projectID, chunks[0].ProjectID)
		assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", chunks[0].ChunkID.String())
		assert.Equal(t, "favorite wine is malbec", chunks[0].Text)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, chunks[0].Embedding)
		assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), chunks[0].CreatedAt)
	})

	t.Run("empty project returns empty slice", func(t *testing.T) {
		db := &stubChunkDynamo{
			queryFn: func(_ context.Context, _ *dynamo.QueryInput, _ ...func(*dynamo.Options)) (*dynamo.QueryOutput, error) {
				return &dynamo.QueryOutput{}, nil
			},
		}
		store := NewChunkStore(db, chunksTable)

		chunks, err := store.ListByProject(ctx, projectID, 128)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("dynamo error wraps with context", func(t *testing.T) {
		db := &stubChunkDynamo{
			queryFn: func(_ context.Context, _ *dynamo.QueryInput, _ ...func(*dynamo.Options)) (*dynamo.QueryOutput, error) {
				return nil, errors.New("table missing")
			},
		}
		store := NewChunkStore(db, chunksTable)

		_, err := store.ListByProject(ctx, projectID, 128)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk store: query project")
	})

	t.Run("malformed chunk id fails the read", func(t *testing.T) {
		db := &stubChunkDynamo{
			queryFn: func(_ context.Context, _ *dynamo.QueryInput, _ ...func(*dynamo.Options)) (*dynamo.QueryOutput, error) {
				item := sampleChunkItem()
				item.ChunkID = "not-a-uuid"
				av, err := dynamo.MarshalMap(item)
				require.NoError(t, err)
				return &dynamo.QueryOutput{Items: []map[string]dynamo.AttributeValue{av}}, nil
			},
		}
		store := NewChunkStore(db, chunksTable)

		_, err := store.ListByProject(ctx, projectID, 128)

		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})
}
