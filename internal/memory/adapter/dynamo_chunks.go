package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/dynamo"
	"github.com/memora-labs/memora/internal/memory/app"
)

// chunkDynamoDB is a narrow, consumer-defined interface for DynamoDB
// operations required by the chunk store. Only the methods this adapter calls
// are declared. The *dynamodb.Client satisfies this interface (optFns is
// variadic so callers may omit it), and test stubs implement it directly.
type chunkDynamoDB interface {
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
}

// chunkItem is the DynamoDB item shape for the memory_chunks table.
// Struct tags drive attributevalue.MarshalMap / UnmarshalMap serialization.
type chunkItem struct {
	ProjectID string    `dynamodbav:"project_id"`
	ChunkID   string    `dynamodbav:"chunk_id"`
	Text      string    `dynamodbav:"text"`
	Tags      []string  `dynamodbav:"tags,omitempty"`
	Embedding []float32 `dynamodbav:"embedding"`
	CreatedAt string    `dynamodbav:"created_at"`
}

// Compile-time interface satisfaction check.
var _ app.ChunkStore = (*ChunkStore)(nil)

// ChunkStore persists memory chunks in DynamoDB.
// The table is keyed on project_id (partition) and chunk_id (sort), so all
// chunks of one project live in one item collection and a single Query
// retrieves the candidate pool.
type ChunkStore struct {
	db        chunkDynamoDB
	tableName string
}

// NewChunkStore creates a ChunkStore backed by the given DynamoDB client.
func NewChunkStore(db chunkDynamoDB, tableName string) *ChunkStore {
	return &ChunkStore{
		db:        db,
		tableName: tableName,
	}
}

// Upsert writes chunk to the table, replacing any item with the same key.
func (s *ChunkStore) Upsert(ctx context.Context, chunk domain.MemoryChunk) error {
	ctx, span := tracer.Start(ctx, "dynamo.chunks.upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	item, err := dynamo.MarshalMap(chunkItem{
		ProjectID: chunk.ProjectID.String(),
		ChunkID:   chunk.ChunkID.String(),
		Text:      chunk.Text,
		Tags:      chunk.Tags,
		Embedding: chunk.Embedding,
		CreatedAt: chunk.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("chunk store: marshal chunk: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("chunk store: put chunk: %w", err)
	}

	return nil
}

// ListByProject returns up to limit chunks stored under projectID.
// Returns an empty slice (not an error) when the project has no chunks.
func (s *ChunkStore) ListByProject(ctx context.Context, projectID domain.ProjectID, limit int32) ([]domain.MemoryChunk, error) {
	ctx, span := tracer.Start(ctx, "dynamo.chunks.list_by_project")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "Query"),
	)

	keyCond := dynamo.Key("project_id").Equal(dynamo.Value(projectID.String()))
	expr, err := dynamo.NewExpressionBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("chunk store: build query expression: %w", err)
	}

	out, err := s.db.Query(ctx, &dynamo.QueryInput{
		TableName:                 &s.tableName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     dynamo.Int32(limit),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chunk store: query project %q: %w", projectID.String(), err)
	}

	var items []chunkItem
	if err := dynamo.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("chunk store: unmarshal chunks: %w", err)
	}

	chunks := make([]domain.MemoryChunk, 0, len(items))
	for _, item := range items {
		chunkID, err := domain.NewChunkID(item.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("chunk store: invalid chunk id %q: %w", item.ChunkID, err)
		}
		createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("chunk store: invalid created_at %q: %w", item.CreatedAt, err)
		}
		chunks = append(chunks, domain.MemoryChunk{
			ProjectID: projectID,
			ChunkID:   chunkID,
			Text:      item.Text,
			Tags:      item.Tags,
			Embedding: item.Embedding,
			CreatedAt: createdAt,
		})
	}

	return chunks, nil
}
