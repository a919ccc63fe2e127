package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/memora-labs/memora/internal/kafka"
	"github.com/memora-labs/memora/internal/memory/app"
)

// Compile-time interface satisfaction check.
var _ app.EventPublisher = (*KafkaEventPublisher)(nil)

// KafkaEventPublisher announces ingest events on a Kafka topic.
// Messages are keyed by project ID so all events for one project land on
// one partition in order.
type KafkaEventPublisher struct {
	writer kafka.MessageWriter
}

// NewKafkaEventPublisher creates a publisher producing through writer.
func NewKafkaEventPublisher(writer kafka.MessageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

// MemoryIngested produces one JSON-encoded event message.
func (p *KafkaEventPublisher) MemoryIngested(ctx context.Context, event app.IngestedEvent) error {
	ctx, span := tracer.Start(ctx, "kafka.events.memory_ingested")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.operation", "publish"),
	)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka events: marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProjectID),
		Value: payload,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("kafka events: publish ingest event: %w", err)
	}

	return nil
}
