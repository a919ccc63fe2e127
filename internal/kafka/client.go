// Package kafka provides a shared Kafka writer factory.
// Only this package may import segmentio/kafka-go — adapters use the
// re-exported types and the MessageWriter interface defined here.
package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Message is the Kafka message type re-exported for adapters.
type Message = kafkago.Message

// MessageWriter is a narrow, consumer-defined interface for producing
// messages. The *kafkago.Writer satisfies this interface.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...Message) error
}

// Config holds Kafka producer parameters.
type Config struct {
	// Brokers is the bootstrap broker list. Must be non-empty.
	Brokers []string

	// Topic is the default topic messages are produced to.
	Topic string

	// Timeout bounds a single produce batch.
	Timeout time.Duration
}

// Client wraps a kafka-go writer. The Writer field satisfies MessageWriter
// and is the handle adapters use for produce operations.
type Client struct {
	Writer *kafkago.Writer
}

// NewClient creates a Kafka producer client configured from cfg.
// Acks from all in-sync replicas are required; messages hash on their key so
// all events for one project land on one partition.
func NewClient(cfg Config) *Client {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: kafkago.RequireAll,
		Balancer:     &kafkago.Hash{},
	}
	if cfg.Timeout > 0 {
		w.WriteTimeout = cfg.Timeout
	}

	return &Client{Writer: w}
}

// Close flushes pending messages and releases the producer.
func (c *Client) Close() error {
	return c.Writer.Close()
}
