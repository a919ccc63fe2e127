// Package adapter contains implementations of interfaces defined in app.
// DynamoDB, Redis, Kafka and Vertex AI adapters live here.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("memory/adapter")
