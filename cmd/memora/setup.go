package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memora-labs/memora/internal/config"
	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/dynamo"
	"github.com/memora-labs/memora/internal/kafka"
	"github.com/memora-labs/memora/internal/memory/adapter"
	"github.com/memora-labs/memora/internal/memory/app"
	"github.com/memora-labs/memora/internal/memory/port"
	"github.com/memora-labs/memora/internal/redis"
	"github.com/memora-labs/memora/internal/server"
)

// setup is the memora service composition root. It creates infrastructure
// clients, adapters, the memory service, and mounts the HTTP API.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Infrastructure clients.
	dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
		Endpoint: cfg.DynamoDB.Endpoint,
		Region:   cfg.AWS.Region,
		Timeout:  cfg.DynamoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("memora setup: create dynamo client: %w", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	// 2. Adapters.
	chunkStore := adapter.NewChunkStore(dynamoClient.DB, cfg.Memory.Table)
	rateLimiter := adapter.NewRateLimiter(redisClient.RDB)

	// 3. Model providers (environment-dependent), embedding cache on top.
	embedder, generator := createModels(cfg, logger)
	cachedEmbedder := adapter.NewCachedEmbedder(embedder, redisClient.RDB, logger)

	// 4. Ingest event publication; disabled when no brokers are configured.
	var events app.EventPublisher
	var kafkaClient *kafka.Client
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient = kafka.NewClient(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Timeout: domain.KafkaTimeout,
		})
		events = adapter.NewKafkaEventPublisher(kafkaClient.Writer)
	} else {
		logger.Info("no kafka brokers configured, ingest events disabled")
	}

	// 5. Memory service.
	memorySvc := app.NewMemoryService(app.MemoryServiceConfig{
		Chunks:    chunkStore,
		Embedder:  cachedEmbedder,
		Generator: generator,
		Limiter:   rateLimiter,
		Events:    events,
		Clock:     domain.RealClock{},
		Logger:    logger,
	})

	// 6. Mount the HTTP API.
	handler := port.NewHandler(memorySvc, logger, port.HealthInfo{
		App:           "memora",
		MemoryTable:   cfg.Memory.Table,
		ModelLocation: cfg.GCP.Location,
	})
	deps.HTTPMux.Handle("/", handler.Routes())

	logger.InfoContext(ctx, "memora memory service initialized",
		slog.String("memory_table", cfg.Memory.Table),
		slog.Bool("events_enabled", events != nil),
	)

	cleanup := func(_ context.Context) error {
		if kafkaClient != nil {
			if err := kafkaClient.Close(); err != nil {
				return fmt.Errorf("close kafka producer: %w", err)
			}
		}
		return redisClient.Close()
	}

	return cleanup, nil
}

// createModels returns the embedder and generator for the environment.
// Local: deterministic in-process fakes (no GCP dependency).
// Production: Vertex AI, with credentials resolved lazily on first call.
func createModels(cfg *config.Config, logger *slog.Logger) (app.Embedder, app.Generator) {
	if cfg.IsLocal() && cfg.GCP.Project == "" {
		logger.Info("using static models for local development")
		return adapter.NewStaticEmbedder(), adapter.NewStaticGenerator(logger)
	}

	vertex := adapter.NewVertexModels(adapter.VertexConfig{
		Project:         cfg.GCP.Project,
		Location:        cfg.GCP.Location,
		CredentialsFile: cfg.GCP.Credentials,
	})
	return vertex, vertex
}
