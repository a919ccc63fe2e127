package domain

import "time"

// Normative limits for memory ingestion and retrieval.
// These are compiled defaults that can be overridden via configuration.
const (
	// Ingestion limits
	MaxIngestTextSize = 256 * 1024 // 256 KB max raw text per ingest request
	MaxTagsPerChunk   = 16         // Max tags attached to a single chunk
	MaxTagLength      = 64         // Max length of a single tag

	// Chunking (character windows; ~4 chars per token)
	ChunkSize    = 1200 // Characters per chunk window
	ChunkOverlap = 200  // Characters shared between adjacent windows

	// Embedding model contract
	EmbeddingDims = 768 // text-embedding-004 output dimensionality

	// Retrieval
	DefaultRecallK      = 8   // Default k when the client omits it
	MinCandidatePool    = 15  // Floor for the hybrid retrieval candidate pool
	MaxSelectedSnippets = 10  // MMR keeps at most this many diverse snippets
	MMRLambda           = 0.5 // Relevance/diversity trade-off for MMR
	RRFRankConstant     = 20  // Reciprocal-rank fusion dampening constant
	LexicalBoost        = 2.0 // Lexical ranking weight relative to vector ranking
	CandidateScanLimit  = 512 // Max stored chunks scanned per project per query

	// Context assembly
	TokenBudget        = 1800 // Max estimated tokens of retrieved context
	CharsPerTokenGuess = 4    // Estimation ratio for token accounting

	// Rate limiting (per project, fixed window)
	AskRateLimit       = 30          // Max /ask requests per project per window
	AskRateLimitWindow = time.Minute // Rate limit window for /ask

	// Embedding cache
	EmbeddingCacheTTL = 24 * time.Hour // Redis TTL for cached embeddings

	// Timeout contracts
	DynamoDBTimeout = 5 * time.Second  // Max time for DynamoDB operations
	RedisTimeout    = 2 * time.Second  // Max time for Redis operations
	ModelTimeout    = 30 * time.Second // Max time for embedding/generation calls
	KafkaTimeout    = 10 * time.Second // Max time for event publication

	// Graceful shutdown
	ShutdownDrainDelay  = 2 * time.Second  // Let load balancers observe the 503 first
	ShutdownHTTPTimeout = 10 * time.Second // Max time to drain in-flight requests
	ShutdownOTELTimeout = 5 * time.Second  // Max time to flush telemetry

	GracefulShutdownTimeout = 30 * time.Second // Total shutdown budget
)
