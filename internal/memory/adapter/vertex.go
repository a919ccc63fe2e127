package adapter

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/auth/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/memora-labs/memora/internal/domain"
	"github.com/memora-labs/memora/internal/memory/app"
)

// Compile-time interface satisfaction checks.
var _ app.Embedder = (*VertexModels)(nil)
var _ app.Generator = (*VertexModels)(nil)

// VertexConfig holds the parameters for the Vertex AI model adapter.
type VertexConfig struct {
	// Project is the GCP project ID.
	Project string

	// Location is the Vertex AI region (e.g. "us-central1").
	Location string

	// CredentialsFile is the path to a service account key file. When empty,
	// application default credentials are used.
	CredentialsFile string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// GenerationModel is the generative model name.
	GenerationModel string
}

// VertexModels implements the Embedder and Generator interfaces on top of
// Vertex AI. The client is created lazily on first use so the service can
// start and serve health checks before credentials are resolvable; a
// credential problem surfaces as ErrCredentialUnavailable on the first
// model call instead of failing startup.
type VertexModels struct {
	cfg VertexConfig

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewVertexModels creates a VertexModels adapter. No network calls or
// credential reads happen until the first Embed or Generate.
func NewVertexModels(cfg VertexConfig) *VertexModels {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "gemini-2.0-flash-001"
	}
	return &VertexModels{cfg: cfg}
}

// init resolves credentials and builds the genai client exactly once.
func (v *VertexModels) init(ctx context.Context) (*genai.Client, error) {
	v.once.Do(func() {
		clientCfg := &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  v.cfg.Project,
			Location: v.cfg.Location,
		}

		if v.cfg.CredentialsFile != "" {
			creds, err := credentials.DetectDefault(&credentials.DetectOptions{
				CredentialsFile: v.cfg.CredentialsFile,
				Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
			})
			if err != nil {
				v.initErr = fmt.Errorf("vertex: load credentials %q: %v: %w",
					v.cfg.CredentialsFile, err, domain.ErrCredentialUnavailable)
				return
			}
			clientCfg.Credentials = creds
		}

		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			v.initErr = fmt.Errorf("vertex: create client: %v: %w", err, domain.ErrCredentialUnavailable)
			return
		}
		v.client = client
	})

	return v.client, v.initErr
}

// Embed returns the embedding vector for text.
func (v *VertexModels) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "vertex.embed")
	defer span.End()
	span.SetAttributes(attribute.String("gen_ai.request.model", v.cfg.EmbeddingModel))

	client, err := v.init(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, domain.ModelTimeout)
	defer cancel()

	resp, err := client.Models.EmbedContent(ctx, v.cfg.EmbeddingModel,
		genai.Text(text),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr[int32](domain.EmbeddingDims),
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("vertex: embed content: %v: %w", err, domain.ErrEmbeddingFailed)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("vertex: empty embedding response: %w", domain.ErrEmbeddingFailed)
	}

	return resp.Embeddings[0].Values, nil
}

// Generate returns the model completion for prompt.
func (v *VertexModels) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "vertex.generate")
	defer span.End()
	span.SetAttributes(attribute.String("gen_ai.request.model", v.cfg.GenerationModel))

	client, err := v.init(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, domain.ModelTimeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(ctx, v.cfg.GenerationModel,
		genai.Text(prompt), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("vertex: generate content: %v: %w", err, domain.ErrGenerationFailed)
	}

	answer := resp.Text()
	if answer == "" {
		return "", fmt.Errorf("vertex: empty completion: %w", domain.ErrGenerationFailed)
	}

	return answer, nil
}
