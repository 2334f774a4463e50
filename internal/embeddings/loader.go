package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/googleai"
	"github.com/knowledgebase/vectorhub/internal/openai"
)

// Supported values of EMBEDDING_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderHash   = "hash"
)

// warmupText is embedded once at load time to prove the model answers and to learn its dimension.
const warmupText = "embedding model warm-up"

var (
	// ErrUnsupportedProvider is returned for an unknown EMBEDDING_PROVIDER.
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	// ErrEmptyEmbedding is returned when the warm-up embedding has no values.
	ErrEmptyEmbedding = errors.New("embedding model returned an empty vector")
)

// Model is a loaded, warmed-up embedding provider. It is built once per process and shared by all requests.
type Model struct {
	Client    Client
	Name      string
	Dimension int
}

// NewClient builds the provider client selected by cfg.EmbeddingProvider without calling it.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.EmbeddingProvider {
	case ProviderOpenAI:
		client, err := openai.NewClient(cfg.EmbeddingModel,
			openai.WithAPIKey(cfg.EmbeddingAPIKey),
			openai.WithBaseURL(cfg.EmbeddingAPIBaseURL),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai embedding client: %w", err)
		}

		return client, nil
	case ProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case ProviderHash:
		return NewHashClient(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.EmbeddingProvider)
	}
}

// Load builds the configured provider and warms it up once. Any error means the model is not usable
// and the embedding service must not start.
func Load(ctx context.Context, cfg *config.Config) (*Model, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return WarmUp(ctx, client, cfg.EmbeddingModel)
}

// WarmUp embeds warmupText with client and records the output dimension.
func WarmUp(ctx context.Context, client Client, name string) (*Model, error) {
	slog.InfoContext(ctx, "loading embedding model", "model", name)

	vec, err := client.CreateEmbedding(ctx, warmupText)
	if err != nil {
		return nil, fmt.Errorf("load embedding model %s: %w", name, err)
	}

	if len(vec) == 0 {
		return nil, fmt.Errorf("load embedding model %s: %w", name, ErrEmptyEmbedding)
	}

	slog.InfoContext(ctx, "embedding model loaded", "model", name, "dimension", len(vec))

	return &Model{Client: client, Name: name, Dimension: len(vec)}, nil
}
