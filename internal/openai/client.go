// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings.
// Any OpenAI-compatible embeddings endpoint works (text-embeddings-inference, Ollama, vLLM)
// by pointing the base URL at it.
package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
	// ErrMissingModel is returned by NewClient when no model is configured.
	ErrMissingModel = errors.New("openai: model is required")
)

// Client calls an OpenAI-compatible embeddings API via the official SDK.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// clientConfig collects options before the SDK client is built.
type clientConfig struct {
	apiKey     string
	baseURL    string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

// WithAPIKey sets the bearer token. Local inference servers usually need none.
func WithAPIKey(key string) ClientOption {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithBaseURL points the SDK at a different OpenAI-compatible server.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithDimensions requests a specific output dimension. 0 leaves the model's native size.
func WithDimensions(dim int) ClientOption {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// NewClient creates an embeddings client for model.
func NewClient(model string, opts ...ClientOption) (*Client, error) {
	if model == "" {
		return nil, ErrMissingModel
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var sdkOpts []option.RequestOption
	if cfg.apiKey != "" {
		sdkOpts = append(sdkOpts, option.WithAPIKey(cfg.apiKey))
	}

	if cfg.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(cfg.baseURL))
	}

	// Single attempt: callers surface failures immediately.
	sdkOpts = append(sdkOpts, option.WithMaxRetries(0))

	return &Client{
		sdk:        openaisdk.NewClient(sdkOpts...),
		model:      model,
		dimensions: cfg.dimensions,
	}, nil
}

// CreateEmbedding returns the raw (not normalized) embedding vector for input.
// When dimensions were requested the response length is checked against them.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model: openaisdk.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if c.dimensions > 0 && len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}
