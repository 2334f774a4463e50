// Package googleai provides a thin wrapper around the Google Gen AI SDK for embeddings (Gemini API).
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/genai"
)

var (
	// ErrInvalidDims is returned when dimensions do not fit the API's int32 field.
	ErrInvalidDims = errors.New("googleai: embedding dimensions out of range")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const defaultModel = "gemini-embedding-001"

// Client calls the Gemini embeddings API via the Google Gen AI SDK.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested output dimensionality. 0 keeps the model default.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name (e.g. gemini-embedding-001). Empty uses default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a Gemini embeddings client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(client)
	}

	if client.dimensions < 0 || client.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client.client = genaiClient

	return client, nil
}

// CreateEmbedding returns the raw embedding vector for input using the configured model.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	embedCfg := &genai.EmbedContentConfig{}
	if c.dimensions > 0 {
		//nolint:gosec // G115: bounded by math.MaxInt32 in NewClient
		dim := int32(c.dimensions)
		embedCfg.OutputDimensionality = &dim
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0].Values
	if c.dimensions > 0 && len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	copy(out, emb)

	return out, nil
}
