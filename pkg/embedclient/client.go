// Package embedclient is a Go client for the embedding service.
package embedclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/knowledgebase/vectorhub/pkg/apiclient"
)

// StatusError is returned for non-2xx answers.
type StatusError = apiclient.StatusError

// Options configures the client. See apiclient.Options.
type Options = apiclient.Options

// EmbedRequest is the body of POST /embed.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse is the answer of POST /embed: a unit-norm vector and the model that produced it.
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// HealthResponse is the answer of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Client calls the embedding service.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a client for the embedding service at baseURL with default options
// (30 second timeout, no retries).
func NewClient(baseURL string) *Client {
	return NewClientWithOptions(Options{BaseURL: baseURL})
}

// NewClientWithOptions creates a client with custom options.
func NewClientWithOptions(opts Options) *Client {
	return &Client{api: apiclient.New(opts)}
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	var out EmbedResponse
	if err := c.api.Do(ctx, http.MethodPost, "/embed", EmbedRequest{Text: text}, &out); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return &out, nil
}

// CreateEmbedding returns only the vector of Embed, so the client can stand in wherever a plain
// embedding provider is expected.
func (c *Client) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	return resp.Embedding, nil
}

// Health reports liveness and the loaded model.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.api.Do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}

	return &out, nil
}
