// Package vectorclient is a Go client for the vector service.
package vectorclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/knowledgebase/vectorhub/pkg/apiclient"
)

// StatusError is returned for non-2xx answers.
type StatusError = apiclient.StatusError

// Options configures the client. See apiclient.Options.
type Options = apiclient.Options

// SearchRequest is the body of POST /search. Limit 0 means the server default; an empty
// KnowledgeBaseID searches every knowledge base.
type SearchRequest struct {
	Query           string `json:"query"`
	Limit           int    `json:"limit,omitempty"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
}

// SearchResult is one hit, best first.
type SearchResult struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// SearchResponse is the answer of POST /search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// StoreRequest is the body of POST /store.
type StoreRequest struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// StatusResponse is the answer of store and delete.
type StatusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HealthResponse is the answer of GET /health. Status is "error" when the index engine is unreachable.
type HealthResponse struct {
	Status      string `json:"status"`
	Collections *int   `json:"collections,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Client calls the vector service.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a client for the vector service at baseURL with default options.
func NewClient(baseURL string) *Client {
	return NewClientWithOptions(Options{BaseURL: baseURL})
}

// NewClientWithOptions creates a client with custom options.
func NewClientWithOptions(opts Options) *Client {
	return &Client{api: apiclient.New(opts)}
}

// Search runs a text query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.api.Do(ctx, http.MethodPost, "/search", req, &out); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return &out, nil
}

// Store upserts one point.
func (c *Client) Store(ctx context.Context, req StoreRequest) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.api.Do(ctx, http.MethodPost, "/store", req, &out); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	return &out, nil
}

// Delete removes a point by id. Deleting an unknown id succeeds.
func (c *Client) Delete(ctx context.Context, id string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.api.Do(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}

	return &out, nil
}

// Health reports the service and index engine status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.api.Do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}

	return &out, nil
}
