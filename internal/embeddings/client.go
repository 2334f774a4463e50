// Package embeddings selects, loads and warms up the embedding provider the embedding service serves.
package embeddings

import "context"

// Client generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI-compatible servers, Google Gemini, the local hash embedder).
// Implementations must be safe for concurrent use.
type Client interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}
