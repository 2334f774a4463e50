package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches the default sentence model so the hash embedder is a drop-in for local runs.
const DefaultHashDimensions = 384

// HashClient is a deterministic, dependency-free embedder based on feature hashing of lowercase tokens.
// Texts sharing words share dimensions, so identical text always yields identical vectors and
// overlapping text scores higher than unrelated text. Output is not normalized; callers normalize.
type HashClient struct {
	dimensions int
}

// NewHashClient creates a hash embedder. Non-positive dimensions fall back to DefaultHashDimensions.
func NewHashClient(dimensions int) *HashClient {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}

	return &HashClient{dimensions: dimensions}
}

// CreateEmbedding hashes every token of input into a signed bucket. Empty input yields a zero vector.
func (c *HashClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	embedding := make([]float32, c.dimensions)

	for _, token := range tokenize(input) {
		sum := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(c.dimensions) //nolint:gosec // dimensions is positive

		if sum[4]&1 == 0 {
			embedding[idx]++
		} else {
			embedding[idx]--
		}
	}

	return embedding, nil
}

// Dimensions returns the output length.
func (c *HashClient) Dimensions() int {
	return c.dimensions
}

// tokenize splits on anything that is not a letter or digit. Han characters are unspaced,
// so each one is its own token.
func tokenize(text string) []string {
	var (
		tokens  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}

	flush()

	return tokens
}

var _ Client = (*HashClient)(nil)
