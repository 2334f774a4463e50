package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/knowledgebase/vectorhub/internal/observability"
)

// QueryEmbedder resolves search query text to a vector. In production this is the embedding
// service client (pkg/embedclient).
type QueryEmbedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CachingQueryEmbedder memoizes query vectors in an LRU and coalesces identical in-flight lookups.
// Cached slices are shared between callers and must not be mutated.
type CachingQueryEmbedder struct {
	next      QueryEmbedder
	cache     *lru.Cache[string, []float32]
	loadGroup singleflight.Group
	metrics   observability.CacheMetrics
}

// NewCachingQueryEmbedder wraps next with a cache of size entries. size <= 0 returns next unwrapped.
// metrics may be nil.
func NewCachingQueryEmbedder(next QueryEmbedder, size int, metrics observability.CacheMetrics) (QueryEmbedder, error) {
	if size <= 0 {
		return next, nil
	}

	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}

	return &CachingQueryEmbedder{next: next, cache: cache, metrics: metrics}, nil
}

// CreateEmbedding implements QueryEmbedder. Only the caller that actually loads a query records a
// miss; callers that joined its flight record coalesced.
func (c *CachingQueryEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.record(ctx, observability.CacheResultHit)

		return vec, nil
	}

	loaded := false

	val, err, _ := c.loadGroup.Do(text, func() (any, error) {
		loaded = true

		vec, loadErr := c.next.CreateEmbedding(ctx, text)
		if loadErr != nil {
			return nil, loadErr
		}

		c.cache.Add(text, vec)

		return vec, nil
	})

	if loaded {
		c.record(ctx, observability.CacheResultMiss)
	} else {
		c.record(ctx, observability.CacheResultCoalesced)
	}

	if err != nil {
		//nolint:wrapcheck // caller classifies the failure
		return nil, err
	}

	return val.([]float32), nil
}

func (c *CachingQueryEmbedder) record(ctx context.Context, result string) {
	if c.metrics != nil {
		c.metrics.RecordLookup(ctx, observability.CacheNameQueryEmbedding, result)
	}
}

// Len reports the number of cached queries.
func (c *CachingQueryEmbedder) Len() int {
	return c.cache.Len()
}
