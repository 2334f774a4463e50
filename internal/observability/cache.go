package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cache lookup results.
const (
	CacheResultHit       = "hit"
	CacheResultMiss      = "miss"
	CacheResultCoalesced = "coalesced"
)

// CacheMetrics records query cache lookups. A lookup that waited on an identical in-flight miss
// counts as coalesced, so misses equal calls made to the embedding service.
type CacheMetrics interface {
	RecordLookup(ctx context.Context, cacheName, result string)
}

type cacheMetrics struct {
	lookups metric.Int64Counter
}

// NewCacheMetrics returns (nil, nil) when meter is nil.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // callers check "if metrics != nil"
		return nil, nil
	}

	lookups, err := meter.Int64Counter(MetricNameCacheLookups,
		metric.WithDescription("Query cache lookups by result (hit, miss, coalesced). "+
			"Hit ratio = rate(result=hit) / rate(all)."),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameCacheLookups, err)
	}

	return &cacheMetrics{lookups: lookups}, nil
}

func (c *cacheMetrics) RecordLookup(ctx context.Context, cacheName, result string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCache, NormalizeCacheName(cacheName)),
		attribute.String(AttrResult, normalize(result, allowedCacheResults)),
	))
}
