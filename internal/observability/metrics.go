package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	meterScope       = "github.com/knowledgebase/vectorhub/internal/observability"
	cardinalityLimit = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for all duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// HTTPMetrics records inbound request count and duration.
type HTTPMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
}

// APIMetrics records API-level rejections (request body limit exceeded).
type APIMetrics interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// EmbeddingMetrics records model inference calls.
type EmbeddingMetrics interface {
	RecordEmbedding(ctx context.Context, status string, duration time.Duration)
}

// IndexMetrics records vector index engine calls by operation.
type IndexMetrics interface {
	RecordIndexOperation(ctx context.Context, operation, status string, duration time.Duration)
}

// Metrics bundles every instrument set. Fields are nil-safe at call sites: callers check for nil interfaces.
type Metrics struct {
	HTTP       HTTPMetrics
	API        APIMetrics
	Embeddings EmbeddingMetrics
	Index      IndexMetrics
	Cache      CacheMetrics
}

// NewMeterProvider creates a MeterProvider backed by a Prometheus exporter on its own registry and
// returns the /metrics handler that serves it. Caller must shut the provider down on exit.
func NewMeterProvider(serviceName string) (*sdkmetric.MeterProvider, http.Handler, error) {
	res, err := newResource(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	view := sdkmetric.NewView(
		sdkmetric.Instrument{Name: "vectorhub_*_duration_seconds"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(view),
	)

	return mp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// ShutdownMeterProvider flushes and shuts down the MeterProvider. Safe to call with nil.
func ShutdownMeterProvider(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// NewMetrics creates every instrument from meter. Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(MetricNameHTTPRequests,
		metric.WithDescription("Total HTTP requests"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameHTTPRequests, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricNameHTTPDuration,
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameHTTPDuration, err)
	}

	bodyTooLarge, err := meter.Int64Counter(MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestBodyTooLarge, err)
	}

	embeddingsTotal, err := meter.Int64Counter(MetricNameEmbeddings,
		metric.WithDescription("Embedding model calls by status"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameEmbeddings, err)
	}

	embeddingDuration, err := meter.Float64Histogram(MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding model call duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameEmbeddingDuration, err)
	}

	indexOps, err := meter.Int64Counter(MetricNameIndexOperations,
		metric.WithDescription("Vector index engine calls by operation and status"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameIndexOperations, err)
	}

	indexDuration, err := meter.Float64Histogram(MetricNameIndexDuration,
		metric.WithDescription("Vector index engine call duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameIndexDuration, err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTP:       &httpMetrics{requests: requests, duration: requestDuration},
		API:        &apiMetrics{requestBodyTooLarge: bodyTooLarge},
		Embeddings: &embeddingMetrics{total: embeddingsTotal, duration: embeddingDuration},
		Index:      &indexMetrics{total: indexOps, duration: indexDuration},
		Cache:      cache,
	}, nil
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func (m *httpMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String(AttrMethod, method),
		attribute.String(AttrRoute, route),
		attribute.String(AttrStatusClass, statusClass),
	)
	m.requests.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String(AttrMethod, method),
		attribute.String(AttrRoute, route),
	)
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

type apiMetrics struct {
	requestBodyTooLarge metric.Int64Counter
}

func (m *apiMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	m.requestBodyTooLarge.Add(ctx, 1)
}

type embeddingMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (m *embeddingMetrics) RecordEmbedding(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrStatus, NormalizeStatus(status)))
	m.total.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

type indexMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (m *indexMetrics) RecordIndexOperation(ctx context.Context, operation, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrOperation, NormalizeOperation(operation)),
		attribute.String(AttrStatus, NormalizeStatus(status)),
	)
	m.total.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}
