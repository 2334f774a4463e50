// Package observability provides OpenTelemetry metrics (Prometheus exporter), tracing and
// trace-aware structured logging for the embedding and vector services.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests        = "vectorhub_http_requests_total"
	MetricNameHTTPDuration        = "vectorhub_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge = "vectorhub_request_body_too_large_total"
	MetricNameEmbeddings          = "vectorhub_embeddings_total"
	MetricNameEmbeddingDuration   = "vectorhub_embedding_duration_seconds"
	MetricNameIndexOperations     = "vectorhub_index_operations_total"
	MetricNameIndexDuration       = "vectorhub_index_operation_duration_seconds"
	MetricNameCacheLookups        = "vectorhub_query_cache_lookups_total"
)

// Attribute keys.
const (
	AttrMethod      = "method"
	AttrRoute       = "route"
	AttrStatusClass = "status_class"
	AttrStatus      = "status"
	AttrOperation   = "operation"
	AttrCache       = "cache"
	AttrResult      = "result"
)

// Outcome statuses shared by embedding and index metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Index operations recorded by IndexMetrics.
const (
	OpListCollections  = "list_collections"
	OpCreateCollection = "create_collection"
	OpUpsert           = "upsert"
	OpSearch           = "search"
	OpDelete           = "delete"
)

// CacheNameQueryEmbedding labels the vector service's query embedding cache.
const CacheNameQueryEmbedding = "query_embedding"

var allowedOperations = map[string]bool{
	OpListCollections:  true,
	OpCreateCollection: true,
	OpUpsert:           true,
	OpSearch:           true,
	OpDelete:           true,
}

var allowedStatuses = map[string]bool{
	StatusSuccess: true,
	StatusError:   true,
}

var allowedCaches = map[string]bool{
	CacheNameQueryEmbedding: true,
}

var allowedCacheResults = map[string]bool{
	CacheResultHit:       true,
	CacheResultMiss:      true,
	CacheResultCoalesced: true,
}

// NormalizeOperation returns op if known, otherwise "other".
func NormalizeOperation(op string) string {
	return normalize(op, allowedOperations)
}

// NormalizeStatus returns status if known, otherwise "other".
func NormalizeStatus(status string) string {
	return normalize(status, allowedStatuses)
}

// NormalizeCacheName returns name if known, otherwise "other".
func NormalizeCacheName(name string) string {
	return normalize(name, allowedCaches)
}

func normalize(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}

// StatusFromError maps an operation error to StatusSuccess or StatusError.
func StatusFromError(err error) string {
	if err != nil {
		return StatusError
	}

	return StatusSuccess
}
