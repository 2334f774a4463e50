// Package models holds the data types shared by services, handlers and the index adapters.
package models

// CollectionName is the single collection the vector service provisions and serves.
const CollectionName = "knowledge_base"

// KnowledgeBaseIDField is the payload key used by the optional search filter.
const KnowledgeBaseIDField = "knowledge_base_id"

// DefaultSearchLimit applies when a search request omits limit or sends a non-positive one.
const DefaultSearchLimit = 5

// Distance is the similarity metric of a collection.
type Distance string

// DistanceCosine is the only metric the vector service provisions.
const DistanceCosine Distance = "Cosine"

// Payload is free-form point metadata. Values are JSON values: string, float64, bool, nil,
// map[string]any or []any. No schema is assumed.
type Payload map[string]any

// Collection describes a named container of fixed-dimension points.
type Collection struct {
	Name     string
	Size     int
	Distance Distance
}

// IndexPoint is one (id, vector, payload) entry. A store with an existing id fully replaces it.
type IndexPoint struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// SearchQuery is a text query resolved to a vector before the nearest-neighbor lookup.
// KnowledgeBaseID, when non-empty, restricts results to points whose payload carries that value.
type SearchQuery struct {
	Query           string
	Limit           int
	KnowledgeBaseID string
}

// SearchResult is one nearest-neighbor hit. Score is cosine similarity (higher is closer)
// exactly as reported by the index engine.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// VectorHealth is reported by the vector service's health check.
// On engine failure Status is "error" and Error carries the detail.
type VectorHealth struct {
	Status      string `json:"status"`
	Collections *int   `json:"collections,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Health statuses.
const (
	HealthStatusOK    = "ok"
	HealthStatusError = "error"
)

// FieldMatch is an equality condition on a payload field.
type FieldMatch struct {
	Key   string
	Value string
}

// VectorQuery is a nearest-neighbor lookup: the top Limit points closest to Vector that satisfy every Must condition.
type VectorQuery struct {
	Vector []float32
	Limit  int
	Must   []FieldMatch
}
