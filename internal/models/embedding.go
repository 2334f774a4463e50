package models

// EmbeddingResult is the output of one embed call: an L2-normalized vector and the model that produced it.
// len(Embedding) is the model's output dimension and is constant for a loaded model.
type EmbeddingResult struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// EmbeddingHealth is reported by the embedding service's liveness check.
type EmbeddingHealth struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}
