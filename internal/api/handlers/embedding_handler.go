package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/knowledgebase/vectorhub/internal/api/response"
	"github.com/knowledgebase/vectorhub/internal/models"
)

// EmbeddingService defines the operations of the embedding service.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (models.EmbeddingResult, error)
	Health() models.EmbeddingHealth
}

// EmbeddingHandler handles HTTP requests of the embedding service.
type EmbeddingHandler struct {
	service EmbeddingService
}

// NewEmbeddingHandler creates a new embedding handler.
func NewEmbeddingHandler(service EmbeddingService) *EmbeddingHandler {
	return &EmbeddingHandler{service: service}
}

// EmbedRequest is the body for POST /embed.
type EmbedRequest struct {
	Text string `json:"text"`
}

// Embed handles POST /embed.
func (h *EmbeddingHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	// Inference runs to completion even if the client goes away.
	result, err := h.service.Embed(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Health handles GET /health.
func (h *EmbeddingHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.service.Health())
}
