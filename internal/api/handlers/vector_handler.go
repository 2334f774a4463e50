package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/knowledgebase/vectorhub/internal/api/response"
	"github.com/knowledgebase/vectorhub/internal/api/validation"
	"github.com/knowledgebase/vectorhub/internal/models"
)

// VectorService defines the operations of the vector service.
type VectorService interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error)
	Store(ctx context.Context, point models.IndexPoint) error
	Delete(ctx context.Context, id string) error
	Health(ctx context.Context) models.VectorHealth
}

// VectorHandler handles HTTP requests of the vector service.
type VectorHandler struct {
	service VectorService
}

// NewVectorHandler creates a new vector handler.
func NewVectorHandler(service VectorService) *VectorHandler {
	return &VectorHandler{service: service}
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query           string `json:"query"`
	Limit           int    `json:"limit"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
}

// SearchResponse is the response for POST /search.
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
}

// StoreRequest is the body for POST /store.
type StoreRequest struct {
	ID      string         `json:"id" validate:"required"`
	Vector  []float32      `json:"vector"`
	Payload models.Payload `json:"payload"`
}

// StatusResponse acknowledges store and delete.
type StatusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Search handles POST /search.
func (h *VectorHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	results, err := h.service.Search(context.WithoutCancel(r.Context()), models.SearchQuery{
		Query:           req.Query,
		Limit:           req.Limit,
		KnowledgeBaseID: req.KnowledgeBaseID,
	})
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	if results == nil {
		results = []models.SearchResult{}
	}

	response.RespondJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Store handles POST /store.
func (h *VectorHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		response.RespondServiceError(w, err)

		return
	}

	point := models.IndexPoint{ID: req.ID, Vector: req.Vector, Payload: req.Payload}
	if err := h.service.Store(context.WithoutCancel(r.Context()), point); err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, StatusResponse{Status: models.HealthStatusOK, ID: req.ID})
}

// Delete handles DELETE /delete/{id}.
func (h *VectorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.Delete(context.WithoutCancel(r.Context()), id); err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, StatusResponse{Status: models.HealthStatusOK, ID: id})
}

// Health handles GET /health. The engine status is in the body; the code is always 200.
func (h *VectorHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.service.Health(r.Context()))
}
