package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgebase/vectorhub/internal/api/response"
	"github.com/knowledgebase/vectorhub/internal/kberrors"
	"github.com/knowledgebase/vectorhub/internal/models"
)

type mockVectorService struct {
	searchFunc func(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error)
	storeFunc  func(ctx context.Context, point models.IndexPoint) error
	deleteFunc func(ctx context.Context, id string) error
	health     models.VectorHealth
}

func (m *mockVectorService) Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, q)
	}

	return nil, nil
}

func (m *mockVectorService) Store(ctx context.Context, point models.IndexPoint) error {
	if m.storeFunc != nil {
		return m.storeFunc(ctx, point)
	}

	return nil
}

func (m *mockVectorService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}

	return nil
}

func (m *mockVectorService) Health(context.Context) models.VectorHealth {
	return m.health
}

func newVectorMux(svc VectorService) *http.ServeMux {
	h := NewVectorHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("POST /store", h.Store)
	mux.HandleFunc("DELETE /delete/{id}", h.Delete)
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

func TestVectorHandler_Search(t *testing.T) {
	t.Run("success passes filter and keeps order", func(t *testing.T) {
		var got models.SearchQuery

		mock := &mockVectorService{searchFunc: func(_ context.Context, q models.SearchQuery) ([]models.SearchResult, error) {
			got = q

			return []models.SearchResult{
				{ID: "b", Score: 0.9, Payload: models.Payload{"title": "B"}},
				{ID: "a", Score: 0.3, Payload: models.Payload{}},
			}, nil
		}}

		rec := httptest.NewRecorder()
		body := `{"query":"refund","limit":2,"knowledge_base_id":"kb-1"}`
		newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.SearchQuery{Query: "refund", Limit: 2, KnowledgeBaseID: "kb-1"}, got)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "b", resp.Results[0].ID)
		assert.Equal(t, "B", resp.Results[0].Payload["title"])
	})

	t.Run("no results is an empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newVectorMux(&mockVectorService{}).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"x"}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
	})

	t.Run("embedding service down returns 502", func(t *testing.T) {
		mock := &mockVectorService{searchFunc: func(context.Context, models.SearchQuery) ([]models.SearchResult, error) {
			return nil, kberrors.NewSearchError("search failed",
				kberrors.NewUpstreamError("embedding service call failed", errors.New("connection refused")))
		}}

		rec := httptest.NewRecorder()
		newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"x"}`)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("engine failure returns 500", func(t *testing.T) {
		mock := &mockVectorService{searchFunc: func(context.Context, models.SearchQuery) ([]models.SearchResult, error) {
			return nil, kberrors.NewSearchError("search failed", errors.New("collection missing"))
		}}

		rec := httptest.NewRecorder()
		newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"x"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestVectorHandler_Store(t *testing.T) {
	t.Run("success acknowledges id", func(t *testing.T) {
		var got models.IndexPoint

		mock := &mockVectorService{storeFunc: func(_ context.Context, p models.IndexPoint) error {
			got = p

			return nil
		}}

		rec := httptest.NewRecorder()
		body := `{"id":"doc-1","vector":[0.1,0.2],"payload":{"knowledge_base_id":"kb-1"}}`
		newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","id":"doc-1"}`, rec.Body.String())
		assert.Equal(t, "doc-1", got.ID)
		assert.Equal(t, []float32{0.1, 0.2}, got.Vector)
		assert.Equal(t, "kb-1", got.Payload["knowledge_base_id"])
	})

	t.Run("validation error returns 400 with field", func(t *testing.T) {
		mock := &mockVectorService{storeFunc: func(context.Context, models.IndexPoint) error {
			return kberrors.NewValidationError("vector", "vector has 2 dimensions, expected 384")
		}}

		rec := httptest.NewRecorder()
		body := `{"id":"doc-1","vector":[0.1,0.2],"payload":{}}`
		newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var problem response.ProblemDetails
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "vector has 2 dimensions, expected 384", problem.Detail)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "body.vector", problem.Errors[0].Location)
	})

	t.Run("missing id returns 400 before the service", func(t *testing.T) {
		called := false
		mock := &mockVectorService{storeFunc: func(context.Context, models.IndexPoint) error {
			called = true

			return nil
		}}

		rec := httptest.NewRecorder()
		newVectorMux(mock).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{"vector":[0.1],"payload":{}}`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)

		var problem response.ProblemDetails
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "id is required", problem.Detail)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "body.id", problem.Errors[0].Location)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newVectorMux(&mockVectorService{}).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{"id":1}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		mock := &mockVectorService{storeFunc: func(context.Context, models.IndexPoint) error {
			return kberrors.NewStoreError("store failed", errors.New("timeout"))
		}}

		rec := httptest.NewRecorder()
		newVectorMux(mock).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{"id":"x","vector":[1]}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestVectorHandler_Delete(t *testing.T) {
	var got string

	mock := &mockVectorService{deleteFunc: func(_ context.Context, id string) error {
		got = id

		return nil
	}}

	rec := httptest.NewRecorder()
	newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete/doc-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc-1", got)
	assert.JSONEq(t, `{"status":"ok","id":"doc-1"}`, rec.Body.String())

	mock.deleteFunc = func(context.Context, string) error { return kberrors.NewDeleteError("delete failed", errors.New("x")) }

	rec = httptest.NewRecorder()
	newVectorMux(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete/doc-1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVectorHandler_Health(t *testing.T) {
	t.Run("engine reachable", func(t *testing.T) {
		n := 2
		rec := httptest.NewRecorder()
		newVectorMux(&mockVectorService{health: models.VectorHealth{Status: "ok", Collections: &n}}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","collections":2}`, rec.Body.String())
	})

	t.Run("engine down still 200", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newVectorMux(&mockVectorService{health: models.VectorHealth{Status: "error", Error: "connection refused"}}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"error","error":"connection refused"}`, rec.Body.String())
	})
}
