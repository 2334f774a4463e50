package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/embeddings"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		LogLevel:            "error",
		LogFormat:           "json",
		EmbeddingProvider:   embeddings.ProviderHash,
		EmbeddingModel:      "local-hash",
		EmbeddingDimensions: 32,
		MaxRequestBodyBytes: 1 << 20,
		MetricsEnabled:      true,
	}
}

func TestNewApp_ServesEmbedAndHealth(t *testing.T) {
	ctx := context.Background()

	app, err := NewApp(ctx, testConfig())
	require.NoError(t, err)

	t.Cleanup(func() { _ = app.runtime.Shutdown(ctx) })

	handler := app.server.Handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"text":"Kurs absagen"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Embedding []float32 `json:"embedding"`
		Model     string    `json:"model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Embedding, 32)
	assert.Equal(t, "local-hash", resp.Model)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model":"local-hash"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "embeddings")
}

func TestNewApp_UnsupportedProviderIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.EmbeddingProvider = "word2vec"

	_, err := NewApp(context.Background(), cfg)
	require.ErrorIs(t, err, embeddings.ErrUnsupportedProvider)
}
