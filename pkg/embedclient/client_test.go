package embedclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Embed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embed", func(w http.ResponseWriter, r *http.Request) {
		var req EmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Kurs absagen", req.Text)

		_, _ = w.Write([]byte(`{"embedding":[0.6,0.8],"model":"minilm"}`))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","model":"minilm"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)

	resp, err := client.Embed(context.Background(), "Kurs absagen")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, resp.Embedding)
	assert.Equal(t, "minilm", resp.Model)

	vec, err := client.CreateEmbedding(context.Background(), "Kurs absagen")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "minilm", health.Model)
}

func TestClient_Embed_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"title":"Internal Server Error","status":500,"detail":"inference failed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateEmbedding(context.Background(), "x")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "inference failed", statusErr.Detail)
}
