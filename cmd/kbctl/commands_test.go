package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestIndexCommand_EmbedsThenStores(t *testing.T) {
	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bookings can be cancelled", req["text"])

		_, _ = w.Write([]byte(`{"embedding":[0.6,0.8],"model":"m"}`))
	}))
	defer embedSrv.Close()

	var stored map[string]any

	vectorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))

		_, _ = w.Write([]byte(`{"status":"ok","id":"faq-1"}`))
	}))
	defer vectorSrv.Close()

	out, err := runCommand(t,
		"--embedding-url", embedSrv.URL, "--vector-url", vectorSrv.URL,
		"index", "--id", "faq-1", "--text", "Bookings can be cancelled", "--kb", "kb-1", "--title", "Cancel")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)

	assert.Equal(t, "faq-1", stored["id"])
	assert.Equal(t, []any{0.6, 0.8}, stored["vector"])

	payload := stored["payload"].(map[string]any)
	assert.Equal(t, "kb-1", payload["knowledge_base_id"])
	assert.Equal(t, "faq-1", payload["item_id"])
	assert.Equal(t, "Cancel", payload["title"])
	assert.Equal(t, "text", payload["content_type"])
}

func TestSearchCommand(t *testing.T) {
	vectorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cancel", req["query"])
		assert.InDelta(t, 3, req["limit"], 0)
		assert.Equal(t, "kb-1", req["knowledge_base_id"])

		_, _ = w.Write([]byte(`{"results":[{"id":"faq-1","score":0.87,"payload":{"title":"Cancel"}}]}`))
	}))
	defer vectorSrv.Close()

	out, err := runCommand(t, "--vector-url", vectorSrv.URL, "search", "cancel", "--limit", "3", "--kb", "kb-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"faq-1"`)
}

func TestStoreCommand_ServerRejects(t *testing.T) {
	vectorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Bad Request","status":400,"detail":"vector has 2 dimensions, expected 384"}`))
	}))
	defer vectorSrv.Close()

	_, err := runCommand(t, "--vector-url", vectorSrv.URL, "store", "--id", "x", "--vector", "0.1, 0.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 384")
}

func TestStoreCommand_RequiresVector(t *testing.T) {
	_, err := runCommand(t, "--vector-url", "http://127.0.0.1:1", "store", "--id", "x")
	require.ErrorIs(t, err, errVectorRequired)
}

func TestReadVector(t *testing.T) {
	vec, err := readVector("1, 2.5,-3", "")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3}, vec)

	_, err = readVector("1,x", "")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "vec.json")
	require.NoError(t, os.WriteFile(path, []byte(`[0.25, 0.75]`), 0o600))

	vec, err = readVector("", path)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.75}, vec)
}

func TestParsePayload(t *testing.T) {
	p, err := parsePayload("")
	require.NoError(t, err)
	assert.Empty(t, p)

	p, err = parsePayload(`{"knowledge_base_id":"kb-1"}`)
	require.NoError(t, err)
	assert.Equal(t, "kb-1", p["knowledge_base_id"])

	_, err = parsePayload(`[1]`)
	require.Error(t, err)
}

func TestHealthCommand_ReportsUnreachable(t *testing.T) {
	out, err := runCommand(t,
		"--embedding-url", "http://127.0.0.1:1", "--vector-url", "http://127.0.0.1:1", "--timeout", "1s", "health")
	require.NoError(t, err)
	assert.Contains(t, out, `"unreachable"`)
}

func TestIngestCommand(t *testing.T) {
	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,0],"model":"m"}`))
	}))
	defer embedSrv.Close()

	var stored []map[string]any

	vectorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req["id"] == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"store failed"}`))

			return
		}

		stored = append(stored, req)
		_, _ = w.Write([]byte(`{"status":"ok","id":"x"}`))
	}))
	defer vectorSrv.Close()

	csvData := "id,title,text,knowledge_base_id\n" +
		"faq-1,Cancel,Bookings can be cancelled,kb-9\n" +
		"faq-2,Refund,Refunds take five days,\n" +
		",Empty,no id,\n" +
		"broken,Broken,fails on store,\n"

	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o600))

	out, err := runCommand(t,
		"--embedding-url", embedSrv.URL, "--vector-url", vectorSrv.URL,
		"ingest", "--file", path, "--kb", "kb-default")
	require.NoError(t, err)

	var stats ingestStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "store broken")

	require.Len(t, stored, 2)
	assert.Equal(t, "kb-9", stored[0]["payload"].(map[string]any)["knowledge_base_id"])
	assert.Equal(t, "kb-default", stored[1]["payload"].(map[string]any)["knowledge_base_id"])
}

func TestIngestCSV_MissingColumn(t *testing.T) {
	_, err := ingestCSV(context.Background(), strings.NewReader("id,title\nx,y\n"), nil, nil, ingestOptions{})
	require.ErrorIs(t, err, errMissingColumn)
}

func TestIngestCSV_DryRunCallsNoService(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer srv.Close()

	opts := &globalOptions{embeddingURL: srv.URL, vectorURL: srv.URL}
	csvData := "id,text\nfaq-1,Bookings can be cancelled\n,skipped\n"

	stats, err := ingestCSV(context.Background(), strings.NewReader(csvData),
		opts.embedClient(), opts.vectorClient(), ingestOptions{dryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, calls)
}
