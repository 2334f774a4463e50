package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/knowledgebase/vectorhub/internal/api/handlers"
	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/models"
	"github.com/knowledgebase/vectorhub/internal/observability"
	"github.com/knowledgebase/vectorhub/internal/qdrant"
	"github.com/knowledgebase/vectorhub/internal/server"
	"github.com/knowledgebase/vectorhub/internal/service"
	"github.com/knowledgebase/vectorhub/pkg/embedclient"
)

const serviceName = "vector-service"

// App holds the vector service dependencies and coordinates startup and shutdown.
type App struct {
	runtime *server.Runtime
	server  *http.Server
	vectors *service.VectorService
}

// newIndex builds the Qdrant adapter for the configured transport.
func newIndex(cfg *config.Config) (service.VectorIndex, error) {
	switch cfg.QdrantTransport {
	case config.QdrantTransportGRPC:
		client, err := qdrant.NewGRPCClient(cfg.QdrantHost, cfg.QdrantGRPCPort, cfg.QdrantAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create qdrant grpc client: %w", err)
		}

		return client, nil
	default:
		return qdrant.NewRESTClient(cfg.QdrantEndpoint(), qdrant.WithAPIKey(cfg.QdrantAPIKey)), nil
	}
}

// NewApp wires the index adapter, the embedding service client and the query cache, then provisions
// the collection. Provisioning failure is logged and startup continues.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, serviceName)

	rt, err := server.NewRuntime(ctx, cfg, serviceName, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	var (
		indexMetrics observability.IndexMetrics
		cacheMetrics observability.CacheMetrics
	)

	if rt.Metrics != nil {
		indexMetrics = rt.Metrics.Index
		cacheMetrics = rt.Metrics.Cache
	}

	index, err := newIndex(cfg)
	if err != nil {
		return nil, errors.Join(err, rt.Shutdown(ctx))
	}

	embedClient := embedclient.NewClientWithOptions(embedclient.Options{
		BaseURL: cfg.EmbeddingServiceURL,
		Timeout: cfg.EmbeddingServiceTimeout,
	})

	embedder, err := service.NewCachingQueryEmbedder(embedClient, cfg.QueryCacheSize, cacheMetrics)
	if err != nil {
		return nil, errors.Join(err, index.Close(), rt.Shutdown(ctx))
	}

	vectors := service.NewVectorService(service.VectorServiceParams{
		Index:      service.NewInstrumentedIndex(index, indexMetrics),
		Embedder:   embedder,
		VectorSize: cfg.VectorSize,
		MaxLimit:   cfg.SearchMaxLimit,
		Logger:     logger,
	})

	if err := vectors.EnsureCollection(ctx); err != nil {
		logger.Error("collection provisioning failed, continuing without it",
			"error", err, "collection", models.CollectionName, "qdrant_transport", cfg.QdrantTransport)
	}

	logger.Info("vector service ready",
		"qdrant_transport", cfg.QdrantTransport,
		"vector_size", cfg.VectorSize,
		"embedding_service_url", cfg.EmbeddingServiceURL,
		"query_cache_size", cfg.QueryCacheSize,
	)

	return &App{
		runtime: rt,
		server:  rt.NewHTTPServer(newMux(handlers.NewVectorHandler(vectors))),
		vectors: vectors,
	}, nil
}

func newMux(h *handlers.VectorHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("POST /store", h.Store)
	mux.HandleFunc("DELETE /delete/{id}", h.Delete)
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	//nolint:wrapcheck // already wrapped by server.Serve
	return server.Serve(ctx, a.server)
}

// Shutdown stops accepting requests, waits for in-flight ones, closes the index connection and
// flushes observability.
func (a *App) Shutdown(ctx context.Context) error {
	var serverErr error
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverErr = fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.vectors.Close(); err != nil {
		slog.Error("close index", "error", err)
	}

	return errors.Join(serverErr, a.runtime.Shutdown(ctx))
}
