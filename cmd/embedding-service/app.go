package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/knowledgebase/vectorhub/internal/api/handlers"
	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/embeddings"
	"github.com/knowledgebase/vectorhub/internal/observability"
	"github.com/knowledgebase/vectorhub/internal/server"
	"github.com/knowledgebase/vectorhub/internal/service"
)

const serviceName = "embedding-service"

// App holds the embedding service dependencies and coordinates startup and shutdown.
type App struct {
	runtime *server.Runtime
	server  *http.Server
}

// NewApp loads and warms up the embedding model before anything listens. A model that cannot be
// loaded is fatal: the service never serves without a working model.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, serviceName)

	rt, err := server.NewRuntime(ctx, cfg, serviceName, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	model, err := embeddings.Load(ctx, cfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load embedding model: %w", err), rt.Shutdown(ctx))
	}

	var embeddingMetrics observability.EmbeddingMetrics
	if rt.Metrics != nil {
		embeddingMetrics = rt.Metrics.Embeddings
	}

	svc := service.NewEmbeddingService(service.EmbeddingServiceParams{
		Model:     model,
		RateLimit: cfg.EmbeddingRateLimit,
		Metrics:   embeddingMetrics,
		Logger:    logger,
	})

	logger.Info("embedding service ready",
		"provider", cfg.EmbeddingProvider, "model", model.Name, "dimension", model.Dimension)

	return &App{
		runtime: rt,
		server:  rt.NewHTTPServer(newMux(handlers.NewEmbeddingHandler(svc))),
	}, nil
}

func newMux(h *handlers.EmbeddingHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embed", h.Embed)
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	//nolint:wrapcheck // already wrapped by server.Serve
	return server.Serve(ctx, a.server)
}

// Shutdown stops accepting requests, waits for in-flight ones, then flushes observability.
func (a *App) Shutdown(ctx context.Context) error {
	var serverErr error
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverErr = fmt.Errorf("server shutdown: %w", err)
	}

	return errors.Join(serverErr, a.runtime.Shutdown(ctx))
}
