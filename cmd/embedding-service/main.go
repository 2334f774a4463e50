// Command embedding-service serves text embeddings over HTTP (POST /embed, GET /health).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(config.DefaultEmbeddingServicePort)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start embedding service", "error", err)

		return 1
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		slog.Error("Embedding service stopped", "error", runErr)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)

		return 1
	}

	slog.Info("Server exited")

	if runErr != nil {
		return 1
	}

	return 0
}
