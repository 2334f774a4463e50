package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/knowledgebase/vectorhub/internal/embeddings"
	"github.com/knowledgebase/vectorhub/internal/kberrors"
	"github.com/knowledgebase/vectorhub/internal/models"
	"github.com/knowledgebase/vectorhub/internal/observability"
	pkgembeddings "github.com/knowledgebase/vectorhub/pkg/embeddings"
)

// EmbeddingService turns text into L2-normalized vectors using the process-wide loaded model.
type EmbeddingService struct {
	model   *embeddings.Model
	limiter *rate.Limiter
	metrics observability.EmbeddingMetrics
	logger  *slog.Logger
}

// EmbeddingServiceParams configures EmbeddingService. RateLimit <= 0 disables limiting; Metrics may be nil.
type EmbeddingServiceParams struct {
	Model     *embeddings.Model
	RateLimit float64
	Metrics   observability.EmbeddingMetrics
	Logger    *slog.Logger
}

// NewEmbeddingService creates an EmbeddingService around an already loaded model.
func NewEmbeddingService(p EmbeddingServiceParams) *EmbeddingService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if p.RateLimit > 0 {
		burst := max(1, int(math.Ceil(p.RateLimit)))
		limiter = rate.NewLimiter(rate.Limit(p.RateLimit), burst)
	}

	return &EmbeddingService{
		model:   p.Model,
		limiter: limiter,
		metrics: p.Metrics,
		logger:  logger,
	}
}

// Embed returns the normalized embedding of text. Text is passed to the provider as is, empty included.
// Any provider failure, including a vector whose length differs from the warm-up dimension, is an InferenceError.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (models.EmbeddingResult, error) {
	start := time.Now()

	vec, err := s.infer(ctx, text)
	if s.metrics != nil {
		s.metrics.RecordEmbedding(ctx, observability.StatusFromError(err), time.Since(start))
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "embedding failed", "error", err, "model", s.model.Name, "text_length", len(text))

		return models.EmbeddingResult{}, err
	}

	return models.EmbeddingResult{Embedding: vec, Model: s.model.Name}, nil
}

func (s *EmbeddingService) infer(ctx context.Context, text string) ([]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, kberrors.NewInferenceError("embedding rate limit wait", err)
		}
	}

	vec, err := s.model.Client.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, kberrors.NewInferenceError("embedding inference failed", err)
	}

	if len(vec) != s.model.Dimension {
		return nil, kberrors.NewInferenceError(
			fmt.Sprintf("embedding dimension changed: expected %d, got %d", s.model.Dimension, len(vec)), nil)
	}

	pkgembeddings.NormalizeL2(vec)

	return vec, nil
}

// Health reports liveness and the loaded model name. The model is loaded before the server starts,
// so a running service is always healthy.
func (s *EmbeddingService) Health() models.EmbeddingHealth {
	return models.EmbeddingHealth{Status: models.HealthStatusOK, Model: s.model.Name}
}
