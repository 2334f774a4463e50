package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/knowledgebase/vectorhub/internal/kberrors"
	"github.com/knowledgebase/vectorhub/internal/models"
	"github.com/knowledgebase/vectorhub/internal/qdrant"
)

// VectorService stores vectors with payloads and answers text queries against the single
// knowledge_base collection.
type VectorService struct {
	index      VectorIndex
	embedder   QueryEmbedder
	collection string
	vectorSize int
	maxLimit   int
	logger     *slog.Logger
}

// VectorServiceParams configures VectorService. MaxLimit <= 0 disables the search limit cap.
type VectorServiceParams struct {
	Index      VectorIndex
	Embedder   QueryEmbedder
	VectorSize int
	MaxLimit   int
	Logger     *slog.Logger
}

// NewVectorService creates a VectorService.
func NewVectorService(p VectorServiceParams) *VectorService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VectorService{
		index:      p.Index,
		embedder:   p.Embedder,
		collection: models.CollectionName,
		vectorSize: p.VectorSize,
		maxLimit:   p.MaxLimit,
		logger:     logger,
	}
}

// EnsureCollection creates the collection when it does not exist yet. It runs once at startup;
// the caller logs a failure and keeps serving (later engine calls fail on their own).
func (s *VectorService) EnsureCollection(ctx context.Context) error {
	names, err := s.index.ListCollections(ctx)
	if err != nil {
		return kberrors.NewStartupProvisioningError("list collections", err)
	}

	if slices.Contains(names, s.collection) {
		s.logger.InfoContext(ctx, "collection exists", "collection", s.collection)

		return nil
	}

	err = s.index.CreateCollection(ctx, models.Collection{
		Name:     s.collection,
		Size:     s.vectorSize,
		Distance: models.DistanceCosine,
	})
	if err != nil {
		return kberrors.NewStartupProvisioningError("create collection "+s.collection, err)
	}

	s.logger.InfoContext(ctx, "collection created", "collection", s.collection, "vector_size", s.vectorSize)

	return nil
}

// Search embeds q.Query through the embedding service and returns the nearest points, best first.
func (s *VectorService) Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error) {
	limit := s.clampLimit(q.Limit)

	vec, err := s.embedder.CreateEmbedding(ctx, q.Query)
	if err != nil {
		s.logger.ErrorContext(ctx, "search: query embedding failed", "error", err)

		return nil, kberrors.NewSearchError("search failed",
			kberrors.NewUpstreamError("embedding service call failed", err))
	}

	if len(vec) != s.vectorSize {
		s.logger.ErrorContext(ctx, "search: embedding dimension mismatch", "expected", s.vectorSize, "actual", len(vec))

		return nil, kberrors.NewSearchError("search failed",
			kberrors.NewUpstreamError(fmt.Sprintf(
				"embedding service returned %d dimensions, collection expects %d", len(vec), s.vectorSize), nil))
	}

	query := models.VectorQuery{Vector: vec, Limit: limit}
	if q.KnowledgeBaseID != "" {
		query.Must = []models.FieldMatch{{Key: models.KnowledgeBaseIDField, Value: q.KnowledgeBaseID}}
	}

	results, err := s.index.Search(ctx, s.collection, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "search: index search failed", "error", err, "limit", limit)

		return nil, kberrors.NewSearchError("search failed", err)
	}

	return results, nil
}

func (s *VectorService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}

	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	return limit
}

// Store upserts one point. The id must be non-empty, the vector must have the collection's size and
// the payload must not use the reserved id key; violations are rejected before the engine is called.
func (s *VectorService) Store(ctx context.Context, point models.IndexPoint) error {
	if err := s.validatePoint(point); err != nil {
		return err
	}

	if point.Payload == nil {
		point.Payload = models.Payload{}
	}

	if err := s.index.Upsert(ctx, s.collection, []models.IndexPoint{point}); err != nil {
		s.logger.ErrorContext(ctx, "store: upsert failed", "error", err, "id", point.ID)

		return kberrors.NewStoreError("store failed", err)
	}

	return nil
}

func (s *VectorService) validatePoint(point models.IndexPoint) error {
	if point.ID == "" {
		return kberrors.NewValidationError("id", "id is required")
	}

	if len(point.Vector) != s.vectorSize {
		return kberrors.NewValidationError("vector",
			fmt.Sprintf("vector has %d dimensions, expected %d", len(point.Vector), s.vectorSize))
	}

	if _, reserved := point.Payload[qdrant.OriginalIDField]; reserved {
		return kberrors.NewValidationError("payload",
			fmt.Sprintf("payload key %q is reserved", qdrant.OriginalIDField))
	}

	return nil
}

// Delete removes the point with id. Deleting an id that does not exist succeeds.
func (s *VectorService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return kberrors.NewValidationError("id", "id is required")
	}

	if err := s.index.Delete(ctx, s.collection, []string{id}); err != nil {
		s.logger.ErrorContext(ctx, "delete failed", "error", err, "id", id)

		return kberrors.NewDeleteError("delete failed", err)
	}

	return nil
}

// Health counts collections. An engine failure is reported in the body, never as an error.
func (s *VectorService) Health(ctx context.Context) models.VectorHealth {
	names, err := s.index.ListCollections(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "health: index engine unreachable", "error", err)

		return models.VectorHealth{Status: models.HealthStatusError, Error: err.Error()}
	}

	n := len(names)

	return models.VectorHealth{Status: models.HealthStatusOK, Collections: &n}
}

// Close releases the index connection.
func (s *VectorService) Close() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	return nil
}
