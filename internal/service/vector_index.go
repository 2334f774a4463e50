package service

import (
	"context"
	"time"

	"github.com/knowledgebase/vectorhub/internal/models"
	"github.com/knowledgebase/vectorhub/internal/observability"
)

// VectorIndex is the index engine contract the vector service depends on.
// Implemented by qdrant.RESTClient and qdrant.GRPCClient.
type VectorIndex interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, collection models.Collection) error
	Upsert(ctx context.Context, collection string, points []models.IndexPoint) error
	Search(ctx context.Context, collection string, q models.VectorQuery) ([]models.SearchResult, error)
	Delete(ctx context.Context, collection string, ids []string) error
	Close() error
}

// InstrumentedIndex records duration and outcome of every engine call.
type InstrumentedIndex struct {
	next    VectorIndex
	metrics observability.IndexMetrics
}

// NewInstrumentedIndex wraps next. When metrics is nil, next is returned unwrapped.
func NewInstrumentedIndex(next VectorIndex, metrics observability.IndexMetrics) VectorIndex {
	if metrics == nil {
		return next
	}

	return &InstrumentedIndex{next: next, metrics: metrics}
}

func (i *InstrumentedIndex) record(ctx context.Context, op string, start time.Time, err error) {
	i.metrics.RecordIndexOperation(ctx, op, observability.StatusFromError(err), time.Since(start))
}

// ListCollections implements VectorIndex.
func (i *InstrumentedIndex) ListCollections(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := i.next.ListCollections(ctx)
	i.record(ctx, observability.OpListCollections, start, err)

	//nolint:wrapcheck // decorator, errors are wrapped by the adapter
	return names, err
}

// CreateCollection implements VectorIndex.
func (i *InstrumentedIndex) CreateCollection(ctx context.Context, collection models.Collection) error {
	start := time.Now()
	err := i.next.CreateCollection(ctx, collection)
	i.record(ctx, observability.OpCreateCollection, start, err)

	//nolint:wrapcheck // decorator, errors are wrapped by the adapter
	return err
}

// Upsert implements VectorIndex.
func (i *InstrumentedIndex) Upsert(ctx context.Context, collection string, points []models.IndexPoint) error {
	start := time.Now()
	err := i.next.Upsert(ctx, collection, points)
	i.record(ctx, observability.OpUpsert, start, err)

	//nolint:wrapcheck // decorator, errors are wrapped by the adapter
	return err
}

// Search implements VectorIndex.
func (i *InstrumentedIndex) Search(ctx context.Context, collection string, q models.VectorQuery) ([]models.SearchResult, error) {
	start := time.Now()
	results, err := i.next.Search(ctx, collection, q)
	i.record(ctx, observability.OpSearch, start, err)

	//nolint:wrapcheck // decorator, errors are wrapped by the adapter
	return results, err
}

// Delete implements VectorIndex.
func (i *InstrumentedIndex) Delete(ctx context.Context, collection string, ids []string) error {
	start := time.Now()
	err := i.next.Delete(ctx, collection, ids)
	i.record(ctx, observability.OpDelete, start, err)

	//nolint:wrapcheck // decorator, errors are wrapped by the adapter
	return err
}

// Close implements VectorIndex.
func (i *InstrumentedIndex) Close() error {
	//nolint:wrapcheck // decorator
	return i.next.Close()
}
