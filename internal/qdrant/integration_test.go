//go:build integration

package qdrant

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcqdrant "github.com/testcontainers/testcontainers-go/modules/qdrant"

	"github.com/knowledgebase/vectorhub/internal/models"
)

const qdrantImage = "qdrant/qdrant:v1.12.4"

type engine interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, collection models.Collection) error
	Upsert(ctx context.Context, collection string, points []models.IndexPoint) error
	Search(ctx context.Context, collection string, q models.VectorQuery) ([]models.SearchResult, error)
	Delete(ctx context.Context, collection string, ids []string) error
	Close() error
}

func startQdrant(t *testing.T) (host string, restPort, grpcPort int) {
	t.Helper()

	ctx := context.Background()

	container, err := tcqdrant.Run(ctx, qdrantImage)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err = container.Host(ctx)
	require.NoError(t, err)

	rest, err := container.MappedPort(ctx, "6333/tcp")
	require.NoError(t, err)

	grpc, err := container.MappedPort(ctx, "6334/tcp")
	require.NoError(t, err)

	return host, rest.Int(), grpc.Int()
}

func TestEngines_RoundTrip(t *testing.T) {
	host, restPort, grpcPort := startQdrant(t)

	grpcClient, err := NewGRPCClient(host, grpcPort, "")
	require.NoError(t, err)

	engines := map[string]engine{
		"rest": NewRESTClient(fmt.Sprintf("http://%s:%d", host, restPort)),
		"grpc": grpcClient,
	}

	for name, eng := range engines {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			collection := "kb_" + name

			t.Cleanup(func() { _ = eng.Close() })

			require.NoError(t, eng.CreateCollection(ctx, models.Collection{
				Name: collection, Size: 3, Distance: models.DistanceCosine,
			}))

			names, err := eng.ListCollections(ctx)
			require.NoError(t, err)
			assert.Contains(t, names, collection)

			require.NoError(t, eng.Upsert(ctx, collection, []models.IndexPoint{
				{ID: "faq-cancel", Vector: []float32{1, 0, 0}, Payload: models.Payload{"knowledge_base_id": "kb-1", "title": "Cancel"}},
				{ID: "42", Vector: []float32{0.9, 0.1, 0}, Payload: models.Payload{"knowledge_base_id": "kb-2"}},
				{ID: "3f2b8c1e-9a4d-4e7f-8b2a-1c5d6e7f8a9b", Vector: []float32{0, 1, 0}, Payload: models.Payload{"knowledge_base_id": "kb-1"}},
			}))

			results, err := eng.Search(ctx, collection, models.VectorQuery{Vector: []float32{1, 0, 0}, Limit: 3})
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, "faq-cancel", results[0].ID)
			assert.Equal(t, "Cancel", results[0].Payload["title"])
			assert.NotContains(t, results[0].Payload, OriginalIDField)
			assert.Equal(t, "42", results[1].ID)
			assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

			filtered, err := eng.Search(ctx, collection, models.VectorQuery{
				Vector: []float32{1, 0, 0},
				Limit:  5,
				Must:   []models.FieldMatch{{Key: models.KnowledgeBaseIDField, Value: "kb-1"}},
			})
			require.NoError(t, err)
			require.Len(t, filtered, 2)

			for _, r := range filtered {
				assert.Equal(t, "kb-1", r.Payload["knowledge_base_id"])
			}

			require.NoError(t, eng.Delete(ctx, collection, []string{"faq-cancel"}))
			// Deleting an absent id is not an error.
			require.NoError(t, eng.Delete(ctx, collection, []string{"faq-cancel"}))

			results, err = eng.Search(ctx, collection, models.VectorQuery{Vector: []float32{1, 0, 0}, Limit: 3})
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "42", results[0].ID)
		})
	}
}
