package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/knowledgebase/vectorhub/internal/models"
)

// GRPCClient talks to Qdrant over gRPC (default port 6334) using the official Go client.
type GRPCClient struct {
	client *qdrant.Client
}

// NewGRPCClient dials Qdrant at host:port. apiKey may be empty.
func NewGRPCClient(host string, port int, apiKey string) (*GRPCClient, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant grpc client: %w", err)
	}

	return &GRPCClient{client: client}, nil
}

// ListCollections returns the names of all collections.
func (c *GRPCClient) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	return names, nil
}

// CreateCollection creates collection with a single unnamed cosine vector.
func (c *GRPCClient) CreateCollection(ctx context.Context, collection models.Collection) error {
	distance, err := grpcDistance(collection.Distance)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collection.Name, err)
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(collection.Size), //nolint:gosec // size is validated positive by config
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collection.Name, err)
	}

	return nil
}

// Upsert writes points and waits until the engine has applied them.
func (c *GRPCClient) Upsert(ctx context.Context, collection string, points []models.IndexPoint) error {
	structs := make([]*qdrant.PointStruct, 0, len(points))

	for _, p := range points {
		pid := resolveID(p.ID)

		payload, err := qdrant.TryValueMap(storedPayload(p.ID, pid, p.Payload))
		if err != nil {
			return fmt.Errorf("convert payload for point %s: %w", p.ID, err)
		}

		structs = append(structs, &qdrant.PointStruct{
			Id:      grpcID(pid),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	wait := true

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	return nil
}

// Search returns the nearest points to q.Vector in engine order.
func (c *GRPCClient) Search(ctx context.Context, collection string, q models.VectorQuery) ([]models.SearchResult, error) {
	limit := uint64(q.Limit) //nolint:gosec // limit is clamped positive by the service

	req := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}

	if len(q.Must) > 0 {
		conditions := make([]*qdrant.Condition, len(q.Must))
		for i, m := range q.Must {
			conditions[i] = qdrant.NewMatch(m.Key, m.Value)
		}

		req.Filter = &qdrant.Filter{Must: conditions}
	}

	hits, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, restoreResult(grpcIDString(hit.GetId()), float64(hit.GetScore()), valueMapToAny(hit.GetPayload())))
	}

	return results, nil
}

// Delete removes points by id.
func (c *GRPCClient) Delete(ctx context.Context, collection string, ids []string) error {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = grpcID(resolveID(id))
	}

	wait := true

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}

	return nil
}

// Close closes the underlying gRPC connection.
func (c *GRPCClient) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close qdrant grpc client: %w", err)
	}

	return nil
}

func grpcDistance(d models.Distance) (qdrant.Distance, error) {
	if d != models.DistanceCosine {
		return qdrant.Distance_UnknownDistance, fmt.Errorf("%w: %q", ErrUnsupportedDistance, d)
	}

	return qdrant.Distance_Cosine, nil
}

func grpcID(pid pointID) *qdrant.PointId {
	if pid.isNum {
		return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: pid.num}}
	}

	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pid.uuid}}
}

func grpcIDString(id *qdrant.PointId) string {
	switch opt := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(opt.Num, 10)
	case *qdrant.PointId_Uuid:
		return opt.Uuid
	default:
		return ""
	}
}

func valueMapToAny(fields map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = valueToAny(v)
	}

	return out
}

// valueToAny converts a protobuf payload value into the JSON-shaped Go value the REST transport would yield.
func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return float64(kind.IntegerValue)
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return valueMapToAny(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()

		list := make([]any, len(values))
		for i, item := range values {
			list[i] = valueToAny(item)
		}

		return list
	default:
		return nil
	}
}
