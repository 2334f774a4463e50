package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/knowledgebase/vectorhub/internal/models"
)

const defaultRESTTimeout = 30 * time.Second

// ErrUnexpectedID is returned when the engine answers with a point id that is neither a string nor a number.
var ErrUnexpectedID = errors.New("qdrant: unexpected point id")

// ErrUnsupportedDistance is returned when a collection asks for a metric other than cosine.
var ErrUnsupportedDistance = errors.New("qdrant: unsupported distance")

// APIError is a non-2xx answer from the Qdrant REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("qdrant returned %d", e.StatusCode)
	}

	return fmt.Sprintf("qdrant returned %d: %s", e.StatusCode, e.Message)
}

// RESTClient talks to the Qdrant HTTP API (default port 6333).
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// RESTOption configures the RESTClient.
type RESTOption func(*RESTClient)

// WithAPIKey sends key in the api-key header on every request.
func WithAPIKey(key string) RESTOption {
	return func(c *RESTClient) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests, custom transports).
func WithHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTClient) {
		c.httpClient = client
	}
}

// NewRESTClient creates a client for the Qdrant REST API rooted at baseURL (e.g. http://localhost:6333).
func NewRESTClient(baseURL string, opts ...RESTOption) *RESTClient {
	client := &RESTClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   defaultRESTTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type restEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type restStatus struct {
	Error string `json:"error"`
}

type restCollections struct {
	Collections []struct {
		Name string `json:"name"`
	} `json:"collections"`
}

type restVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type restCreateCollection struct {
	Vectors restVectorParams `json:"vectors"`
}

type restPoint struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type restUpsert struct {
	Points []restPoint `json:"points"`
}

type restMatch struct {
	Value string `json:"value"`
}

type restCondition struct {
	Key   string    `json:"key"`
	Match restMatch `json:"match"`
}

type restFilter struct {
	Must []restCondition `json:"must"`
}

type restSearch struct {
	Vector      []float32   `json:"vector"`
	Limit       int         `json:"limit"`
	Filter      *restFilter `json:"filter,omitempty"`
	WithPayload bool        `json:"with_payload"`
}

type restScoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type restDelete struct {
	Points []any `json:"points"`
}

// ListCollections returns the names of all collections.
func (c *RESTClient) ListCollections(ctx context.Context) ([]string, error) {
	var out restCollections
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	names := make([]string, 0, len(out.Collections))
	for _, col := range out.Collections {
		names = append(names, col.Name)
	}

	return names, nil
}

// CreateCollection creates collection with a single unnamed vector of the configured size and distance.
func (c *RESTClient) CreateCollection(ctx context.Context, collection models.Collection) error {
	if collection.Distance != models.DistanceCosine {
		return fmt.Errorf("create collection %s: %w: %q", collection.Name, ErrUnsupportedDistance, collection.Distance)
	}

	body := restCreateCollection{
		Vectors: restVectorParams{Size: collection.Size, Distance: string(collection.Distance)},
	}

	if err := c.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(collection.Name), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", collection.Name, err)
	}

	return nil
}

// Upsert writes points and waits until the engine has applied them.
func (c *RESTClient) Upsert(ctx context.Context, collection string, points []models.IndexPoint) error {
	body := restUpsert{Points: make([]restPoint, len(points))}

	for i, p := range points {
		pid := resolveID(p.ID)
		body.Points[i] = restPoint{
			ID:      restID(pid),
			Vector:  p.Vector,
			Payload: storedPayload(p.ID, pid, p.Payload),
		}
	}

	path := "/collections/" + url.PathEscape(collection) + "/points?wait=true"
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	return nil
}

// Search returns the nearest points to q.Vector in engine order.
func (c *RESTClient) Search(ctx context.Context, collection string, q models.VectorQuery) ([]models.SearchResult, error) {
	body := restSearch{Vector: q.Vector, Limit: q.Limit, WithPayload: true}

	if len(q.Must) > 0 {
		filter := &restFilter{Must: make([]restCondition, len(q.Must))}
		for i, m := range q.Must {
			filter.Must[i] = restCondition{Key: m.Key, Match: restMatch{Value: m.Value}}
		}

		body.Filter = filter
	}

	var hits []restScoredPoint

	path := "/collections/" + url.PathEscape(collection) + "/points/search"
	if err := c.do(ctx, http.MethodPost, path, body, &hits); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))

	for _, hit := range hits {
		id, err := decodeRESTID(hit.ID)
		if err != nil {
			return nil, err
		}

		results = append(results, restoreResult(id, hit.Score, hit.Payload))
	}

	return results, nil
}

// Delete removes points by id. Ids that do not exist are ignored by the engine.
func (c *RESTClient) Delete(ctx context.Context, collection string, ids []string) error {
	body := restDelete{Points: make([]any, len(ids))}
	for i, id := range ids {
		body.Points[i] = restID(resolveID(id))
	}

	path := "/collections/" + url.PathEscape(collection) + "/points/delete?wait=true"
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}

	return nil
}

// Close releases idle connections.
func (c *RESTClient) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env restEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var status restStatus
		if decodeErr == nil && json.Unmarshal(env.Status, &status) == nil {
			apiErr.Message = status.Error
		}

		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	return nil
}

func restID(pid pointID) any {
	if pid.isNum {
		return pid.num
	}

	return pid.uuid
}

func decodeRESTID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnexpectedID, string(raw))
}
