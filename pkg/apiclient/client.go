// Package apiclient is the shared HTTP plumbing of the embedding and vector service SDKs:
// JSON request/response handling, RFC 7807 error decoding and an optional retry policy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every call, matching the services' own upstream timeout.
const DefaultTimeout = 30 * time.Second

const (
	retryWaitMin = 100 * time.Millisecond
	retryWaitMax = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	// BaseURL of the service, e.g. http://localhost:8002. A trailing slash is trimmed.
	BaseURL string
	// Timeout per request (default: 30 seconds).
	Timeout time.Duration
	// RetryMax is the number of retries on connection errors and 5xx answers (default: 0, single attempt).
	RetryMax int
	// HTTPClient overrides the transport entirely; Timeout and RetryMax are ignored when set.
	HTTPClient *http.Client
}

// StatusError is a non-2xx answer. Detail is the problem+json detail when the service sent one.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service returned %d", e.StatusCode)
	}

	return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Detail)
}

// Client issues JSON requests against one service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. Requests carry trace context through an otelhttp transport.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newRetryingClient(opts)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: httpClient,
	}
}

func newRetryingClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max(opts.RetryMax, 0)
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.HTTPClient.Timeout = timeout
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(retryClient.HTTPClient.Transport)
	retryClient.Logger = nil
	// Hand the last response back untouched so its problem+json detail reaches the caller.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return retryClient.StandardClient()
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Do sends in (when non-nil) as JSON and decodes a 2xx body into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var p problem
	if json.Unmarshal(data, &p) == nil && (p.Detail != "" || p.Title != "") {
		statusErr.Detail = p.Detail
		if statusErr.Detail == "" {
			statusErr.Detail = p.Title
		}

		return statusErr
	}

	statusErr.Detail = strings.TrimSpace(string(data))

	return statusErr
}
