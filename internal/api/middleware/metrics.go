package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/knowledgebase/vectorhub/internal/observability"
)

// Metrics records request count and duration per route pattern. When metrics is nil, recording is skipped.
func Metrics(metrics observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			metrics.RecordRequest(r.Context(), r.Method, routeOf(r), statusToClass(rw.statusCode), time.Since(start))
		})
	}
}

// routeOf returns the matched ServeMux pattern path ("/delete/{id}"), which keeps route cardinality bounded.
// Requests that matched nothing are grouped under "unmatched".
func routeOf(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return "unmatched"
	}

	// Patterns carry the method ("DELETE /delete/{id}"); the method is its own label.
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}

	return pattern
}

// statusToClass maps HTTP status code to 1xx, 2xx, 3xx, 4xx, 5xx.
func statusToClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
