// Package middleware holds the HTTP middleware shared by the embedding and vector services.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/knowledgebase/vectorhub/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied ids before they reach logs.
const maxRequestIDLength = 128

// RequestID runs first in the chain. A client X-Request-ID is propagated; otherwise a UUIDv7 is generated.
// The id is stored in the context for logging and echoed in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.Must(uuid.NewV7()).String()
		}

		ctx := context.WithValue(r.Context(), observability.RequestIDKey, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
