package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mmynk/billsplitter/pkg/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for the inbound request's ID.
const RequestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID in and out, and on to the API.
const RequestIDHeader = "X-Request-ID"

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID assigns every request an ID, reusing a well-formed inbound
// X-Request-ID, and stores a logger tagged with it in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := WithRequestID(r.Context(), id)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
