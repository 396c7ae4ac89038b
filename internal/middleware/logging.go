// Package middleware provides the HTTP middleware chain of the web client:
// request IDs, access logging and page metrics.
package middleware

import (
	"net/http"
	"time"

	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/pkg/logging"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logging logs every request and records it in m. It must wrap the ServeMux
// directly: the matched pattern is read from the request the mux routed.
func Logging(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := logging.FromContext(r.Context())

		logger.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		m.ObservePage(r.Pattern, r.Method, rec.status, duration)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("Request completed", attrs...)
		} else {
			logger.Info("Request completed", attrs...)
		}
	})
}
