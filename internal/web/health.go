package web

import (
	"io"
	"net/http"

	"github.com/mmynk/billsplitter/pkg/logging"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

// handleReadyz reports ready only while the API answers.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.api.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "API unreachable\n")
		return
	}
	io.WriteString(w, "ready\n")
}
