// Package web serves the HTML pages of the bill splitter: the bill list,
// bill detail, create and edit forms, and the user pages. Every page fetches
// fresh data from the API; no state is kept between requests apart from
// one-shot flash messages.
package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/internal/middleware"
)

// Server renders pages backed by the bill API.
type Server struct {
	api     billapi.API
	pages   *renderer
	flash   *flashStore
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records page metrics in m and exposes them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates the page server. sessionSecret signs the flash cookie.
func NewServer(api billapi.API, sessionSecret []byte, opts ...Option) (*Server, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		api:   api,
		pages: pages,
		flash: newFlashStore(sessionSecret),
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s, nil
}

// Handler returns the routed pages behind request IDs and access logging.
func (s *Server) Handler() http.Handler {
	return middleware.RequestID(middleware.Logging(s.metrics, s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleListBills)
	s.mux.HandleFunc("GET /bills/delete/{billId}", s.handleConfirmDelete)
	s.mux.HandleFunc("POST /bills/delete/{billId}", s.handleDeleteBill)
	s.mux.HandleFunc("GET /bills/{billId}", s.handleBillDetail)

	s.mux.HandleFunc("GET /bills/new", s.handleNewBill)
	s.mux.HandleFunc("POST /bills/new", s.handleCreateBill)
	s.mux.HandleFunc("GET /bills/edit/{billId}", s.handleEditBill)
	s.mux.HandleFunc("POST /bills/edit/{billId}", s.handleUpdateBill)

	s.mux.HandleFunc("GET /users", s.handleListUsers)
	s.mux.HandleFunc("POST /users", s.handleCreateUser)
	s.mux.HandleFunc("GET /users/{userId}", s.handleUserDetail)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("/", s.notFound)
}

// pathID reads a numeric path value. Anything else gets the 404 page.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		s.notFound(w, r)
		return 0, false
	}
	return id, true
}

// redirect ends a POST with a 303 so a reload cannot resubmit it.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func billURL(id int64) string {
	return fmt.Sprintf("/bills/%d", id)
}

func userURL(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
