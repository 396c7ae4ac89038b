package web

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/mmynk/billsplitter/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// embedLoader serves pongo2 templates from a flat fs.FS.
type embedLoader struct {
	fsys fs.FS
}

func (l *embedLoader) Abs(base, name string) string {
	return path.Clean(strings.TrimPrefix(name, "/"))
}

func (l *embedLoader) Get(name string) (io.Reader, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// renderer holds every page template, parsed once at startup.
type renderer struct {
	pages map[string]*pongo2.Template
}

func newRenderer() (*renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open templates: %w", err)
	}
	set := pongo2.NewSet("web", &embedLoader{fsys: sub})

	names, err := fs.Glob(sub, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	r := &renderer{pages: make(map[string]*pongo2.Template, len(names))}
	for _, name := range names {
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// execute renders page into a buffer so a template error never leaves a
// half-written response.
func (p *renderer) execute(page string, data pongo2.Context) (*bytes.Buffer, error) {
	tpl, ok := p.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown template %s", page)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(data, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", page, err)
	}
	return &buf, nil
}

// render writes page with status. Pending flash messages are merged into the
// page's own alerts and notices.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pongo2.Context) {
	if data == nil {
		data = pongo2.Context{}
	}

	notices, alerts := s.flash.pop(w, r)
	data["notices"] = append(notices, stringsOf(data["notices"])...)
	data["alerts"] = append(alerts, stringsOf(data["alerts"])...)

	buf, err := s.pages.execute(page, data)
	if err != nil {
		logging.FromContext(r.Context()).Error("Render failed", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows the error page with a single message.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", pongo2.Context{
		"title":   http.StatusText(status),
		"status":  status,
		"message": message,
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}

func stringsOf(v any) []string {
	if ss, ok := v.([]string); ok {
		return ss
	}
	return nil
}
