package web

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/mmynk/billsplitter/pkg/logging"
)

const (
	sessionName = "billsplitter"

	flashNotice = "notice"
	flashAlert  = "alert"
)

// flashStore carries one-shot messages across a redirect in a signed cookie.
type flashStore struct {
	store *sessions.CookieStore
}

func newFlashStore(secret []byte) *flashStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &flashStore{store: store}
}

// add queues msg under kind for the next rendered page. Must run before the
// response is written.
func (f *flashStore) add(w http.ResponseWriter, r *http.Request, kind, msg string) {
	// A cookie signed with another key yields a fresh session and an error.
	session, _ := f.store.Get(r, sessionName)
	session.AddFlash(msg, kind)
	if err := session.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Error("Failed to save flash", "error", err)
	}
}

// pop removes and returns the pending notices and alerts.
func (f *flashStore) pop(w http.ResponseWriter, r *http.Request) (notices, alerts []string) {
	session, _ := f.store.Get(r, sessionName)

	notices = flashStrings(session.Flashes(flashNotice))
	alerts = flashStrings(session.Flashes(flashAlert))
	if len(notices) == 0 && len(alerts) == 0 {
		return nil, nil
	}

	if err := session.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Error("Failed to clear flashes", "error", err)
	}
	return notices, alerts
}

func flashStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (s *Server) notice(w http.ResponseWriter, r *http.Request, msg string) {
	s.flash.add(w, r, flashNotice, msg)
}

func (s *Server) alert(w http.ResponseWriter, r *http.Request, msg string) {
	s.flash.add(w, r, flashAlert, msg)
}
