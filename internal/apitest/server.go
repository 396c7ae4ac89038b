// Package apitest is a reference implementation of the bill-splitting API,
// backed by SQLite. Tests run the web client against it end to end, and
// cmd/fakeapi serves it for local development.
//
// Faults can be injected per route pattern with Fail and Stall, and every
// request is recorded so tests can assert that nothing was sent.
package apitest

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/mmynk/billsplitter/internal/calculator"
	"github.com/mmynk/billsplitter/internal/models"
)

// API serves the bill-splitting endpoints over a Store.
type API struct {
	store *Store
	mux   *http.ServeMux

	mu       sync.Mutex
	faults   map[string]int
	stalls   map[string]bool
	requests []string
}

// New creates an API over store.
func New(store *Store) *API {
	a := &API{
		store:  store,
		mux:    http.NewServeMux(),
		faults: make(map[string]int),
		stalls: make(map[string]bool),
	}
	a.routes()
	return a
}

// Start runs an API with a fresh in-memory store on a local test server and
// returns it with the server's base URL. Both are torn down with t.Cleanup.
func Start(t testing.TB) (*API, string) {
	t.Helper()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	api := New(store)
	srv := httptest.NewServer(api)

	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return api, srv.URL
}

// Store exposes the backing store for seeding and inspection.
func (a *API) Store() *Store {
	return a.store
}

// Fail makes every request matched by pattern (e.g. "DELETE /bills/{id}")
// answer status without touching the store. A zero status clears the fault.
func (a *API) Fail(pattern string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if status == 0 {
		delete(a.faults, pattern)
		return
	}
	a.faults[pattern] = status
}

// Stall makes every request matched by pattern hang until the client gives up.
func (a *API) Stall(pattern string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stalls[pattern] = true
}

// Requests returns every request received so far as "METHOD /path".
func (a *API) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

// CountRequests returns how many received requests equal "METHOD /path" or
// start with prefix when it ends in "*".
func (a *API) CountRequests(match string) int {
	n := 0
	for _, req := range a.Requests() {
		if prefix, ok := strings.CutSuffix(match, "*"); ok && strings.HasPrefix(req, prefix) || req == match {
			n++
		}
	}
	return n
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	a.mu.Unlock()

	a.mux.ServeHTTP(w, r)
}

func (a *API) routes() {
	a.handle("GET /{$}", a.handleRoot)

	a.handle("GET /users", a.handleListUsers)
	a.handle("POST /users", a.handleCreateUser)
	a.handle("GET /users/{id}", a.handleGetUser)
	a.handle("GET /users/{id}/bills", a.handleListUserBills)

	a.handle("GET /bills", a.handleListBills)
	a.handle("POST /bills", a.handleCreateBill)
	a.handle("GET /bills/{id}", a.handleGetBill)
	a.handle("PUT /bills/{id}", a.handleUpdateBill)
	a.handle("DELETE /bills/{id}", a.handleDeleteBill)
	a.handle("POST /bills/{id}/share", a.handleShareBill)
	a.handle("GET /bills/{id}/shares", a.handleListShares)
}

// handle registers h under pattern behind the fault injector.
func (a *API) handle(pattern string, h http.HandlerFunc) {
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		status, failing := a.faults[pattern]
		stalled := a.stalls[pattern]
		a.mu.Unlock()

		if stalled {
			<-r.Context().Done()
			return
		}
		if failing {
			respondError(w, status, "injected failure")
			return
		}
		h(w, r)
	})
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Bill Splitter API is running"})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		internalError(w, "ListUsers", err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respondError(w, http.StatusUnprocessableEntity, "name must not be empty")
		return
	}

	user, err := a.store.CreateUser(r.Context(), in.Name)
	if err != nil {
		internalError(w, "CreateUser", err)
		return
	}
	slog.Debug("User created", "user_id", user.ID)
	respondJSON(w, http.StatusOK, user)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := a.store.GetUser(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(w, "GetUser", err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *API) handleListUserBills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bills, err := a.store.ListBillsByCreator(r.Context(), id)
	if err != nil {
		internalError(w, "ListUserBills", err)
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

func (a *API) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := a.store.ListBills(r.Context())
	if err != nil {
		internalError(w, "ListBills", err)
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

func (a *API) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var in models.BillCreate
	if !decodeJSON(w, r, &in) || !validBill(w, in) {
		return
	}

	bill, err := a.store.CreateBill(r.Context(), in)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Creating user not found")
		return
	}
	if err != nil {
		internalError(w, "CreateBill", err)
		return
	}
	slog.Debug("Bill created", "bill_id", bill.ID)
	respondJSON(w, http.StatusOK, bill)
}

func (a *API) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, err := a.store.GetBill(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		internalError(w, "GetBill", err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

func (a *API) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.BillCreate
	if !decodeJSON(w, r, &in) || !validBill(w, in) {
		return
	}

	if _, err := a.store.GetBill(r.Context(), id); errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Bill not found")
		return
	}
	bill, err := a.store.UpdateBill(r.Context(), id, in)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Creating user not found")
		return
	}
	if err != nil {
		internalError(w, "UpdateBill", err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

func (a *API) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := a.store.DeleteBill(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		internalError(w, "DeleteBill", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Bill deleted successfully"})
}

// handleShareBill replaces a bill's allocation. The amounts must add up to the
// bill total, so an empty allocation is rejected for any non-zero bill.
func (a *API) handleShareBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.ShareAllocation
	if !decodeJSON(w, r, &in) {
		return
	}

	bill, err := a.store.GetBill(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		internalError(w, "ShareBill", err)
		return
	}

	allocs := make([]calculator.Allocation, 0, len(in.Shares))
	for userID, amount := range in.Shares {
		if amount < 0 {
			respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("User %d has a negative share", userID))
			return
		}
		allocs = append(allocs, calculator.Allocation{UserID: userID, Amount: amount})
	}
	slices.SortFunc(allocs, func(a, b calculator.Allocation) int { return cmp.Compare(a.UserID, b.UserID) })
	if err := calculator.ValidateAllocations(allocs, bill.TotalAmount); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = a.store.ReplaceShares(r.Context(), id, allocs)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(w, "ShareBill", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Bill shared successfully"})
}

func (a *API) handleListShares(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	shares, err := a.store.ListShares(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		internalError(w, "ListShares", err)
		return
	}
	respondJSON(w, http.StatusOK, shares)
}

func validBill(w http.ResponseWriter, in models.BillCreate) bool {
	switch {
	case in.TotalAmount <= 0:
		respondError(w, http.StatusUnprocessableEntity, "total_amount must be greater than 0")
	case in.Tax < 0:
		respondError(w, http.StatusUnprocessableEntity, "tax must not be negative")
	case in.Tip < 0:
		respondError(w, http.StatusUnprocessableEntity, "tip must not be negative")
	default:
		return true
	}
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "id must be an integer")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func internalError(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" failed", "error", err)
	respondError(w, http.StatusInternalServerError, "Internal Server Error")
}
