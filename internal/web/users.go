package web

import (
	"net/http"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/models"
	"github.com/mmynk/billsplitter/pkg/logging"
)

type userRow struct {
	URL  string
	Name string
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, name string, alerts []string) {
	users, err := s.api.ListUsers(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("ListUsers failed", "error", err)
		alerts = append(alerts, "Failed to load users")
	}

	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{URL: userURL(u.ID), Name: u.Name}
	}

	s.render(w, r, status, "users.html", pongo2.Context{
		"title":  "Users",
		"users":  rows,
		"name":   name,
		"alerts": alerts,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.renderUsers(w, r, http.StatusOK, "", nil)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	logger := logging.FromContext(r.Context())

	name := strings.TrimSpace(r.PostForm.Get("name"))
	if name == "" {
		s.renderUsers(w, r, http.StatusUnprocessableEntity, "", []string{"Name is required"})
		return
	}

	user, err := s.api.CreateUser(r.Context(), name)
	if err != nil {
		logger.Error("CreateUser failed", "error", err)
		s.renderUsers(w, r, http.StatusBadGateway, name, []string{"Failed to add user"})
		return
	}

	logger.Info("User created", "user_id", user.ID)
	s.notice(w, r, "Added "+user.Name)
	redirect(w, r, "/users")
}

// handleUserDetail shows a user and the bills they created.
func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "userId")
	if !ok {
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx).With("user_id", id)

	var (
		wg       sync.WaitGroup
		user     *models.User
		userErr  error
		bills    []models.Bill
		billsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		user, userErr = s.api.GetUser(ctx, id)
	}()
	go func() {
		defer wg.Done()
		bills, billsErr = s.api.ListUserBills(ctx, id)
	}()
	wg.Wait()

	if billapi.IsNotFound(userErr) {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if userErr != nil {
		logger.Error("GetUser failed", "error", userErr)
		s.renderError(w, r, http.StatusBadGateway, "Failed to load user")
		return
	}

	var alerts []string
	if billsErr != nil {
		logger.Error("ListUserBills failed", "error", billsErr)
		alerts = append(alerts, "Failed to load bills")
	}

	s.render(w, r, http.StatusOK, "user.html", pongo2.Context{
		"title":  user.Name,
		"name":   user.Name,
		"bills":  newBillRows(bills),
		"alerts": alerts,
	})
}
