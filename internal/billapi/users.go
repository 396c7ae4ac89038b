package billapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmynk/billsplitter/internal/models"
)

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := c.do(ctx, endpoint{"ListUsers", "fetch users", http.MethodGet, "/users"}, nil, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := c.do(ctx, endpoint{"GetUser", "fetch user", http.MethodGet, userPath(id)}, nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a participant.
func (c *Client) CreateUser(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, endpoint{"CreateUser", "create user", http.MethodPost, "/users"}, models.UserCreate{Name: name}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUserBills returns the bills created by a user.
func (c *Client) ListUserBills(ctx context.Context, id int64) ([]models.Bill, error) {
	bills := []models.Bill{}
	err := c.do(ctx, endpoint{"ListUserBills", "fetch user bills", http.MethodGet, userPath(id) + "/bills"}, nil, &bills)
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}
