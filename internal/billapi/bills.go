package billapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmynk/billsplitter/internal/models"
)

// ListBills returns every bill.
func (c *Client) ListBills(ctx context.Context) ([]models.Bill, error) {
	bills := []models.Bill{}
	err := c.do(ctx, endpoint{"ListBills", "fetch bills", http.MethodGet, "/bills"}, nil, &bills)
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// GetBill returns one bill. A missing bill yields a 404 RequestError.
func (c *Client) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	var bill models.Bill
	err := c.do(ctx, endpoint{"GetBill", "fetch bill", http.MethodGet, billPath(id)}, nil, &bill)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// ListBillShares returns the API's computed shares for a bill. Callers decide
// what a 404 means; see IsNotFound.
func (c *Client) ListBillShares(ctx context.Context, id int64) ([]models.BillShare, error) {
	shares := []models.BillShare{}
	err := c.do(ctx, endpoint{"ListBillShares", "fetch shares", http.MethodGet, billPath(id) + "/shares"}, nil, &shares)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// CreateBill creates a bill and returns the stored record with its new ID.
func (c *Client) CreateBill(ctx context.Context, bill models.BillCreate) (*models.Bill, error) {
	var created models.Bill
	err := c.do(ctx, endpoint{"CreateBill", "create bill", http.MethodPost, "/bills"}, bill, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateBill replaces every scalar field of a bill.
func (c *Client) UpdateBill(ctx context.Context, id int64, bill models.BillCreate) error {
	return c.do(ctx, endpoint{"UpdateBill", "update bill", http.MethodPut, billPath(id)}, bill, nil)
}

// ShareBill replaces the bill's whole share allocation.
func (c *Client) ShareBill(ctx context.Context, id int64, alloc models.ShareAllocation) error {
	if alloc.Shares == nil {
		alloc.Shares = map[int64]float64{}
	}
	return c.do(ctx, endpoint{"ShareBill", "share bill", http.MethodPost, billPath(id) + "/share"}, alloc, nil)
}

// DeleteBill removes a bill and its shares.
func (c *Client) DeleteBill(ctx context.Context, id int64) error {
	return c.do(ctx, endpoint{"DeleteBill", "delete bill", http.MethodDelete, billPath(id)}, nil, nil)
}

// Ping checks that the API answers on its root path.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, endpoint{"Ping", "reach API", http.MethodGet, "/"}, nil, nil)
}

func billPath(id int64) string {
	return fmt.Sprintf("/bills/%d", id)
}
