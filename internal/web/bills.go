package web

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/models"
	"github.com/mmynk/billsplitter/pkg/logging"
)

// billRow is one line of a bill table.
type billRow struct {
	URL         string
	DeleteURL   string
	Description string
	Total       string
	Creator     string
}

func newBillRow(b models.Bill) billRow {
	return billRow{
		URL:         billURL(b.ID),
		DeleteURL:   fmt.Sprintf("/bills/delete/%d", b.ID),
		Description: describe(b.Description),
		Total:       money(b.TotalAmount),
		Creator:     b.CreatorName(),
	}
}

func newBillRows(bills []models.Bill) []billRow {
	rows := make([]billRow, len(bills))
	for i, b := range bills {
		rows[i] = newBillRow(b)
	}
	return rows
}

// shareRow is one line of the detail page's share table.
type shareRow struct {
	User  string
	Base  string
	Tax   string
	Tip   string
	Total string
}

func describe(description string) string {
	if strings.TrimSpace(description) == "" {
		return "Untitled bill"
	}
	return description
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var alerts []string
	bills, err := s.api.ListBills(r.Context())
	if err != nil {
		logger.Error("ListBills failed", "error", err)
		alerts = append(alerts, "Failed to load bills")
	}

	s.render(w, r, http.StatusOK, "list.html", pongo2.Context{
		"title":  "Bills",
		"bills":  newBillRows(bills),
		"alerts": alerts,
	})
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "billId")
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "confirm_delete.html", pongo2.Context{
		"title":     "Delete bill",
		"deleteURL": fmt.Sprintf("/bills/delete/%d", id),
	})
}

// handleDeleteBill deletes and returns to the list, which is fetched again so
// a failed delete leaves the bill in place.
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "billId")
	if !ok {
		return
	}
	logger := logging.FromContext(r.Context())

	if err := s.api.DeleteBill(r.Context(), id); err != nil {
		logger.Error("DeleteBill failed", "bill_id", id, "error", err)
		s.alert(w, r, "Failed to delete bill")
		redirect(w, r, "/")
		return
	}

	logger.Info("Bill deleted", "bill_id", id)
	s.notice(w, r, "Bill deleted")
	redirect(w, r, "/")
}

// handleBillDetail fetches the bill and its shares concurrently. Any failure
// to fetch shares shows the bill without shares.
func (s *Server) handleBillDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "billId")
	if !ok {
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx).With("bill_id", id)

	var (
		wg      sync.WaitGroup
		bill    *models.Bill
		billErr error
		shares  []models.BillShare
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		bill, billErr = s.api.GetBill(ctx, id)
	}()
	go func() {
		defer wg.Done()
		got, err := s.api.ListBillShares(ctx, id)
		switch {
		case billapi.IsNotFound(err):
		case err != nil:
			logger.Error("ListBillShares failed", "error", err)
		default:
			shares = got
		}
	}()
	wg.Wait()

	if billErr != nil {
		s.billLoadFailed(w, r, billErr)
		return
	}

	rows := make([]shareRow, len(shares))
	var base, owed float64
	for i, sh := range shares {
		rows[i] = shareRow{
			User:  sh.Owner.Name,
			Base:  money(sh.BaseAmount),
			Tax:   money(sh.TaxAmount),
			Tip:   money(sh.TipAmount),
			Total: money(sh.TotalOwed),
		}
		base += sh.BaseAmount
		owed += sh.TotalOwed
	}

	tipMode := "Proportional to shares"
	if bill.TipSplitEvenly {
		tipMode = "Split evenly"
	}

	s.render(w, r, http.StatusOK, "detail.html", pongo2.Context{
		"title":       describe(bill.Description),
		"description": describe(bill.Description),
		"total":       money(bill.TotalAmount),
		"tax":         money(bill.Tax),
		"tip":         money(bill.Tip),
		"tipMode":     tipMode,
		"creator":     bill.CreatorName(),
		"creatorURL":  creatorURL(bill),
		"shares":      rows,
		"baseSum":     money(base),
		"owedSum":     money(owed),
		"editURL":     fmt.Sprintf("/bills/edit/%d", bill.ID),
		"deleteURL":   fmt.Sprintf("/bills/delete/%d", bill.ID),
	})
}

// billLoadFailed renders the page for a bill that could not be fetched.
func (s *Server) billLoadFailed(w http.ResponseWriter, r *http.Request, err error) {
	if billapi.IsNotFound(err) {
		s.renderError(w, r, http.StatusNotFound, "Bill not found")
		return
	}
	logging.FromContext(r.Context()).Error("GetBill failed", "error", err)
	s.renderError(w, r, http.StatusBadGateway, "Failed to load bill")
}

func creatorURL(b *models.Bill) string {
	if b.Creator == nil {
		return ""
	}
	return userURL(b.Creator.ID)
}
