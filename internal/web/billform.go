package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/form"
	"github.com/mmynk/billsplitter/internal/models"
	"github.com/mmynk/billsplitter/pkg/logging"
)

// Form buttons are all named "action".
const (
	actionAddShare    = "add-share"
	actionRemoveShare = "remove-share"
	actionSubmit      = "submit"
)

// formPage is everything the bill form template needs besides the form.
type formPage struct {
	title      string
	actionURL  string
	cancelURL  string
	submit     string
	users      []models.User
	alerts     []string
	errors     form.ValidationErrors
	// createdURL links a bill that was created before its shares failed.
	createdURL string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// shareInputRow is one editable share row of the bill form.
type shareInputRow struct {
	Index       int
	UserField   string
	AmountField string
	Amount      string
	Options     []option
	Error       string
	RemoveValue string
}

func userOptions(users []models.User, selected string) []option {
	opts := make([]option, len(users))
	for i, u := range users {
		value := strconv.FormatInt(u.ID, 10)
		opts[i] = option{Value: value, Label: u.Name, Selected: value == selected}
	}
	return opts
}

func (s *Server) renderBillForm(w http.ResponseWriter, r *http.Request, status int, f *form.BillForm, page formPage) {
	rows := make([]shareInputRow, len(f.Shares))
	for i, sh := range f.Shares {
		rows[i] = shareInputRow{
			Index:       i,
			UserField:   form.ShareUserField(i),
			AmountField: form.ShareAmountField(i),
			Amount:      sh.Amount,
			Options:     userOptions(f.UserOptions(i, page.users), sh.UserID),
			Error:       page.errors[fmt.Sprintf("share_%d", i)],
			RemoveValue: fmt.Sprintf("%s:%d", actionRemoveShare, i),
		}
	}

	errs := map[string]string(page.errors)
	if errs == nil {
		errs = map[string]string{}
	}

	s.render(w, r, status, "bill_form.html", pongo2.Context{
		"title":          page.title,
		"actionURL":      page.actionURL,
		"cancelURL":      page.cancelURL,
		"submitLabel":    page.submit,
		"form":           f,
		"creatorOptions": userOptions(page.users, f.CreatorID),
		"shares":         rows,
		"shareCount":     len(f.Shares),
		"canAddShare":    len(f.Shares) < len(page.users),
		"errors":         errs,
		"alerts":         page.alerts,
		"createdURL":     page.createdURL,
	})
}

// loadUsers fetches the user list for the selectors. A failure leaves them
// empty and adds an alert.
func (s *Server) loadUsers(ctx context.Context, page *formPage) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("ListUsers failed", "error", err)
		page.alerts = append(page.alerts, "Failed to load users")
		return
	}
	page.users = users
}

// applyAction runs a share list button. It reports false for submit.
func applyAction(f *form.BillForm, action string, userCount int) bool {
	name, arg, _ := strings.Cut(action, ":")
	switch name {
	case actionAddShare:
		f.AddShare(userCount)
	case actionRemoveShare:
		if i, err := strconv.Atoi(arg); err == nil {
			f.RemoveShare(i)
		}
	default:
		return false
	}
	return true
}

// checkSubmission runs the checks that come before any request: shares must
// add up to the total, then every field must be valid. On failure it adds to
// page and returns nil.
func checkSubmission(f *form.BillForm, page *formPage) *form.Submission {
	if err := f.CheckShareTotal(); err != nil {
		page.alerts = append(page.alerts, err.Error())
		return nil
	}

	sub, err := f.Validate(page.users)
	var verrs form.ValidationErrors
	if errors.As(err, &verrs) {
		page.errors = verrs
		page.alerts = append(page.alerts, "Please correct the highlighted fields")
		return nil
	}
	if err != nil {
		page.alerts = append(page.alerts, err.Error())
		return nil
	}
	return sub
}

func newBillPage() formPage {
	return formPage{
		title:     "Create Bill",
		actionURL: "/bills/new",
		cancelURL: "/",
		submit:    "Create Bill",
	}
}

func (s *Server) handleNewBill(w http.ResponseWriter, r *http.Request) {
	page := newBillPage()
	s.loadUsers(r.Context(), &page)
	s.renderBillForm(w, r, http.StatusOK, form.New(), page)
}

// handleCreateBill creates the bill, then its shares, then shows it.
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	f := form.Parse(r.PostForm)
	page := newBillPage()
	s.loadUsers(ctx, &page)

	if applyAction(f, r.PostForm.Get("action"), len(page.users)) {
		s.renderBillForm(w, r, http.StatusOK, f, page)
		return
	}

	sub := checkSubmission(f, &page)
	if sub == nil {
		s.renderBillForm(w, r, http.StatusUnprocessableEntity, f, page)
		return
	}

	bill, err := s.api.CreateBill(ctx, sub.Bill)
	if err != nil {
		logger.Error("CreateBill failed", "error", err)
		page.alerts = append(page.alerts, "Failed to create bill")
		s.renderBillForm(w, r, http.StatusBadGateway, f, page)
		return
	}
	if len(f.Shares) > 0 {
		if err := s.api.ShareBill(ctx, bill.ID, sub.Shares); err != nil {
			logger.Error("ShareBill failed after create", "bill_id", bill.ID, "error", err)
			page.alerts = append(page.alerts, "Failed to create bill")
			page.createdURL = billURL(bill.ID)
			s.renderBillForm(w, r, http.StatusBadGateway, f, page)
			return
		}
	}

	logger.Info("Bill created", "bill_id", bill.ID, "shares", len(f.Shares))
	s.notice(w, r, "Bill created")
	redirect(w, r, billURL(bill.ID))
}

func editBillPage(id int64) formPage {
	return formPage{
		title:     "Edit Bill",
		actionURL: fmt.Sprintf("/bills/edit/%d", id),
		cancelURL: billURL(id),
		submit:    "Save Changes",
	}
}

// handleEditBill renders the edit form once the users, the bill and its
// shares have all been fetched.
func (s *Server) handleEditBill(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "billId")
	if !ok {
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx).With("bill_id", id)
	page := editBillPage(id)

	var (
		wg        sync.WaitGroup
		bill      *models.Bill
		billErr   error
		shares    []models.BillShare
		sharesErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.loadUsers(ctx, &page)
	}()
	go func() {
		defer wg.Done()
		bill, billErr = s.api.GetBill(ctx, id)
	}()
	go func() {
		defer wg.Done()
		shares, sharesErr = s.api.ListBillShares(ctx, id)
	}()
	wg.Wait()

	if billErr != nil {
		s.billLoadFailed(w, r, billErr)
		return
	}
	if sharesErr != nil && !billapi.IsNotFound(sharesErr) {
		logger.Error("ListBillShares failed", "error", sharesErr)
		page.alerts = append(page.alerts, "Failed to load bill")
	}
	if sharesErr != nil {
		shares = nil
	}

	s.renderBillForm(w, r, http.StatusOK, form.FromBill(bill, shares), page)
}

// handleUpdateBill replaces the bill's fields and then its whole share
// allocation, which is sent even when empty.
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "billId")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx).With("bill_id", id)

	f := form.Parse(r.PostForm)
	page := editBillPage(id)
	s.loadUsers(ctx, &page)

	if applyAction(f, r.PostForm.Get("action"), len(page.users)) {
		s.renderBillForm(w, r, http.StatusOK, f, page)
		return
	}

	sub := checkSubmission(f, &page)
	if sub == nil {
		s.renderBillForm(w, r, http.StatusUnprocessableEntity, f, page)
		return
	}

	err := s.api.UpdateBill(ctx, id, sub.Bill)
	if err == nil {
		err = s.api.ShareBill(ctx, id, sub.Shares)
	}
	if err != nil {
		logger.Error("UpdateBill failed", "error", err)
		msg := err.Error()
		if msg == "" {
			msg = "Failed to update bill"
		}
		page.alerts = append(page.alerts, msg)
		s.renderBillForm(w, r, http.StatusBadGateway, f, page)
		return
	}

	logger.Info("Bill updated", "shares", len(f.Shares))
	s.notice(w, r, "Bill updated")
	redirect(w, r, billURL(id))
}
