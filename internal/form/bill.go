// Package form holds the state of the create and edit bill forms between
// requests: the scalar fields as typed, an ordered list of share rows, and the
// rules that turn them into API payloads.
package form

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmynk/billsplitter/internal/models"
)

// Field names shared by the templates and Parse.
const (
	FieldDescription    = "description"
	FieldTotal          = "total_amount"
	FieldTax            = "tax"
	FieldTip            = "tip"
	FieldTipSplitEvenly = "tip_split_evenly"
	FieldCreator        = "created_by"
	FieldShareCount     = "share_count"
)

// ShareUserField and ShareAmountField name the inputs of share row i.
func ShareUserField(i int) string   { return fmt.Sprintf("share_user_%d", i) }
func ShareAmountField(i int) string { return fmt.Sprintf("share_amount_%d", i) }

// MaxShares bounds the share rows read from a posted form.
const MaxShares = 100

// shareTolerance is the allowed gap between the share sum and the total.
// The extra 1e-9 keeps exact one-cent differences from failing on float noise.
const shareTolerance = 0.01 + 1e-9

// ShareInput is one share row as typed: a selected user id and an amount.
type ShareInput struct {
	UserID string
	Amount string
}

// BillForm is the create/edit form state. Every value is kept as typed so a
// rejected submission re-renders exactly what the user entered.
type BillForm struct {
	Description    string
	Total          string
	Tax            string
	Tip            string
	TipSplitEvenly bool
	CreatorID      string
	Shares         []ShareInput
}

// New returns an empty form.
func New() *BillForm {
	return &BillForm{Shares: []ShareInput{}}
}

// FromBill seeds a form from an existing bill and its computed shares. Share
// amounts come from base_amount; tax and tip portions are recomputed by the
// API and are not editable.
func FromBill(bill *models.Bill, shares []models.BillShare) *BillForm {
	f := &BillForm{
		Description:    bill.Description,
		Total:          formatAmount(bill.TotalAmount),
		Tax:            formatAmount(bill.Tax),
		Tip:            formatAmount(bill.Tip),
		TipSplitEvenly: bool(bill.TipSplitEvenly),
		Shares:         make([]ShareInput, 0, len(shares)),
	}
	if id := bill.CreatorID(); id != 0 {
		f.CreatorID = strconv.FormatInt(id, 10)
	}
	for _, s := range shares {
		f.Shares = append(f.Shares, ShareInput{
			UserID: strconv.FormatInt(s.Owner.ID, 10),
			Amount: formatAmount(s.BaseAmount),
		})
	}
	return f
}

// Parse reads a posted form. Share rows are read by position up to
// share_count, capped at MaxShares; missing inputs leave the row blank.
func Parse(values url.Values) *BillForm {
	f := &BillForm{
		Description:    values.Get(FieldDescription),
		Total:          strings.TrimSpace(values.Get(FieldTotal)),
		Tax:            strings.TrimSpace(values.Get(FieldTax)),
		Tip:            strings.TrimSpace(values.Get(FieldTip)),
		TipSplitEvenly: values.Get(FieldTipSplitEvenly) != "",
		CreatorID:      values.Get(FieldCreator),
	}

	count, err := strconv.Atoi(values.Get(FieldShareCount))
	if err != nil || count < 0 {
		count = 0
	}
	count = min(count, MaxShares)
	f.Shares = make([]ShareInput, count)
	for i := range count {
		f.SetShareUser(i, values.Get(ShareUserField(i)))
		f.SetShareAmount(i, strings.TrimSpace(values.Get(ShareAmountField(i))))
	}
	return f
}

// AddShare appends a blank share row. It refuses, returning false, once there
// is a row for every user since each user can appear at most once.
func (f *BillForm) AddShare(userCount int) bool {
	if len(f.Shares) >= userCount {
		return false
	}
	f.Shares = append(f.Shares, ShareInput{})
	return true
}

// SetShareUser changes the user of row i.
func (f *BillForm) SetShareUser(i int, userID string) bool {
	if i < 0 || i >= len(f.Shares) {
		return false
	}
	f.Shares[i].UserID = userID
	return true
}

// SetShareAmount changes the amount of row i.
func (f *BillForm) SetShareAmount(i int, amount string) bool {
	if i < 0 || i >= len(f.Shares) {
		return false
	}
	f.Shares[i].Amount = amount
	return true
}

// RemoveShare deletes row i, keeping the order of the others.
func (f *BillForm) RemoveShare(i int) bool {
	if i < 0 || i >= len(f.Shares) {
		return false
	}
	f.Shares = append(f.Shares[:i:i], f.Shares[i+1:]...)
	return true
}

// ShareSum adds up the share amounts. Blank or unparseable amounts count as 0.
func (f *BillForm) ShareSum() float64 {
	sum := 0.0
	for _, s := range f.Shares {
		if v, err := parseAmount(s.Amount); err == nil {
			sum += v
		}
	}
	return sum
}

// CheckShareTotal blocks a submission whose shares do not add up to the total
// within one cent. Forms without shares always pass, as do forms whose total
// is not a number; field validation reports those.
func (f *BillForm) CheckShareTotal() error {
	if len(f.Shares) == 0 {
		return nil
	}
	total := 0.0
	if f.Total != "" {
		v, err := parseAmount(f.Total)
		if err != nil {
			return nil
		}
		total = v
	}
	if math.Abs(f.ShareSum()-total) > shareTolerance {
		return &MismatchError{Total: total}
	}
	return nil
}

// UserOptions lists the users row i may select: everyone not already chosen
// in another row.
func (f *BillForm) UserOptions(i int, users []models.User) []models.User {
	taken := make(map[string]bool, len(f.Shares))
	for j, s := range f.Shares {
		if j != i && s.UserID != "" {
			taken[s.UserID] = true
		}
	}

	options := make([]models.User, 0, len(users))
	for _, u := range users {
		if !taken[strconv.FormatInt(u.ID, 10)] {
			options = append(options, u)
		}
	}
	return options
}

// MismatchError reports shares that do not add up to the bill total.
type MismatchError struct {
	Total float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Shares must add up to $%.2f", e.Total)
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
