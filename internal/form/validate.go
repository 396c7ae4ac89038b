package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/billsplitter/internal/models"
)

var validate = validator.New()

// ValidationErrors maps a form field (or "share_<i>") to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return strings.Join(parts, "; ")
}

// Submission is a validated form, ready to send.
type Submission struct {
	Bill   models.BillCreate
	Shares models.ShareAllocation
}

// amounts carries the parsed scalar fields through the range checks.
type amounts struct {
	Total   float64 `validate:"gt=0"`
	Tax     float64 `validate:"gte=0"`
	Tip     float64 `validate:"gte=0"`
	Creator int64   `validate:"gt=0"`
}

var rangeMessages = map[string]struct{ field, msg string }{
	"Total":   {FieldTotal, "Total amount must be greater than 0"},
	"Tax":     {FieldTax, "Tax must not be negative"},
	"Tip":     {FieldTip, "Tip must not be negative"},
	"Creator": {FieldCreator, "Select who created the bill"},
}

// Validate parses every field and returns the payloads to send, or
// ValidationErrors. users names duplicate selections.
func (f *BillForm) Validate(users []models.User) (*Submission, error) {
	errs := ValidationErrors{}
	var in amounts

	switch v, err := parseAmount(f.Total); {
	case f.Total == "":
		errs[FieldTotal] = "Total amount is required"
	case err != nil:
		errs[FieldTotal] = "Total amount must be a number"
	default:
		in.Total = v
	}
	in.Tax = optionalAmount(f.Tax, FieldTax, "Tax", errs)
	in.Tip = optionalAmount(f.Tip, FieldTip, "Tip", errs)

	switch id, err := strconv.ParseInt(f.CreatorID, 10, 64); {
	case f.CreatorID == "":
		errs[FieldCreator] = "Select who created the bill"
	case err != nil:
		errs[FieldCreator] = "Creator must be a user id"
	default:
		in.Creator = id
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("failed to validate form: %w", err)
		}
		for _, fe := range verrs {
			m := rangeMessages[fe.StructField()]
			if _, seen := errs[m.field]; !seen {
				errs[m.field] = m.msg
			}
		}
	}

	shares := f.validateShares(users, errs)

	if len(errs) > 0 {
		return nil, errs
	}
	return &Submission{
		Bill: models.BillCreate{
			Description:    strings.TrimSpace(f.Description),
			TotalAmount:    in.Total,
			Tax:            in.Tax,
			Tip:            in.Tip,
			TipSplitEvenly: f.TipSplitEvenly,
			CreatedBy:      in.Creator,
		},
		Shares: models.ShareAllocation{Shares: shares},
	}, nil
}

func (f *BillForm) validateShares(users []models.User, errs ValidationErrors) map[int64]float64 {
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	shares := make(map[int64]float64, len(f.Shares))
	for i, s := range f.Shares {
		key := fmt.Sprintf("share_%d", i)

		id, err := strconv.ParseInt(s.UserID, 10, 64)
		if err != nil {
			errs[key] = "Select a user"
			continue
		}

		amount := 0.0
		if s.Amount != "" {
			v, err := parseAmount(s.Amount)
			switch {
			case err != nil:
				errs[key] = "Amount must be a number"
				continue
			case v < 0:
				errs[key] = "Amount must not be negative"
				continue
			}
			amount = v
		}

		if _, dup := shares[id]; dup {
			name, ok := names[id]
			if !ok {
				name = "User " + s.UserID
			}
			errs[key] = name + " appears in more than one share"
			continue
		}
		shares[id] = amount
	}
	return shares
}

// optionalAmount parses a field where blank means 0.
func optionalAmount(raw, field, label string, errs ValidationErrors) float64 {
	if raw == "" {
		return 0
	}
	v, err := parseAmount(raw)
	if err != nil {
		errs[field] = label + " must be a number"
		return 0
	}
	return v
}
