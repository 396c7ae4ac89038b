package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bill represents a shared expense as returned by the API.
// Identity is ID. A bill is only ever changed by a full-record update.
type Bill struct {
	// ID is the API-assigned identifier.
	ID int64 `json:"id"`

	// Description is optional; the API may return null, which decodes to "".
	Description string `json:"description"`

	// TotalAmount is the pre-tax, pre-tip amount that shares must add up to.
	TotalAmount float64 `json:"total_amount"`

	Tax float64 `json:"tax"`
	Tip float64 `json:"tip"`

	// TipSplitEvenly asks the API to divide the tip equally instead of in
	// proportion to each share.
	TipSplitEvenly Flag `json:"tip_split_evenly"`

	// Creator is the user who created the bill. It may be absent.
	Creator *User `json:"creator"`

	CreatedAt Timestamp `json:"created_at"`
}

// CreatorID returns the creator's ID, or 0 when the bill has no creator.
func (b *Bill) CreatorID() int64 {
	if b.Creator == nil {
		return 0
	}
	return b.Creator.ID
}

// CreatorName returns the creator's name, or "" when the bill has no creator.
func (b *Bill) CreatorName() string {
	if b.Creator == nil {
		return ""
	}
	return b.Creator.Name
}

// BillCreate is the body of both "create bill" (POST /bills) and
// "update bill" (PUT /bills/{id}). Updates always send every field.
type BillCreate struct {
	Description    string  `json:"description"`
	TotalAmount    float64 `json:"total_amount"`
	Tax            float64 `json:"tax"`
	Tip            float64 `json:"tip"`
	TipSplitEvenly bool    `json:"tip_split_evenly"`
	CreatedBy      int64   `json:"created_by"`
}

// Flag is a boolean that also accepts the 0/1 integer encoding.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.TrimSpace(data)); s {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", s)
		}
		*f = n != 0
	}
	return nil
}

// Timestamp is a time that accepts RFC 3339 as well as zone-less ISO 8601,
// which is assumed to be UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON parses any of the accepted layouts. null and "" leave the zero
// time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON emits RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
