package models

// BillShare represents one participant's computed share of a bill.
// This is the API's read model: base amount as allocated, tax and tip as
// distributed by the API. The client never computes these itself.
type BillShare struct {
	// Owner is the participant this share belongs to.
	Owner User `json:"owner"`

	// BaseAmount is the allocated portion of the bill total. It is the only
	// editable part of a share.
	BaseAmount float64 `json:"base_amount"`

	// TaxAmount is this participant's part of the bill tax.
	TaxAmount float64 `json:"tax_amount"`

	// TipAmount is this participant's part of the tip.
	TipAmount float64 `json:"tip_amount"`

	// TotalOwed is BaseAmount + TaxAmount + TipAmount as rounded by the API.
	TotalOwed float64 `json:"total_owed"`
}

// ShareAllocation is the body of "share bill" (POST /bills/{id}/share).
// It replaces the bill's entire allocation; keys are user IDs.
type ShareAllocation struct {
	Shares map[int64]float64 `json:"shares"`
}
