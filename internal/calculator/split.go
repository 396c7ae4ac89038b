package calculator

import (
	"fmt"
	"math"
)

// Allocation is one participant's base amount on a bill.
type Allocation struct {
	UserID int64
	Amount float64
}

// ShareSplit represents the calculated breakdown for one participant
type ShareSplit struct {
	UserID int64
	Base   float64
	Tax    float64
	Tip    float64
	Total  float64
}

// CalculateShares distributes a bill's tax and tip over its allocations.
// Tax follows each participant's ratio of the allocated subtotal:
// person_tax = tax × (base / subtotal). The tip follows the same ratio, or is
// divided equally when tipSplitEvenly is set. Every component is rounded to
// cents; Total is rounded after summing the rounded parts.
func CalculateShares(allocs []Allocation, tax, tip float64, tipSplitEvenly bool) []ShareSplit {
	if len(allocs) == 0 {
		return []ShareSplit{}
	}

	subtotal := 0.0
	for _, a := range allocs {
		subtotal += a.Amount
	}

	splits := make([]ShareSplit, len(allocs))
	for i, a := range allocs {
		ratio := 0.0
		if subtotal != 0 {
			ratio = a.Amount / subtotal
		}

		personTax := Round2(tax * ratio)
		var personTip float64
		if tipSplitEvenly {
			personTip = Round2(tip / float64(len(allocs)))
		} else {
			personTip = Round2(tip * ratio)
		}

		splits[i] = ShareSplit{
			UserID: a.UserID,
			Base:   a.Amount,
			Tax:    personTax,
			Tip:    personTip,
			Total:  Round2(a.Amount + personTax + personTip),
		}
	}
	return splits
}

// ValidateAllocations checks that no amount is negative and that the amounts
// add up to total within one cent.
func ValidateAllocations(allocs []Allocation, total float64) error {
	sum := 0.0
	for _, a := range allocs {
		if a.Amount < 0 {
			return fmt.Errorf("user %d has a negative share", a.UserID)
		}
		sum += a.Amount
	}
	sum = Round2(sum)
	if math.Abs(sum-total) > 0.01+1e-9 {
		return fmt.Errorf("shares total $%.2f, but bill total is $%.2f", sum, total)
	}
	return nil
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Truncate2 drops everything below a cent, as the API does when storing
// amounts.
func Truncate2(v float64) float64 {
	return math.Floor(v*100+1e-9) / 100
}
