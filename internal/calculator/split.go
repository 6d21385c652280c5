package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrUnknownParticipant   = errors.New("item participant is not on the bill")
)

// PersonSplit represents the calculated split for one person
type PersonSplit struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Item represents a single item on the bill
type Item struct {
	Description  string
	Amount       decimal.Decimal
	Participants []string
}

// CalculateSplit computes how much each person owes including proportional tax
// Based on the algorithm: person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
func CalculateSplit(items []Item, billTotal, billSubtotal decimal.Decimal, participants []string) (map[string]*PersonSplit, error) {
	if billSubtotal.IsZero() {
		return nil, fmt.Errorf("subtotal cannot be zero")
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	tax := billTotal.Sub(billSubtotal)
	splits := make(map[string]*PersonSplit, len(participants))
	for _, p := range participants {
		if _, dup := splits[p]; dup {
			return nil, fmt.Errorf("%s: %w", p, ErrDuplicateParticipant)
		}
		splits[p] = &PersonSplit{}
	}

	// No items: everyone pays the same share
	if len(items) == 0 {
		n := decimal.NewFromInt(int64(len(participants)))
		for _, split := range splits {
			split.Subtotal = billSubtotal.Div(n)
			split.Tax = tax.Div(n)
			split.Total = billTotal.Div(n)
		}
		return splits, nil
	}

	for _, item := range items {
		if len(item.Participants) == 0 {
			continue
		}
		seen := make(map[string]bool, len(item.Participants))
		for _, person := range item.Participants {
			if _, exists := splits[person]; !exists {
				return nil, fmt.Errorf("item %q, %s: %w", item.Description, person, ErrUnknownParticipant)
			}
			if seen[person] {
				return nil, fmt.Errorf("item %q, %s: %w", item.Description, person, ErrDuplicateParticipant)
			}
			seen[person] = true
		}

		share := item.Amount.Div(decimal.NewFromInt(int64(len(item.Participants))))
		for _, person := range item.Participants {
			splits[person].Subtotal = splits[person].Subtotal.Add(share)
		}
	}

	rate := tax.Div(billSubtotal)
	for _, split := range splits {
		split.Tax = split.Subtotal.Mul(rate)
		split.Total = split.Subtotal.Add(split.Tax)
	}

	return splits, nil
}

// BillIOUs turns a calculated split into debts owed to the payer.
// Shares are rounded to cents; the payer's own share and zero shares are skipped.
// participants fixes the order of the returned IOUs.
func BillIOUs(payer string, participants []string, splits map[string]*PersonSplit) []IOU {
	var ious []IOU
	for _, p := range participants {
		split, ok := splits[p]
		if !ok || p == payer {
			continue
		}
		amount := split.Total.Round(2)
		if !amount.IsPositive() {
			continue
		}
		ious = append(ious, IOU{Lender: payer, Borrower: p, Amount: amount})
	}
	return ious
}
