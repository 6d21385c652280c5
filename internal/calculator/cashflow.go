package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cashflow/internal/pqueue"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrSelfLoan          = errors.New("lender and borrower must differ")
	ErrEmptyParty        = errors.New("lender and borrower are required")
)

// IOU records that Borrower owes Lender the given Amount.
type IOU struct {
	Lender   string
	Borrower string
	Amount   decimal.Decimal
}

// Party is one participant and their signed net balance.
// Positive = owed money, Negative = owes money.
type Party struct {
	Name    string
	Balance decimal.Decimal
}

// Transfer is a single payment that clears (part of) a debt.
type Transfer struct {
	From   string          `json:"from"` // debtor paying
	To     string          `json:"to"`   // creditor being paid
	Amount decimal.Decimal `json:"amount"`
}

// Result is the output of MinimizeCashFlow.
type Result struct {
	TotalSettled decimal.Decimal `json:"totalSettled"`
	Transactions []Transfer      `json:"transactions"`
}

type options struct {
	lenient bool
}

// Option tunes MinimizeCashFlow.
type Option func(*options)

// WithLenientInput skips input validation. Self-loans and non-positive
// amounts are folded into the net balances as plain arithmetic, which can
// swap the roles of lender and borrower.
func WithLenientInput() Option {
	return func(o *options) { o.lenient = true }
}

// ValidateIOUs rejects entries that cannot describe a real debt.
func ValidateIOUs(ious []IOU) error {
	for i, iou := range ious {
		switch {
		case iou.Lender == "" || iou.Borrower == "":
			return fmt.Errorf("iou %d: %w", i, ErrEmptyParty)
		case iou.Lender == iou.Borrower:
			return fmt.Errorf("iou %d (%s): %w", i, iou.Lender, ErrSelfLoan)
		case !iou.Amount.IsPositive():
			return fmt.Errorf("iou %d (%s -> %s, %s): %w", i, iou.Lender, iou.Borrower, iou.Amount, ErrNonPositiveAmount)
		}
	}
	return nil
}

// NetBalances sums every IOU into a per-party balance: +amount for the
// lender, -amount for the borrower. Parties are returned in order of first
// appearance and the balances always sum to exactly zero.
func NetBalances(ious []IOU) []Party {
	index := make(map[string]int)
	var parties []Party

	add := func(name string, delta decimal.Decimal) {
		i, ok := index[name]
		if !ok {
			i = len(parties)
			index[name] = i
			parties = append(parties, Party{Name: name, Balance: decimal.Zero})
		}
		parties[i].Balance = parties[i].Balance.Add(delta)
	}

	for _, iou := range ious {
		add(iou.Lender, iou.Amount)
		add(iou.Borrower, iou.Amount.Neg())
	}
	return parties
}

// MinimizeCashFlow computes a short list of transfers that clears every
// debt in ious.
//
// Algorithm:
//   - Net each party's balance across all IOUs
//   - Creditors (balance > 0) go into a max-queue, debtors (balance < 0)
//     into a min-queue; settled parties are skipped
//   - Repeatedly pair the top creditor with the top debtor, transfer the
//     smaller of the two magnitudes and re-queue whoever is not yet settled
//
// This is a greedy heuristic; it does not search for the optimal number
// of transfers. Among equal balances the pairing follows heap order, and
// the queues are seeded in first-appearance order, so a given input always
// yields the same transfers.
func MinimizeCashFlow(ious []IOU, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.lenient {
		if err := ValidateIOUs(ious); err != nil {
			return nil, err
		}
	}

	creditors := pqueue.New(func(a, b Party) bool { return a.Balance.GreaterThan(b.Balance) })
	debtors := pqueue.New(func(a, b Party) bool { return a.Balance.LessThan(b.Balance) })

	for _, p := range NetBalances(ious) {
		if p.Balance.IsPositive() {
			creditors.Insert(p)
		} else if p.Balance.IsNegative() {
			debtors.Insert(p)
		}
	}

	result := &Result{
		TotalSettled: decimal.Zero,
		Transactions: []Transfer{},
	}

	for !creditors.IsEmpty() && !debtors.IsEmpty() {
		creditor, _ := creditors.Extract()
		debtor, _ := debtors.Extract()

		amount := decimal.Min(creditor.Balance, debtor.Balance.Neg())

		result.Transactions = append(result.Transactions, Transfer{
			From:   debtor.Name,
			To:     creditor.Name,
			Amount: amount,
		})
		result.TotalSettled = result.TotalSettled.Add(amount)

		creditor.Balance = creditor.Balance.Sub(amount)
		debtor.Balance = debtor.Balance.Add(amount)

		// At most one of the two is still unsettled.
		if creditor.Balance.IsPositive() {
			creditors.Insert(creditor)
		}
		if debtor.Balance.IsNegative() {
			debtors.Insert(debtor)
		}
	}

	return result, nil
}

// ApplyTransfers replays transfers on top of the given balances and returns
// the resulting balances, keyed by party. Paying a debt raises the payer's
// balance and lowers the payee's.
func ApplyTransfers(parties []Party, transfers []Transfer) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(parties))
	for _, p := range parties {
		balances[p.Name] = balances[p.Name].Add(p.Balance)
	}
	for _, t := range transfers {
		balances[t.From] = balances[t.From].Add(t.Amount)
		balances[t.To] = balances[t.To].Sub(t.Amount)
	}
	return balances
}

// IsSettled reports whether every balance is exactly zero.
func IsSettled(balances map[string]decimal.Decimal) bool {
	for _, b := range balances {
		if !b.IsZero() {
			return false
		}
	}
	return true
}
