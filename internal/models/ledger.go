package models

import "github.com/shopspring/decimal"

// Ledger is a named group of people who track debts between each other.
type Ledger struct {
	// ID is the unique identifier for the ledger (UUID format).
	ID string

	// Name is the display name of the ledger (e.g., "Roommates", "Ski Trip").
	Name string

	// Members is the list of participant names, sorted.
	Members []string

	// OwnerID is the user who created the ledger.
	OwnerID string

	// CreatedAt is the Unix timestamp when the ledger was created.
	CreatedAt int64
}

// IOU records that Borrower owes Lender Amount inside a ledger.
type IOU struct {
	// ID is the unique identifier for the IOU (UUID format).
	ID string

	// LedgerID is the ledger this IOU belongs to.
	LedgerID string

	Lender   string
	Borrower string

	// Amount is always positive.
	Amount decimal.Decimal

	// Note is an optional description (e.g., "Groceries").
	Note string

	// CreatedAt is the Unix timestamp when the IOU was recorded.
	CreatedAt int64
}

// Payment is money that already moved from a debtor to a creditor.
// Recorded payments count against the ledger's outstanding debts.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// LedgerID is the ledger this payment belongs to.
	LedgerID string

	// From is the member who paid (debtor settling up).
	From string

	// To is the member who received payment (creditor being paid).
	To string

	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this payment.
	CreatedBy string
}
