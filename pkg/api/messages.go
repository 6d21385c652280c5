// Package api defines the Cashflow RPC messages and the Connect handlers
// and clients that carry them. Messages are plain Go structs encoded as
// JSON; validate tags are checked by the service layer.
package api

import "github.com/shopspring/decimal"

// IOU says Borrower owes Lender Amount.
type IOU struct {
	ID        string          `json:"id,omitempty"`
	Lender    string          `json:"lender" validate:"required,max=100"`
	Borrower  string          `json:"borrower" validate:"required,max=100"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty" validate:"max=500"`
	CreatedAt int64           `json:"createdAt,omitempty"`
}

// Transfer is one payment in a settlement plan.
type Transfer struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Payment is a transfer recorded against a ledger.
type Payment struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt int64           `json:"createdAt"`
}

type Ledger struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

type MemberBalance struct {
	MemberName    string          `json:"memberName"`
	NetBalance    decimal.Decimal `json:"netBalance"`
	TotalLent     decimal.Decimal `json:"totalLent"`
	TotalBorrowed decimal.Decimal `json:"totalBorrowed"`
}

type BillItem struct {
	Description  string          `json:"description" validate:"max=200"`
	Amount       decimal.Decimal `json:"amount"`
	Participants []string        `json:"participants" validate:"unique,dive,required"`
}

type MinimizeCashFlowRequest struct {
	IOUs []IOU `json:"ious" validate:"dive"`
	// Lenient folds self-loans and non-positive amounts into the balances
	// instead of rejecting them.
	Lenient bool `json:"lenient,omitempty"`
}

type MinimizeCashFlowResponse struct {
	TotalSettled decimal.Decimal `json:"totalSettled"`
	Transactions []Transfer      `json:"transactions"`
}

type CreateLedgerRequest struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Members []string `json:"members" validate:"dive,required,max=100"`
}

type CreateLedgerResponse struct {
	Ledger Ledger `json:"ledger"`
}

type GetLedgerRequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
}

type GetLedgerResponse struct {
	Ledger Ledger `json:"ledger"`
}

type ListLedgersRequest struct{}

type ListLedgersResponse struct {
	Ledgers []Ledger `json:"ledgers"`
}

type DeleteLedgerRequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
}

type DeleteLedgerResponse struct{}

type AddIOURequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
	IOU      IOU    `json:"iou"`
}

type AddIOUResponse struct {
	IOU IOU `json:"iou"`
}

type ListIOUsRequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
}

type ListIOUsResponse struct {
	IOUs     []IOU     `json:"ious"`
	Payments []Payment `json:"payments"`
}

type AddBillRequest struct {
	LedgerID     string          `json:"ledgerId" validate:"required"`
	Title        string          `json:"title" validate:"max=200"`
	Payer        string          `json:"payer" validate:"required"`
	Total        decimal.Decimal `json:"total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Participants []string        `json:"participants" validate:"min=1,unique,dive,required"`
	Items        []BillItem      `json:"items" validate:"dive"`
}

type AddBillResponse struct {
	IOUs []IOU `json:"ious"`
}

type GetLedgerBalancesRequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
}

type GetLedgerBalancesResponse struct {
	Balances    []MemberBalance `json:"balances"`
	Transfers   []Transfer      `json:"transfers"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type SettleLedgerRequest struct {
	LedgerID string `json:"ledgerId" validate:"required"`
	// Record stores the plan as payments, leaving the ledger fully settled.
	Record bool `json:"record,omitempty"`
}

type SettleLedgerResponse struct {
	TotalSettled decimal.Decimal `json:"totalSettled"`
	Transactions []Transfer      `json:"transactions"`
	Recorded     bool            `json:"recorded"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Password    string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both Register and Login.
type AuthResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
	ExpiresAt   int64  `json:"expiresAt"`
}
