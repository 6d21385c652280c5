// Package models defines the core domain models for Cashflow.
//
// # Models
//
//   - Ledger: a named group of people who lend each other money
//   - IOU: one debt inside a ledger (borrower owes lender)
//   - Payment: a transfer already made to pay debts down
//   - User: a registered account allowed to manage ledgers
//
// Ledger members, lenders and borrowers are identified by name strings, so
// people do not need an account to appear in a ledger.
//
// Relationships use ID strings instead of pointers. Amounts are
// decimal.Decimal and are never rounded by the models.
package models
