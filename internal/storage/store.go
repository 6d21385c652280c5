// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/cashflow/internal/models"
)

// ErrNotFound is returned when a requested ledger does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore

	// CreateLedger persists a new ledger.
	// The ledger.ID and CreatedAt fields are populated by the store.
	CreateLedger(ctx context.Context, ledger *models.Ledger) error

	// GetLedger retrieves a ledger with its members.
	// Returns an error wrapping ErrNotFound if the ledger does not exist.
	GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error)

	// ListLedgers returns the ledgers owned by a user, newest first.
	ListLedgers(ctx context.Context, ownerID string) ([]*models.Ledger, error)

	// AddLedgerMembers adds names to a ledger; names already present are ignored.
	AddLedgerMembers(ctx context.Context, ledgerID string, names []string) error

	// DeleteLedger removes a ledger together with its IOUs and payments.
	DeleteLedger(ctx context.Context, ledgerID string) error

	// AddIOUs persists IOUs atomically. IDs and timestamps are populated.
	AddIOUs(ctx context.Context, ious []*models.IOU) error

	// ListIOUs returns a ledger's IOUs in the order they were recorded.
	ListIOUs(ctx context.Context, ledgerID string) ([]*models.IOU, error)

	// RecordPayments persists payments atomically. IDs and timestamps are populated.
	RecordPayments(ctx context.Context, payments []*models.Payment) error

	// ListPayments returns a ledger's payments in the order they were recorded.
	ListPayments(ctx context.Context, ledgerID string) ([]*models.Payment, error)

	// Close releases any resources held by the store.
	Close() error
}

// UserStore holds registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error when no user matches.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
