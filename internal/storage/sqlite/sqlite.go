// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/cashflow/internal/models"
	"github.com/mmynk/cashflow/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Foreign keys are a per-connection setting, so enable them in the DSN.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateLedger persists a new ledger and its members.
func (s *SQLiteStore) CreateLedger(ctx context.Context, ledger *models.Ledger) error {
	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}
	if ledger.CreatedAt == 0 {
		ledger.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO ledgers (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)",
		ledger.ID, ledger.Name, ledger.OwnerID, ledger.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger: %w", err)
	}

	if err := insertMembers(ctx, tx, ledger.ID, ledger.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	ledger.Members = dedupeSorted(ledger.Members)
	return nil
}

// GetLedger retrieves a ledger by ID, including its members.
func (s *SQLiteStore) GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error) {
	ledger := &models.Ledger{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at FROM ledgers WHERE id = ?",
		ledgerID,
	).Scan(&ledger.ID, &ledger.Name, &ledger.OwnerID, &ledger.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ledger %s: %w", ledgerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	members, err := s.listMembers(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	ledger.Members = members

	return ledger, nil
}

// ListLedgers retrieves all ledgers owned by ownerID.
func (s *SQLiteStore) ListLedgers(ctx context.Context, ownerID string) ([]*models.Ledger, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, owner_id, created_at FROM ledgers WHERE owner_id = ? ORDER BY created_at DESC, name",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}

	var ledgers []*models.Ledger
	for rows.Next() {
		ledger := &models.Ledger{}
		if err := rows.Scan(&ledger.ID, &ledger.Name, &ledger.OwnerID, &ledger.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		ledgers = append(ledgers, ledger)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate ledgers: %w", err)
	}
	// Close before issuing member queries; the pool holds a single connection.
	rows.Close()

	for _, ledger := range ledgers {
		members, err := s.listMembers(ctx, ledger.ID)
		if err != nil {
			return nil, err
		}
		ledger.Members = members
	}

	return ledgers, nil
}

// AddLedgerMembers adds names that are not yet members of the ledger.
func (s *SQLiteStore) AddLedgerMembers(ctx context.Context, ledgerID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ledgerExists(ctx, tx, ledgerID); err != nil {
		return err
	}
	if err := insertMembers(ctx, tx, ledgerID, names); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteLedger removes a ledger and everything recorded in it.
func (s *SQLiteStore) DeleteLedger(ctx context.Context, ledgerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ledgerExists(ctx, tx, ledgerID); err != nil {
		return err
	}

	for _, stmt := range []string{
		"DELETE FROM payments WHERE ledger_id = ?",
		"DELETE FROM ious WHERE ledger_id = ?",
		"DELETE FROM ledger_members WHERE ledger_id = ?",
		"DELETE FROM ledgers WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, ledgerID); err != nil {
			return fmt.Errorf("failed to delete ledger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, ledgerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM ledger_members WHERE ledger_id = ? ORDER BY name",
		ledgerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func ledgerExists(ctx context.Context, tx *sql.Tx, ledgerID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM ledgers WHERE id = ?", ledgerID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("ledger %s: %w", ledgerID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check ledger existence: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, ledgerID string, names []string) error {
	for _, name := range names {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO ledger_members (ledger_id, name) VALUES (?, ?)",
			ledgerID, name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

func dedupeSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
