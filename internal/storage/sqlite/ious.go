package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/cashflow/internal/models"
)

// AddIOUs persists IOUs in a single transaction.
func (s *SQLiteStore) AddIOUs(ctx context.Context, ious []*models.IOU) error {
	if len(ious) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, iou := range ious {
		if iou.ID == "" {
			iou.ID = uuid.New().String()
		}
		if iou.CreatedAt == 0 {
			iou.CreatedAt = now
		}

		var note interface{} = nil
		if iou.Note != "" {
			note = iou.Note
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO ious (id, ledger_id, lender, borrower, amount, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			iou.ID, iou.LedgerID, iou.Lender, iou.Borrower, iou.Amount.String(), note, iou.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert iou: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListIOUs retrieves all IOUs of a ledger, oldest first.
func (s *SQLiteStore) ListIOUs(ctx context.Context, ledgerID string) ([]*models.IOU, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ledger_id, lender, borrower, amount, note, created_at
		 FROM ious WHERE ledger_id = ? ORDER BY seq`,
		ledgerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ious: %w", err)
	}
	defer rows.Close()

	var ious []*models.IOU
	for rows.Next() {
		iou := &models.IOU{}
		var amount string
		var note sql.NullString

		if err := rows.Scan(&iou.ID, &iou.LedgerID, &iou.Lender, &iou.Borrower,
			&amount, &note, &iou.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan iou: %w", err)
		}

		iou.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("iou %s has malformed amount %q: %w", iou.ID, amount, err)
		}
		if note.Valid {
			iou.Note = note.String
		}

		ious = append(ious, iou)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ious: %w", err)
	}

	return ious, nil
}

// RecordPayments persists payments in a single transaction.
func (s *SQLiteStore) RecordPayments(ctx context.Context, payments []*models.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, p := range payments {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, ledger_id, from_member, to_member, amount, created_at, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.LedgerID, p.From, p.To, p.Amount.String(), p.CreatedAt, p.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListPayments retrieves all payments of a ledger, oldest first.
func (s *SQLiteStore) ListPayments(ctx context.Context, ledgerID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ledger_id, from_member, to_member, amount, created_at, created_by
		 FROM payments WHERE ledger_id = ? ORDER BY seq`,
		ledgerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var amount string

		if err := rows.Scan(&p.ID, &p.LedgerID, &p.From, &p.To,
			&amount, &p.CreatedAt, &p.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("payment %s has malformed amount %q: %w", p.ID, amount, err)
		}

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}
