package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/domain"
)

const withdrawalColumns = `id, account_id, amount, destination, usd_value, status,
	requested_at, processed_at, processed_by, note, external_ref`

type WithdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO withdrawals (
			id, account_id, amount, destination, usd_value, status,
			requested_at, processed_at, processed_by, note, external_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.AccountID, w.Amount, w.Destination, w.USDValue, w.Status,
		w.RequestedAt, w.ProcessedAt, w.ProcessedBy, w.Note, w.ExternalRef,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id,
	)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrWithdrawalNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return w, nil
}

// MarkProcessed moves a pending withdrawal to its terminal status. The status
// guard in the WHERE clause makes a second approval or rejection a no-op that
// surfaces as ErrWithdrawalNotPending.
func (r *WithdrawalRepository) MarkProcessed(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.WithdrawalStatus, adminID uuid.UUID, note, externalRef *string, processedAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE withdrawals
		SET status = $1, processed_at = $2, processed_by = $3, note = $4, external_ref = $5
		WHERE id = $6 AND status = 'pending'`,
		status, processedAt, adminID, note, externalRef, id,
	)
	if err != nil {
		return fmt.Errorf("MarkProcessed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkProcessed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkProcessed: %w", domain.ErrWithdrawalNotPending)
	}
	return nil
}

func (r *WithdrawalRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Withdrawal, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE account_id = $1 ORDER BY requested_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return withdrawals, total, nil
}

func (r *WithdrawalRepository) ListPending(ctx context.Context) ([]domain.Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE status = 'pending' ORDER BY requested_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPending: scan: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPending: rows: %w", err)
	}
	return withdrawals, nil
}

func scanWithdrawal(s scanner) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var processedBy uuid.NullUUID
	err := s.Scan(
		&w.ID, &w.AccountID, &w.Amount, &w.Destination, &w.USDValue, &w.Status,
		&w.RequestedAt, &w.ProcessedAt, &processedBy, &w.Note, &w.ExternalRef,
	)
	if err != nil {
		return nil, err
	}
	if processedBy.Valid {
		w.ProcessedBy = &processedBy.UUID
	}
	return &w, nil
}
