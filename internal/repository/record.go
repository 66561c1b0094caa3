package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/domain"
)

const recordColumns = `id, account_id, kind, amount, annotation, created_at`

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create appends a record inside the transaction that mutates the balance, so
// the trail and the balance can never disagree.
func (r *RecordRepository) Create(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transaction_records (id, account_id, kind, amount, annotation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Annotation, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RecordRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.TransactionRecord, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_records WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM transaction_records
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return records, total, nil
}

func scanRecord(s scanner) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := s.Scan(
		&rec.ID, &rec.AccountID, &rec.Kind, &rec.Amount, &rec.Annotation, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
