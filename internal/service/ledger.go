package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

// LedgerService owns every balance mutation except withdrawal approval. Each
// mutation locks the affected rows, re-checks its preconditions under the
// lock, and appends the matching transaction record in the same transaction.
type LedgerService struct {
	accounts accountRepository
	records  recordRepository
	db       txRunner
}

func NewLedgerService(accounts accountRepository, records recordRepository, db txRunner) *LedgerService {
	return &LedgerService{accounts: accounts, records: records, db: db}
}

func (s *LedgerService) Deposit(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	var updated *domain.Account
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account.Frozen {
			return domain.ErrAccountFrozen
		}

		account.Balance += amount
		if err := s.accounts.UpdateBalance(ctx, tx, accountID, account.Balance); err != nil {
			return err
		}

		if err := s.records.Create(ctx, tx, &domain.TransactionRecord{
			ID:        uuid.New(),
			AccountID: accountID,
			Kind:      domain.RecordKindDeposit,
			Amount:    amount,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	log.Info("deposit applied",
		"account_id", accountID,
		"amount", amount,
		"balance", updated.Balance,
	)
	return updated, nil
}

func (s *LedgerService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int64) error {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}
	if fromID == toID {
		return fmt.Errorf("Transfer: %w", domain.ErrInvalidRequest)
	}

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		locked, err := lockAccountsInOrder(ctx, tx, s.accounts, fromID, toID)
		if err != nil {
			return err
		}
		from, to := locked[fromID], locked[toID]

		if from.Frozen {
			return fmt.Errorf("sender: %w", domain.ErrAccountFrozen)
		}
		if to.Frozen {
			return fmt.Errorf("recipient: %w", domain.ErrAccountFrozen)
		}
		if from.Balance < amount {
			return domain.ErrInsufficientFunds
		}

		if err := s.accounts.UpdateBalance(ctx, tx, fromID, from.Balance-amount); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, toID, to.Balance+amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		outAnnotation, _ := json.Marshal(map[string]string{"counterparty": toID.String()})
		if err := s.records.Create(ctx, tx, &domain.TransactionRecord{
			ID:         uuid.New(),
			AccountID:  fromID,
			Kind:       domain.RecordKindTransferOut,
			Amount:     -amount,
			Annotation: outAnnotation,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		inAnnotation, _ := json.Marshal(map[string]string{"counterparty": fromID.String()})
		if err := s.records.Create(ctx, tx, &domain.TransactionRecord{
			ID:         uuid.New(),
			AccountID:  toID,
			Kind:       domain.RecordKindTransferIn,
			Amount:     amount,
			Annotation: inAnnotation,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed",
		"from_account", fromID,
		"to_account", toID,
		"amount", amount,
	)
	return nil
}

// Adjust applies a signed admin correction. It works on frozen accounts, but
// still refuses to push the balance below zero.
func (s *LedgerService) Adjust(ctx context.Context, accountID uuid.UUID, delta int64, adminID uuid.UUID, reason string) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if delta == 0 {
		return nil, fmt.Errorf("Adjust: %w", domain.ErrInvalidAmount)
	}

	var updated *domain.Account
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}

		newBalance := account.Balance + delta
		if newBalance < 0 {
			return domain.ErrInsufficientFunds
		}

		account.Balance = newBalance
		if err := s.accounts.UpdateBalance(ctx, tx, accountID, newBalance); err != nil {
			return err
		}

		annotation, _ := json.Marshal(map[string]string{
			"admin_id": adminID.String(),
			"reason":   reason,
		})
		if err := s.records.Create(ctx, tx, &domain.TransactionRecord{
			ID:         uuid.New(),
			AccountID:  accountID,
			Kind:       domain.RecordKindAdminAdjust,
			Amount:     delta,
			Annotation: annotation,
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Adjust: %w", err)
	}

	log.Info("admin adjustment applied",
		"account_id", accountID,
		"delta", delta,
		"balance", updated.Balance,
		"admin_id", adminID,
	)
	return updated, nil
}

func (s *LedgerService) ListRecords(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.TransactionRecord, int, error) {
	records, total, err := s.records.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListRecords: %w", err)
	}
	return records, total, nil
}

// lockAccountsInOrder takes row locks in a stable order so concurrent
// transfers between the same pair cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepository, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
