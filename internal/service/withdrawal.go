package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

// WithdrawalService runs the request/approve/reject flow. A request reserves
// nothing: the account is only debited when an admin approves, and both the
// freeze flag and the balance are re-checked under the row lock at that point.
type WithdrawalService struct {
	accounts    accountRepository
	withdrawals withdrawalRepository
	records     recordRepository
	settings    settingsRepository
	rates       priceQuoter
	db          txRunner

	// failOpenNoRate lets requests through without the minimum-value check
	// when no USD rate has ever been fetched.
	failOpenNoRate bool
}

func NewWithdrawalService(
	accounts accountRepository,
	withdrawals withdrawalRepository,
	records recordRepository,
	settings settingsRepository,
	rates priceQuoter,
	db txRunner,
	failOpenNoRate bool,
) *WithdrawalService {
	return &WithdrawalService{
		accounts:       accounts,
		withdrawals:    withdrawals,
		records:        records,
		settings:       settings,
		rates:          rates,
		db:             db,
		failOpenNoRate: failOpenNoRate,
	}
}

func (s *WithdrawalService) Request(ctx context.Context, accountID uuid.UUID, amount int64, destination string) (*domain.Withdrawal, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Request: %w", domain.ErrInvalidAmount)
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("Request: %w", domain.ErrInvalidDestination)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("Request: %w", err)
	}
	if account.Frozen {
		return nil, fmt.Errorf("Request: %w", domain.ErrAccountFrozen)
	}
	// Advisory check only; the balance is re-verified under lock at approval.
	if account.Balance < amount {
		return nil, fmt.Errorf("Request: %w", domain.ErrInsufficientFunds)
	}

	usdValue := decimal.Zero
	price, ok := s.rates.CurrentUSDPrice(ctx)
	if ok {
		usdValue = decimal.NewFromInt(amount).Mul(price)

		minUSD, err := s.MinWithdrawalUSD(ctx)
		if err != nil {
			return nil, fmt.Errorf("Request: %w", err)
		}
		if usdValue.LessThan(minUSD) {
			return nil, fmt.Errorf("Request: %w", &domain.BelowMinimumError{
				EstimatedUSD: usdValue,
				MinimumUSD:   minUSD,
			})
		}
	} else if !s.failOpenNoRate {
		return nil, fmt.Errorf("Request: %w", domain.ErrRateUnavailable)
	} else {
		log.Warn("no USD rate available, skipping minimum-value check",
			"account_id", accountID,
			"amount", amount,
		)
	}

	w := &domain.Withdrawal{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Destination: destination,
		USDValue:    usdValue,
		Status:      domain.WithdrawalStatusPending,
		RequestedAt: time.Now().UTC(),
	}

	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("Request: %w", err)
	}

	log.Info("withdrawal requested",
		"withdrawal_id", w.ID,
		"account_id", accountID,
		"amount", amount,
		"usd_value", usdValue,
	)
	return w, nil
}

func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, note, externalRef *string) (*domain.Withdrawal, error) {
	log := logging.FromContext(ctx)

	var approved *domain.Withdrawal
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		w, err := s.withdrawals.GetForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != domain.WithdrawalStatusPending {
			return domain.ErrWithdrawalNotPending
		}

		account, err := s.accounts.GetForUpdate(ctx, tx, w.AccountID)
		if err != nil {
			return err
		}
		if account.Frozen {
			return domain.ErrAccountFrozen
		}
		if account.Balance < w.Amount {
			return domain.ErrInsufficientFunds
		}

		if err := s.accounts.UpdateBalance(ctx, tx, w.AccountID, account.Balance-w.Amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		annotation, _ := json.Marshal(map[string]any{
			"withdrawal_id": w.ID.String(),
			"destination":   w.Destination,
			"admin_id":      adminID.String(),
			"external_ref":  externalRef,
		})
		if err := s.records.Create(ctx, tx, &domain.TransactionRecord{
			ID:         uuid.New(),
			AccountID:  w.AccountID,
			Kind:       domain.RecordKindWithdrawal,
			Amount:     -w.Amount,
			Annotation: annotation,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		if err := s.withdrawals.MarkProcessed(ctx, tx, w.ID, domain.WithdrawalStatusApproved, adminID, note, externalRef, now); err != nil {
			return err
		}

		w.Status = domain.WithdrawalStatusApproved
		w.ProcessedAt = &now
		w.ProcessedBy = &adminID
		w.Note = note
		w.ExternalRef = externalRef
		approved = w
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Approve: %w", err)
	}

	log.Info("withdrawal approved",
		"withdrawal_id", approved.ID,
		"account_id", approved.AccountID,
		"amount", approved.Amount,
		"admin_id", adminID,
	)
	return approved, nil
}

func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, note *string) (*domain.Withdrawal, error) {
	log := logging.FromContext(ctx)

	var rejected *domain.Withdrawal
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		w, err := s.withdrawals.GetForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != domain.WithdrawalStatusPending {
			return domain.ErrWithdrawalNotPending
		}

		now := time.Now().UTC()
		if err := s.withdrawals.MarkProcessed(ctx, tx, w.ID, domain.WithdrawalStatusRejected, adminID, note, nil, now); err != nil {
			return err
		}

		w.Status = domain.WithdrawalStatusRejected
		w.ProcessedAt = &now
		w.ProcessedBy = &adminID
		w.Note = note
		rejected = w
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Reject: %w", err)
	}

	log.Info("withdrawal rejected",
		"withdrawal_id", rejected.ID,
		"account_id", rejected.AccountID,
		"admin_id", adminID,
	)
	return rejected, nil
}

func (s *WithdrawalService) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Withdrawal, int, error) {
	withdrawals, total, err := s.withdrawals.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	return withdrawals, total, nil
}

func (s *WithdrawalService) ListPending(ctx context.Context) ([]domain.Withdrawal, error) {
	withdrawals, err := s.withdrawals.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	return withdrawals, nil
}

func (s *WithdrawalService) MinWithdrawalUSD(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.settings.Get(ctx, domain.SettingMinWithdrawalUSD)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultMinWithdrawalUSD, nil
		}
		return decimal.Zero, fmt.Errorf("MinWithdrawalUSD: %w", err)
	}

	min, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("MinWithdrawalUSD: parse %q: %w", raw, err)
	}
	return min, nil
}

func (s *WithdrawalService) SetMinWithdrawalUSD(ctx context.Context, min decimal.Decimal, adminID uuid.UUID) error {
	log := logging.FromContext(ctx)

	if min.IsNegative() {
		return fmt.Errorf("SetMinWithdrawalUSD: %w", domain.ErrInvalidAmount)
	}

	if err := s.settings.Set(ctx, domain.SettingMinWithdrawalUSD, min.String()); err != nil {
		return fmt.Errorf("SetMinWithdrawalUSD: %w", err)
	}

	log.Info("minimum withdrawal value updated",
		"min_usd", min,
		"admin_id", adminID,
	)
	return nil
}
