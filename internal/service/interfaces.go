package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/domain"
)

type accountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64) error
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error
}

type withdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Withdrawal, error)
	MarkProcessed(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.WithdrawalStatus, adminID uuid.UUID, note, externalRef *string, processedAt time.Time) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Withdrawal, int, error)
	ListPending(ctx context.Context) ([]domain.Withdrawal, error)
}

type recordRepository interface {
	Create(ctx context.Context, tx *sql.Tx, rec *domain.TransactionRecord) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.TransactionRecord, int, error)
}

type settingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// priceQuoter is the rates.Cache surface the withdrawal service needs. The
// bool is false when no price has ever been fetched.
type priceQuoter interface {
	CurrentUSDPrice(ctx context.Context) (decimal.Decimal, bool)
}
