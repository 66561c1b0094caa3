package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal is the request/approve/reject state machine. The only legal
// transitions are pending→approved and pending→rejected; amount and
// destination are fixed at creation.
type Withdrawal struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Amount      int64
	Destination string
	// USDValue is the estimated reference-currency value at request time.
	// Zero when no rate was available.
	USDValue    decimal.Decimal
	Status      WithdrawalStatus
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy *uuid.UUID
	Note        *string
	ExternalRef *string
}
