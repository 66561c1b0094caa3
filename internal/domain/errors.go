package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountFrozen        = errors.New("account frozen")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidDestination   = errors.New("destination must not be empty")
	ErrWithdrawalNotPending = errors.New("withdrawal already processed")
	ErrHandleTaken          = errors.New("handle already taken")
	ErrRateUnavailable      = errors.New("exchange rate unavailable")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrForbidden            = errors.New("forbidden")
)

// ErrBelowMinimum is the sentinel behind BelowMinimumError so callers can use
// plain errors.Is without caring about the carried values.
var ErrBelowMinimum = errors.New("withdrawal value below configured minimum")

// BelowMinimumError reports a withdrawal request whose estimated USD value is
// under the configured floor. Both values travel with the error so clients can
// render them without parsing the message.
type BelowMinimumError struct {
	EstimatedUSD decimal.Decimal
	MinimumUSD   decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("estimated value %s USD is below the minimum of %s USD",
		e.EstimatedUSD, e.MinimumUSD)
}

func (e *BelowMinimumError) Unwrap() error { return ErrBelowMinimum }
