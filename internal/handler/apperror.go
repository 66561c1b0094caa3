package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid handle or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Admin privileges required"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAccountFrozen        = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_FROZEN", "Account is frozen"}
	ErrAccountNotFound      = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrWithdrawalNotFound   = &AppError{http.StatusNotFound, "WITHDRAWAL_NOT_FOUND", "Withdrawal not found"}
	ErrWithdrawalNotPending = &AppError{http.StatusConflict, "WITHDRAWAL_NOT_PENDING", "Withdrawal has already been processed"}
	ErrHandleTaken          = &AppError{http.StatusConflict, "HANDLE_TAKEN", "Handle is already taken"}
	ErrBelowMinWithdrawal   = &AppError{http.StatusUnprocessableEntity, "BELOW_MIN_WITHDRAWAL", "Withdrawal value is below the configured minimum"}
	ErrRateUnavailable      = &AppError{http.StatusServiceUnavailable, "RATE_UNAVAILABLE", "Exchange rate is currently unavailable"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidDestination   = &AppError{http.StatusBadRequest, "INVALID_DESTINATION", "Destination must not be empty"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
