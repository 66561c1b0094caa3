package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/auth"
	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type ledgerService interface {
	Deposit(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.Account, error)
	ListRecords(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.TransactionRecord, int, error)
}

type AccountHandler struct {
	accounts accountReader
	ledger   ledgerService
}

func NewAccountHandler(accounts accountReader, ledger ledgerService) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), identity.AccountID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

func (r depositRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	return errs
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.ledger.Deposit(r.Context(), identity.AccountID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to deposit", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type recordDTO struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Amount     int64           `json:"amount"`
	Annotation json.RawMessage `json:"annotation,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type recordListResponse struct {
	Records []recordDTO `json:"records"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)
	records, total, err := h.ledger.ListRecords(r.Context(), identity.AccountID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list records", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]recordDTO, len(records))
	for i, rec := range records {
		dtos[i] = recordDTO{
			ID:         rec.ID,
			Kind:       string(rec.Kind),
			Amount:     rec.Amount,
			Annotation: rec.Annotation,
			CreatedAt:  rec.CreatedAt,
		}
	}

	RespondSuccess(w, http.StatusOK, recordListResponse{
		Records: dtos,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
