package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/auth"
	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

type withdrawalService interface {
	Request(ctx context.Context, accountID uuid.UUID, amount int64, destination string) (*domain.Withdrawal, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Withdrawal, int, error)
}

type WithdrawalHandler struct {
	withdrawals withdrawalService
}

func NewWithdrawalHandler(withdrawals withdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type withdrawalRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

func (r withdrawalRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if r.Destination == "" {
		errs = append(errs, FieldError{Field: "destination", Message: "required"})
	}
	return errs
}

type withdrawalDTO struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	Amount      int64      `json:"amount"`
	Destination string     `json:"destination"`
	USDValue    string     `json:"usd_value"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy *uuid.UUID `json:"processed_by,omitempty"`
	Note        *string    `json:"note,omitempty"`
	ExternalRef *string    `json:"external_ref,omitempty"`
}

func toWithdrawalDTO(w *domain.Withdrawal) withdrawalDTO {
	return withdrawalDTO{
		ID:          w.ID,
		AccountID:   w.AccountID,
		Amount:      w.Amount,
		Destination: w.Destination,
		USDValue:    w.USDValue.String(),
		Status:      string(w.Status),
		RequestedAt: w.RequestedAt,
		ProcessedAt: w.ProcessedAt,
		ProcessedBy: w.ProcessedBy,
		Note:        w.Note,
		ExternalRef: w.ExternalRef,
	}
}

type withdrawalListResponse struct {
	Withdrawals []withdrawalDTO `json:"withdrawals"`
	Total       int             `json:"total"`
	Limit       int             `json:"limit"`
	Offset      int             `json:"offset"`
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	withdrawal, err := h.withdrawals.Request(r.Context(), identity.AccountID, req.Amount, req.Destination)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to request withdrawal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toWithdrawalDTO(withdrawal))
}

func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)
	withdrawals, total, err := h.withdrawals.ListByAccount(r.Context(), identity.AccountID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list withdrawals", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]withdrawalDTO, len(withdrawals))
	for i := range withdrawals {
		dtos[i] = toWithdrawalDTO(&withdrawals[i])
	}

	RespondSuccess(w, http.StatusOK, withdrawalListResponse{
		Withdrawals: dtos,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}
