package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/auth"
	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

type adminWithdrawalService interface {
	Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, note, externalRef *string) (*domain.Withdrawal, error)
	Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, note *string) (*domain.Withdrawal, error)
	ListPending(ctx context.Context) ([]domain.Withdrawal, error)
	MinWithdrawalUSD(ctx context.Context) (decimal.Decimal, error)
	SetMinWithdrawalUSD(ctx context.Context, min decimal.Decimal, adminID uuid.UUID) error
}

type adminLedgerService interface {
	Adjust(ctx context.Context, accountID uuid.UUID, delta int64, adminID uuid.UUID, reason string) (*domain.Account, error)
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int64) error
}

type adminAccountService interface {
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool, adminID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type AdminHandler struct {
	withdrawals adminWithdrawalService
	ledger      adminLedgerService
	accounts    adminAccountService
}

func NewAdminHandler(withdrawals adminWithdrawalService, ledger adminLedgerService, accounts adminAccountService) *AdminHandler {
	return &AdminHandler{
		withdrawals: withdrawals,
		ledger:      ledger,
		accounts:    accounts,
	}
}

func (h *AdminHandler) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.withdrawals.ListPending(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list pending withdrawals", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]withdrawalDTO, len(withdrawals))
	for i := range withdrawals {
		dtos[i] = toWithdrawalDTO(&withdrawals[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

type approveRequest struct {
	Note        *string `json:"note"`
	ExternalRef *string `json:"external_ref"`
}

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	identity, withdrawalID, appErr := adminAndPathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req approveRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
	}

	withdrawal, err := h.withdrawals.Approve(r.Context(), withdrawalID, identity.AccountID, req.Note, req.ExternalRef)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to approve withdrawal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWithdrawalDTO(withdrawal))
}

type rejectRequest struct {
	Note *string `json:"note"`
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	identity, withdrawalID, appErr := adminAndPathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req rejectRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
	}

	withdrawal, err := h.withdrawals.Reject(r.Context(), withdrawalID, identity.AccountID, req.Note)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to reject withdrawal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWithdrawalDTO(withdrawal))
}

type adjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

func (r adjustRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Delta == 0 {
		errs = append(errs, FieldError{Field: "delta", Message: "must not be zero"})
	}
	if r.Reason == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "required"})
	}
	return errs
}

func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	identity, accountID, appErr := adminAndPathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.ledger.Adjust(r.Context(), accountID, req.Delta, identity.AccountID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to adjust balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AdminHandler) FreezeAccount(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, true)
}

func (h *AdminHandler) UnfreezeAccount(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, false)
}

func (h *AdminHandler) setFrozen(w http.ResponseWriter, r *http.Request, frozen bool) {
	identity, accountID, appErr := adminAndPathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.accounts.SetFrozen(r.Context(), accountID, frozen, identity.AccountID); err != nil {
		logging.FromContext(r.Context()).Error("failed to change freeze state", "error", err)
		RespondDomainError(w, err)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type transferRequest struct {
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	Amount        int64     `json:"amount"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.FromAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "from_account_id", Message: "required"})
	}
	if r.ToAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "to_account_id", Message: "required"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	return errs
}

func (h *AdminHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.ledger.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		logging.FromContext(r.Context()).Error("failed to transfer", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "completed"})
}

type minWithdrawalResponse struct {
	MinWithdrawalUSD string `json:"min_withdrawal_usd"`
}

func (h *AdminHandler) GetMinWithdrawal(w http.ResponseWriter, r *http.Request) {
	min, err := h.withdrawals.MinWithdrawalUSD(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read minimum withdrawal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, minWithdrawalResponse{MinWithdrawalUSD: min.String()})
}

type setMinWithdrawalRequest struct {
	MinWithdrawalUSD string `json:"min_withdrawal_usd"`
}

func (h *AdminHandler) SetMinWithdrawal(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req setMinWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	min, err := decimal.NewFromString(req.MinWithdrawalUSD)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "min_withdrawal_usd", Message: "must be a decimal number"}})
		return
	}
	if min.IsNegative() {
		RespondValidationError(w, []FieldError{{Field: "min_withdrawal_usd", Message: "must not be negative"}})
		return
	}

	if err := h.withdrawals.SetMinWithdrawalUSD(r.Context(), min, identity.AccountID); err != nil {
		logging.FromContext(r.Context()).Error("failed to set minimum withdrawal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, minWithdrawalResponse{MinWithdrawalUSD: min.String()})
}

func adminAndPathID(r *http.Request) (auth.Identity, uuid.UUID, *AppError) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, uuid.Nil, ErrMissingToken
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return auth.Identity{}, uuid.Nil, ErrInvalidRequest
	}
	return identity, id, nil
}
