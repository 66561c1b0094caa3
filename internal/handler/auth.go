package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/auth"
	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

type authService interface {
	Register(ctx context.Context, handle, password string, role domain.AccountRole) (*domain.Account, error)
	Authenticate(ctx context.Context, handle, password string) (*domain.Account, error)
}

type AuthHandler struct {
	accounts  authService
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(accounts authService, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type registerRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (r registerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Handle == "" {
		errs = append(errs, FieldError{Field: "handle", Message: "required"})
	}
	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	return errs
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Handle == "" {
		errs = append(errs, FieldError{Field: "handle", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token   string     `json:"token"`
	Account accountDTO `json:"account"`
}

type accountDTO struct {
	ID        uuid.UUID `json:"id"`
	Handle    string    `json:"handle"`
	Role      string    `json:"role"`
	Balance   int64     `json:"balance"`
	Frozen    bool      `json:"frozen"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		Handle:    a.Handle,
		Role:      string(a.Role),
		Balance:   a.Balance,
		Frozen:    a.Frozen,
		CreatedAt: a.CreatedAt,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Handle, req.Password, domain.AccountRoleUser)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to register account", "error", err)
		RespondDomainError(w, err)
		return
	}

	token, err := auth.GenerateToken(account.ID, account.Handle, account.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusCreated, loginResponse{
		Token:   token,
		Account: toAccountDTO(account),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrForbidden) {
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	token, err := auth.GenerateToken(account.ID, account.Handle, account.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token:   token,
		Account: toAccountDTO(account),
	})
}
