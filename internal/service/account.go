package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/logging"
)

type AccountService struct {
	accounts accountRepository
}

func NewAccountService(accounts accountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) Register(ctx context.Context, handle, password string, role domain.AccountRole) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	handle = strings.TrimSpace(handle)
	if handle == "" || len(password) < 8 {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRequest)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Handle:       handle,
		PasswordHash: string(hash),
		Role:         role,
		Balance:      0,
		Frozen:       false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	log.Info("account registered",
		"account_id", account.ID,
		"handle", account.Handle,
		"role", account.Role,
	)

	return account, nil
}

func (s *AccountService) Authenticate(ctx context.Context, handle, password string) (*domain.Account, error) {
	account, err := s.accounts.GetByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("Authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Authenticate: %w", domain.ErrForbidden)
	}

	return account, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return account, nil
}

// SetFrozen flips the freeze flag. Freezing an already frozen account (or
// unfreezing an active one) is a no-op, not an error.
func (s *AccountService) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool, adminID uuid.UUID) error {
	log := logging.FromContext(ctx)

	if err := s.accounts.SetFrozen(ctx, id, frozen); err != nil {
		return fmt.Errorf("SetFrozen: %w", err)
	}

	log.Info("account freeze state changed",
		"account_id", id,
		"frozen", frozen,
		"admin_id", adminID,
	)
	return nil
}
