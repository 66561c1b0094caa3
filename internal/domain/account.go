package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleAdmin AccountRole = "admin"
)

func (r AccountRole) IsValid() bool {
	return r == AccountRoleUser || r == AccountRoleAdmin
}

// Account holds both the caller identity and the token balance. Balance is in
// the token's smallest unit and never goes negative.
type Account struct {
	ID           uuid.UUID
	Handle       string
	PasswordHash string
	Role         AccountRole
	Balance      int64
	Frozen       bool
	CreatedAt    time.Time
}
