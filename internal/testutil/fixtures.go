package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkamau/tokenvault/internal/domain"
)

func SeedAccount(t *testing.T, db *sql.DB, handle string, balance int64) *domain.Account {
	t.Helper()
	return seedAccount(t, db, handle, domain.AccountRoleUser, balance, false)
}

func SeedFrozenAccount(t *testing.T, db *sql.DB, handle string, balance int64) *domain.Account {
	t.Helper()
	return seedAccount(t, db, handle, domain.AccountRoleUser, balance, true)
}

func SeedAdmin(t *testing.T, db *sql.DB, handle string) *domain.Account {
	t.Helper()
	return seedAccount(t, db, handle, domain.AccountRoleAdmin, 0, false)
}

func seedAccount(t *testing.T, db *sql.DB, handle string, role domain.AccountRole, balance int64, frozen bool) *domain.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	a := &domain.Account{
		ID:           uuid.New(),
		Handle:       handle,
		PasswordHash: string(hash),
		Role:         role,
		Balance:      balance,
		Frozen:       frozen,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO accounts (id, handle, password_hash, role, balance, frozen, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Handle, a.PasswordHash, a.Role, a.Balance, a.Frozen, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", handle, err)
	}
	return a
}

func GetBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %s: %v", accountID, err)
	}
	return balance
}

func CountRecords(t *testing.T, db *sql.DB, accountID uuid.UUID, kind domain.RecordKind) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transaction_records WHERE account_id = $1 AND kind = $2`,
		accountID, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count records for %s: %v", accountID, err)
	}
	return count
}

func GetWithdrawalStatus(t *testing.T, db *sql.DB, withdrawalID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM withdrawals WHERE id = $1`, withdrawalID).Scan(&status)
	if err != nil {
		t.Fatalf("get withdrawal status %s: %v", withdrawalID, err)
	}
	return status
}
