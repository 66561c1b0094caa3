package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/repository"
	"github.com/mkamau/tokenvault/internal/service"
	"github.com/mkamau/tokenvault/internal/testutil"
)

// fixedQuoter serves a constant USD price, or none at all.
type fixedQuoter struct {
	price decimal.Decimal
	ok    bool
}

func (q fixedQuoter) CurrentUSDPrice(_ context.Context) (decimal.Decimal, bool) {
	return q.price, q.ok
}

func setupWithdrawalService(t *testing.T, db *sql.DB, quoter fixedQuoter, failOpen bool) *service.WithdrawalService {
	t.Helper()
	return service.NewWithdrawalService(
		repository.NewAccountRepository(db),
		repository.NewWithdrawalRepository(db),
		repository.NewRecordRepository(db),
		repository.NewSettingsRepository(db),
		quoter,
		repository.NewDB(db),
		failOpen,
	)
}

var quoterAt250 = fixedQuoter{price: decimal.NewFromFloat(2.50), ok: true}

func TestWithdrawalRequest_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "alice_wr", 1000)

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
	assert.Equal(t, int64(100), w.Amount)
	assert.True(t, w.USDValue.Equal(decimal.NewFromInt(250)), "100 tokens at 2.50 USD")

	// A request reserves nothing.
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, "pending", testutil.GetWithdrawalStatus(t, db, w.ID))
}

func TestWithdrawalRequest_BelowMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "bob_min", 1000)

	// 10 tokens at 2.50 = 25 USD, under the 40 USD default floor.
	_, err := svc.Request(ctx, acct.ID, 10, "addr-xyz")
	require.ErrorIs(t, err, domain.ErrBelowMinimum)

	var belowMin *domain.BelowMinimumError
	require.ErrorAs(t, err, &belowMin)
	assert.True(t, belowMin.EstimatedUSD.Equal(decimal.NewFromInt(25)))
	assert.True(t, belowMin.MinimumUSD.Equal(decimal.NewFromInt(40)))
}

func TestWithdrawalRequest_ConfiguredMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "carol_min", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_min")

	require.NoError(t, svc.SetMinWithdrawalUSD(ctx, decimal.NewFromInt(10), admin.ID))

	// 10 tokens at 2.50 = 25 USD now clears the lowered floor.
	w, err := svc.Request(ctx, acct.ID, 10, "addr-xyz")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
}

func TestWithdrawalRequest_NoRateFailOpen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, fixedQuoter{ok: false}, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "dave_norate", 1000)

	w, err := svc.Request(ctx, acct.ID, 1, "addr-xyz")
	require.NoError(t, err)
	assert.True(t, w.USDValue.IsZero())
}

func TestWithdrawalRequest_NoRateFailClosed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, fixedQuoter{ok: false}, false)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "erin_norate", 1000)

	_, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestWithdrawalRequest_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "frank_val", 1000)

	_, err := svc.Request(ctx, acct.ID, 0, "addr-xyz")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Request(ctx, acct.ID, 100, "   ")
	require.ErrorIs(t, err, domain.ErrInvalidDestination)

	_, err = svc.Request(ctx, acct.ID, 5000, "addr-xyz")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	frozen := testutil.SeedFrozenAccount(t, db, "frozen_val", 1000)
	_, err = svc.Request(ctx, frozen.ID, 100, "addr-xyz")
	require.ErrorIs(t, err, domain.ErrAccountFrozen)
}

func TestApprove_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "alice_ap", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap")

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	ref := "payout-123"
	approved, err := svc.Approve(ctx, w.ID, admin.ID, nil, &ref)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, admin.ID, *approved.ProcessedBy)
	require.NotNil(t, approved.ExternalRef)
	assert.Equal(t, "payout-123", *approved.ExternalRef)

	assert.Equal(t, int64(900), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, 1, testutil.CountRecords(t, db, acct.ID, domain.RecordKindWithdrawal))
	assert.Equal(t, "approved", testutil.GetWithdrawalStatus(t, db, w.ID))
}

func TestApprove_AlreadyProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "bob_ap2", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap2")

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, admin.ID, nil, nil)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, admin.ID, nil, nil)
	require.ErrorIs(t, err, domain.ErrWithdrawalNotPending)

	// Only one debit happened.
	assert.Equal(t, int64(900), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, 1, testutil.CountRecords(t, db, acct.ID, domain.RecordKindWithdrawal))
}

func TestApprove_InsufficientFundsAtApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "carol_ap3", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap3")

	w, err := svc.Request(ctx, acct.ID, 800, "addr-xyz")
	require.NoError(t, err)

	// The balance drops between request and approval.
	_, err = db.Exec(`UPDATE accounts SET balance = 500 WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, admin.ID, nil, nil)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(500), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, "pending", testutil.GetWithdrawalStatus(t, db, w.ID))
}

func TestApprove_FrozenAtApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "dave_ap4", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap4")

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE accounts SET frozen = true WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, admin.ID, nil, nil)
	require.ErrorIs(t, err, domain.ErrAccountFrozen)

	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, "pending", testutil.GetWithdrawalStatus(t, db, w.ID))
}

// faultingWithdrawalRepo fails the terminal status write, aborting the
// approval transaction after the debit has already been applied.
type faultingWithdrawalRepo struct {
	*repository.WithdrawalRepository
	markErr error
}

func (r *faultingWithdrawalRepo) MarkProcessed(_ context.Context, _ *sql.Tx, _ uuid.UUID, _ domain.WithdrawalStatus, _ uuid.UUID, _, _ *string, _ time.Time) error {
	return r.markErr
}

func TestApprove_RollsBackDebitOnFailedStatusWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "frank_ap6", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap6")

	w, err := setupWithdrawalService(t, db, quoterAt250, true).Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	writeErr := errors.New("status write failed")
	svc := service.NewWithdrawalService(
		repository.NewAccountRepository(db),
		&faultingWithdrawalRepo{WithdrawalRepository: repository.NewWithdrawalRepository(db), markErr: writeErr},
		repository.NewRecordRepository(db),
		repository.NewSettingsRepository(db),
		quoterAt250,
		repository.NewDB(db),
		true,
	)

	_, err = svc.Approve(ctx, w.ID, admin.ID, nil, nil)
	require.ErrorIs(t, err, writeErr)

	// The debit and the record append rolled back with the transaction.
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountRecords(t, db, acct.ID, domain.RecordKindWithdrawal))
	assert.Equal(t, "pending", testutil.GetWithdrawalStatus(t, db, w.ID))
}

func TestApprove_ConcurrentDoubleApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "erin_ap5", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_ap5")

	w, err := svc.Request(ctx, acct.ID, 400, "addr-xyz")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(ctx, w.ID, admin.ID, nil, nil)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrWithdrawalNotPending)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one approval should succeed")
	assert.Equal(t, 1, failures, "the second approval must be rejected")
	assert.Equal(t, int64(600), testutil.GetBalance(t, db, acct.ID), "the account is debited exactly once")
}

func TestReject_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "alice_rj", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_rj")

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	note := "suspicious destination"
	rejected, err := svc.Reject(ctx, w.ID, admin.ID, &note)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Note)
	assert.Equal(t, note, *rejected.Note)

	// Rejection never touches the balance.
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountRecords(t, db, acct.ID, domain.RecordKindWithdrawal))
}

func TestReject_NotFoundVsNotPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "bob_rj2", 1000)
	admin := testutil.SeedAdmin(t, db, "admin_rj2")

	_, err := svc.Reject(ctx, acct.ID, admin.ID, nil)
	require.ErrorIs(t, err, domain.ErrWithdrawalNotFound)

	w, err := svc.Request(ctx, acct.ID, 100, "addr-xyz")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, w.ID, admin.ID, nil)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, w.ID, admin.ID, nil)
	require.ErrorIs(t, err, domain.ErrWithdrawalNotPending)
}

func TestMinWithdrawal_DefaultAndOverride(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWithdrawalService(t, db, quoterAt250, true)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db, "admin_set")

	min, err := svc.MinWithdrawalUSD(ctx)
	require.NoError(t, err)
	assert.True(t, min.Equal(decimal.NewFromInt(40)))

	require.NoError(t, svc.SetMinWithdrawalUSD(ctx, decimal.RequireFromString("12.5"), admin.ID))

	min, err = svc.MinWithdrawalUSD(ctx)
	require.NoError(t, err)
	assert.True(t, min.Equal(decimal.RequireFromString("12.5")))

	err = svc.SetMinWithdrawalUSD(ctx, decimal.NewFromInt(-1), admin.ID)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}
