package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookie/models"
	"bookie/repository/testutil"
	"bookie/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_BalanceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewAccountRepository(testDB.DB)

	root, err := repo.Create(ctx, "house", models.RoleSuperAdmin, nil, 0)
	require.NoError(t, err)

	account, err := repo.Create(ctx, "punter", models.RoleUser, &root.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), account.Balance)

	// A second creator of the same username loses the uniqueness race
	dup, err := repo.Create(ctx, "punter", models.RoleUser, &root.ID, 1000)
	require.NoError(t, err)
	assert.Nil(t, dup)

	newBalance, err := repo.AddBalance(ctx, account.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), newBalance)

	newBalance, err = repo.DeductBalance(ctx, account.ID, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), newBalance)

	// A debit past zero fails and leaves the balance untouched
	_, err = repo.DeductBalance(ctx, account.ID, 1)
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	reloaded, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.Balance)

	_, err = repo.AddBalance(ctx, 99999, 100)
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}

func TestAccountRepository_ConcurrentBalanceUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewAccountRepository(testDB.DB)

	account, err := repo.Create(ctx, "punter", models.RoleUser, nil, 10000)
	require.NoError(t, err)

	const workers = 10
	const opsPerWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*opsPerWorker*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerWorker; j++ {
				if _, err := repo.AddBalance(ctx, account.ID, 7); err != nil {
					errs <- err
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerWorker; j++ {
				if _, err := repo.DeductBalance(ctx, account.ID, 3); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent balance update failed: %v", err)
	}

	// No interleaving loses an update: 10000 + 50*7 - 50*3
	reloaded, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10200), reloaded.Balance)
}

func TestRoundRepository_SingleWinnerCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewRoundRepository(testDB.DB)

	now := time.Now()
	first := testutil.CreateTestRound(models.GameSevenUpDown, now, 15*time.Minute)
	created, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	// A concurrent creator loses the uniqueness race
	second := testutil.CreateTestRound(models.GameSevenUpDown, now, 15*time.Minute)
	created, err = repo.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.GetByWindow(ctx, models.GameSevenUpDown, first.WindowStart)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	// A different game shares the clock grid but not the round
	other := testutil.CreateTestRound(models.GameCoinFlip, now, 15*time.Minute)
	created, err = repo.Create(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRoundRepository_SettlementClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewRoundRepository(testDB.DB)

	round := testutil.CreateTestRound(models.GameCoinFlip, time.Now(), 5*time.Minute)
	created, err := repo.Create(ctx, round)
	require.NoError(t, err)
	require.True(t, created)

	claimed, err := repo.ClaimSettlement(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Exactly one claimant wins
	claimed, err = repo.ClaimSettlement(ctx, round.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	err = repo.RecordResult(ctx, round.ID, "heads", 380)
	require.NoError(t, err)

	settled, err := repo.GetByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusSettled, settled.Status)
	assert.Equal(t, "heads", settled.WinningOutcome)
	assert.Equal(t, int64(380), settled.TotalPaid)
	assert.NotNil(t, settled.SettledAt)
}

func TestRoundRepository_ConcurrentCreationAndClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewRoundRepository(testDB.DB)
	now := time.Now()

	const contenders = 8

	var wg sync.WaitGroup
	var created atomic.Int32
	winnerIDs := make(chan int64, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			round := testutil.CreateTestRound(models.GameSevenUpDown, now, 15*time.Minute)
			ok, err := repo.Create(ctx, round)
			if err != nil {
				t.Errorf("concurrent round creation failed: %v", err)
				return
			}
			if ok {
				created.Add(1)
				winnerIDs <- round.ID
			}
		}()
	}
	wg.Wait()
	close(winnerIDs)

	// Exactly one creator wins the window
	require.Equal(t, int32(1), created.Load())
	winnerID := <-winnerIDs

	winner, err := repo.GetByWindow(ctx, models.GameSevenUpDown,
		testutil.CreateTestRound(models.GameSevenUpDown, now, 15*time.Minute).WindowStart)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, winnerID, winner.ID)

	var claimed atomic.Int32
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimSettlement(ctx, winnerID)
			if err != nil {
				t.Errorf("concurrent settlement claim failed: %v", err)
				return
			}
			if ok {
				claimed.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one claimant settles the round
	assert.Equal(t, int32(1), claimed.Load())
}

func TestWagerRepository_IdempotencyAndSettlement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	accountRepo := NewAccountRepository(testDB.DB)
	roundRepo := NewRoundRepository(testDB.DB)
	wagerRepo := NewWagerRepository(testDB.DB)

	account, err := accountRepo.Create(ctx, "punter", models.RoleUser, nil, 1000)
	require.NoError(t, err)

	round := testutil.CreateTestRound(models.GameSevenUpDown, time.Now(), 15*time.Minute)
	created, err := roundRepo.Create(ctx, round)
	require.NoError(t, err)
	require.True(t, created)

	key := "client-key-1"
	wager := testutil.CreateTestWager(round.ID, account.ID, "up", 100)
	wager.IdempotencyKey = &key
	require.NoError(t, wagerRepo.Create(ctx, wager))

	found, err := wagerRepo.GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, wager.ID, found.ID)

	missing, err := wagerRepo.GetByIdempotencyKey(ctx, "no-such-key")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, wagerRepo.MarkSettled(ctx, wager.ID, models.WagerStatusWon, 200))

	// Settling twice is rejected by the pending guard
	err = wagerRepo.MarkSettled(ctx, wager.ID, models.WagerStatusLost, 0)
	assert.Error(t, err)

	settled, err := wagerRepo.GetByID(ctx, wager.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WagerStatusWon, settled.Status)
	assert.Equal(t, int64(200), settled.Payout)
}

func TestCommissionRepository_DedupeAndTotals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	accountRepo := NewAccountRepository(testDB.DB)
	roundRepo := NewRoundRepository(testDB.DB)
	commissionRepo := NewCommissionRepository(testDB.DB)

	master, err := accountRepo.Create(ctx, "master", models.RoleMaster, nil, 0)
	require.NoError(t, err)
	bettor, err := accountRepo.Create(ctx, "punter", models.RoleUser, &master.ID, 1000)
	require.NoError(t, err)

	round := testutil.CreateTestRound(models.GameSevenUpDown, time.Now(), 15*time.Minute)
	created, err := roundRepo.Create(ctx, round)
	require.NoError(t, err)
	require.True(t, created)

	entry := &models.CommissionEntry{
		RoundID:       round.ID,
		BeneficiaryID: master.ID,
		SourceID:      bettor.ID,
		Level:         1,
		Rate:          0.015,
		Amount:        15,
	}
	inserted, err := commissionRepo.Create(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	// A re-run of propagation finds the entry already recorded
	duplicate := &models.CommissionEntry{
		RoundID:       round.ID,
		BeneficiaryID: master.ID,
		SourceID:      bettor.ID,
		Level:         1,
		Rate:          0.015,
		Amount:        15,
	}
	inserted, err = commissionRepo.Create(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, inserted)

	total, err := commissionRepo.TotalByRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	summary, err := commissionRepo.SummaryByBeneficiary(ctx, master.ID,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(15), summary.TotalAmount)
	assert.Equal(t, 1, summary.EntryCount)
}
