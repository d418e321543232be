package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bookie/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func dueRound(id int64, gameType models.GameType, now time.Time, totalWagered int64) *models.Round {
	return &models.Round{
		ID:           id,
		GameType:     gameType,
		WindowStart:  now.Add(-20 * time.Minute),
		WindowEnd:    now.Add(-5 * time.Minute),
		Status:       models.RoundStatusOpen,
		TotalWagered: totalWagered,
	}
}

func newSettlementServiceForTest(commissions CommissionService) (*settlementService, *MockUnitOfWorkFactory, *MockUnitOfWork, *MockAccountRepository, *MockRoundRepository, *MockWagerRepository, *MockTransactionRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockRoundRepo := new(MockRoundRepository)
	mockWagerRepo := new(MockWagerRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, mockRoundRepo, mockWagerRepo, mockTransactionRepo, nil)

	svc := NewSettlementService(mockFactory, testConfig(), commissions).(*settlementService)
	return svc, mockFactory, mockUoW, mockAccountRepo, mockRoundRepo, mockWagerRepo, mockTransactionRepo
}

func TestSettleRound_PaysWinners(t *testing.T) {
	ctx := context.Background()

	mockCommissions := new(MockCommissionService)
	svc, mockFactory, mockUoW, mockAccountRepo, mockRoundRepo, mockWagerRepo, mockTransactionRepo := newSettlementServiceForTest(mockCommissions)
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.draw = func(gameType models.GameType) (string, error) { return "up", nil }

	round := dueRound(7, models.GameSevenUpDown, now, 300)
	wagers := []*models.Wager{
		{ID: 1, RoundID: 7, AccountID: 10, Outcome: "up", Amount: 100, Status: models.WagerStatusPending},
		{ID: 2, RoundID: 7, AccountID: 11, Outcome: "down", Amount: 200, Status: models.WagerStatusPending},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(round, nil)
	mockRoundRepo.On("ClaimSettlement", ctx, int64(7)).Return(true, nil)
	mockWagerRepo.On("GetByRound", ctx, int64(7)).Return(wagers, nil)

	// Winner: 100 at x2 pays 200
	mockAccountRepo.On("AddBalance", ctx, int64(10), int64(200)).Return(int64(1200), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.AccountID == 10 &&
			tx.Type == models.TransactionTypePayoutCredit &&
			tx.Amount == 200
	})).Return(nil)
	mockWagerRepo.On("MarkSettled", ctx, int64(1), models.WagerStatusWon, int64(200)).Return(nil)
	mockWagerRepo.On("MarkSettled", ctx, int64(2), models.WagerStatusLost, int64(0)).Return(nil)

	mockRoundRepo.On("RecordResult", ctx, int64(7), "up", int64(200)).Return(nil)
	mockCommissions.On("DistributeCommissions", ctx, int64(7)).Return(nil)

	result, err := svc.SettleRound(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, "up", result.WinningOutcome)
	assert.Equal(t, int64(300), result.TotalWagered)
	assert.Equal(t, int64(200), result.TotalPaid)
	assert.Equal(t, 2, result.WagersSettled)
	assert.Equal(t, 1, result.WagersWon)

	// The loser's account is never touched
	mockAccountRepo.AssertNotCalled(t, "AddBalance", ctx, int64(11), mock.Anything)

	mockUoW.AssertExpectations(t)
	mockRoundRepo.AssertExpectations(t)
	mockWagerRepo.AssertExpectations(t)
	mockCommissions.AssertExpectations(t)
}

func TestSettleRound_AlreadySettled(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockRoundRepo, mockWagerRepo, _ := newSettlementServiceForTest(nil)

	settledAt := time.Date(2025, 6, 1, 14, 15, 5, 0, time.UTC)
	round := &models.Round{
		ID:             7,
		GameType:       models.GameSevenUpDown,
		Status:         models.RoundStatusSettled,
		WinningOutcome: "down",
		TotalWagered:   300,
		TotalPaid:      200,
		SettledAt:      &settledAt,
	}
	wagers := []*models.Wager{
		{ID: 1, RoundID: 7, AccountID: 10, Outcome: "down", Amount: 100, Status: models.WagerStatusWon, Payout: 200},
		{ID: 2, RoundID: 7, AccountID: 11, Outcome: "up", Amount: 200, Status: models.WagerStatusLost},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(round, nil)
	mockWagerRepo.On("GetByRound", ctx, int64(7)).Return(wagers, nil)

	result, err := svc.SettleRound(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, "down", result.WinningOutcome)
	assert.Equal(t, int64(200), result.TotalPaid)
	assert.Equal(t, 2, result.WagersSettled)
	assert.Equal(t, 1, result.WagersWon)

	// No second settlement and no new payouts
	mockRoundRepo.AssertNotCalled(t, "ClaimSettlement")
	mockAccountRepo.AssertNotCalled(t, "AddBalance")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestSettleRound_LostClaimRace(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockRoundRepo, mockWagerRepo, _ := newSettlementServiceForTest(nil)
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	open := dueRound(7, models.GameSevenUpDown, now, 300)
	settled := &models.Round{
		ID:             7,
		GameType:       models.GameSevenUpDown,
		Status:         models.RoundStatusSettled,
		WinningOutcome: "7",
		TotalWagered:   300,
		TotalPaid:      0,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(open, nil).Once()
	mockRoundRepo.On("ClaimSettlement", ctx, int64(7)).Return(false, nil)
	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(settled, nil).Once()
	mockWagerRepo.On("GetByRound", ctx, int64(7)).Return([]*models.Wager{}, nil)

	result, err := svc.SettleRound(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, "7", result.WinningOutcome)

	mockAccountRepo.AssertNotCalled(t, "AddBalance")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestSettleRound_WindowStillOpen(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, _, mockRoundRepo, _, _ := newSettlementServiceForTest(nil)
	now := time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	round := &models.Round{
		ID:          7,
		GameType:    models.GameSevenUpDown,
		WindowStart: now.Add(-5 * time.Minute),
		WindowEnd:   now.Add(10 * time.Minute),
		Status:      models.RoundStatusOpen,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(round, nil)

	_, err := svc.SettleRound(ctx, 7)

	assert.Error(t, err)
	mockRoundRepo.AssertNotCalled(t, "ClaimSettlement")
}

func TestSettleRound_SkipsFailedPayout(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockRoundRepo, mockWagerRepo, mockTransactionRepo := newSettlementServiceForTest(nil)
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.draw = func(gameType models.GameType) (string, error) { return "up", nil }

	round := dueRound(7, models.GameSevenUpDown, now, 300)
	wagers := []*models.Wager{
		{ID: 1, RoundID: 7, AccountID: 10, Outcome: "up", Amount: 100, Status: models.WagerStatusPending},
		{ID: 2, RoundID: 7, AccountID: 11, Outcome: "up", Amount: 200, Status: models.WagerStatusPending},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRoundRepo.On("GetByID", ctx, int64(7)).Return(round, nil)
	mockRoundRepo.On("ClaimSettlement", ctx, int64(7)).Return(true, nil)
	mockWagerRepo.On("GetByRound", ctx, int64(7)).Return(wagers, nil)

	// First winner's account vanished; its payout is skipped
	mockAccountRepo.On("AddBalance", ctx, int64(10), int64(200)).
		Return(int64(0), fmt.Errorf("account 10: %w", ErrAccountNotFound))
	mockAccountRepo.On("AddBalance", ctx, int64(11), int64(400)).Return(int64(1400), nil)
	mockTransactionRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockWagerRepo.On("MarkSettled", ctx, int64(2), models.WagerStatusWon, int64(400)).Return(nil)
	mockRoundRepo.On("RecordResult", ctx, int64(7), "up", int64(400)).Return(nil)

	result, err := svc.SettleRound(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(400), result.TotalPaid)
	assert.Equal(t, 1, result.WagersSettled)
	assert.Equal(t, 1, result.WagersWon)

	// The failed wager is not marked settled
	mockWagerRepo.AssertNotCalled(t, "MarkSettled", ctx, int64(1), mock.Anything, mock.Anything)
}
