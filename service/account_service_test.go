package service

import (
	"context"
	"fmt"
	"testing"

	"bookie/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newAccountServiceForTest() (AccountService, *MockUnitOfWorkFactory, *MockUnitOfWork, *MockAccountRepository, *MockTransactionRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockTransactionRepo, nil)

	svc := NewAccountService(mockFactory, testConfig())
	return svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo
}

func TestGetOrCreateAccount_Existing(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	existing := &models.Account{ID: 10, Username: "punter", Role: models.RoleUser, Balance: 500}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockAccountRepo.On("GetByUsername", ctx, "punter").Return(existing, nil)

	account, err := svc.GetOrCreateAccount(ctx, "punter", models.RoleUser, nil)

	assert.NoError(t, err)
	assert.Equal(t, existing, account)

	mockAccountRepo.AssertNotCalled(t, "Create")
	mockTransactionRepo.AssertNotCalled(t, "Record")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestGetOrCreateAccount_CreatesWithStartingBalance(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	parent := &models.Account{ID: 2, Username: "assoc", Role: models.RoleAssociateMaster}
	created := &models.Account{ID: 10, Username: "punter", Role: models.RoleUser, ParentID: ptrID(2), Balance: 1000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByUsername", ctx, "punter").Return(nil, nil)
	mockAccountRepo.On("GetByID", ctx, int64(2)).Return(parent, nil)
	mockAccountRepo.On("Create", ctx, "punter", models.RoleUser, ptrID(2), int64(1000)).Return(created, nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.AccountID == 10 &&
			tx.Type == models.TransactionTypeInitial &&
			tx.Amount == 1000 &&
			tx.BalanceAfter == 1000
	})).Return(nil)

	account, err := svc.GetOrCreateAccount(ctx, "punter", models.RoleUser, ptrID(2))

	assert.NoError(t, err)
	assert.Equal(t, created, account)

	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
}

func TestGetOrCreateAccount_LostCreationRace(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	winner := &models.Account{ID: 10, Username: "punter", Role: models.RoleUser, Balance: 1000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByUsername", ctx, "punter").Return(nil, nil).Once()
	mockAccountRepo.On("Create", ctx, "punter", models.RoleUser, (*int64)(nil), int64(1000)).Return(nil, nil)
	mockAccountRepo.On("GetByUsername", ctx, "punter").Return(winner, nil).Once()

	account, err := svc.GetOrCreateAccount(ctx, "punter", models.RoleUser, nil)

	assert.NoError(t, err)
	assert.Equal(t, winner, account)

	// The loser adopts the winner's row; no second starting balance
	mockTransactionRepo.AssertNotCalled(t, "Record")
	mockUoW.AssertNotCalled(t, "Commit")
	mockAccountRepo.AssertExpectations(t)
}

func TestGetOrCreateAccount_MissingParent(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, _ := newAccountServiceForTest()

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockAccountRepo.On("GetByUsername", ctx, "punter").Return(nil, nil)
	mockAccountRepo.On("GetByID", ctx, int64(99)).Return(nil, nil)

	_, err := svc.GetOrCreateAccount(ctx, "punter", models.RoleUser, ptrID(99))

	assert.ErrorIs(t, err, ErrAccountNotFound)
	mockAccountRepo.AssertNotCalled(t, "Create")
}

func TestTransfer_Success(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("DeductBalance", ctx, int64(10), int64(250)).Return(int64(750), nil)
	mockAccountRepo.On("AddBalance", ctx, int64(11), int64(250)).Return(int64(1250), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeTransferOut && tx.Amount == -250
	})).Return(nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeTransferIn && tx.Amount == 250
	})).Return(nil)

	err := svc.Transfer(ctx, 10, 11, 250)

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, _ := newAccountServiceForTest()

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("DeductBalance", ctx, int64(10), int64(250)).
		Return(int64(0), fmt.Errorf("have 100, need 250: %w", ErrInsufficientBalance))

	err := svc.Transfer(ctx, 10, 11, 250)

	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The recipient is never credited
	mockAccountRepo.AssertNotCalled(t, "AddBalance")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTransfer_SelfTransfer(t *testing.T) {
	svc, mockFactory, _, _, _ := newAccountServiceForTest()

	err := svc.Transfer(context.Background(), 10, 10, 250)

	assert.Error(t, err)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestManualAdjust_RequiresSuperAdmin(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, _ := newAccountServiceForTest()

	caller := &models.Account{ID: 3, Username: "master", Role: models.RoleMaster}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockAccountRepo.On("GetByID", ctx, int64(3)).Return(caller, nil)

	err := svc.ManualAdjust(ctx, 3, 10, 500, "goodwill")

	assert.ErrorIs(t, err, ErrNotAuthorized)
	mockAccountRepo.AssertNotCalled(t, "AddBalance")
}

func TestManualAdjust_Mint(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	caller := &models.Account{ID: 1, Username: "house", Role: models.RoleSuperAdmin}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(caller, nil)
	mockAccountRepo.On("AddBalance", ctx, int64(10), int64(500)).Return(int64(1500), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.AccountID == 10 &&
			tx.Type == models.TransactionTypeManualAdjustment &&
			tx.Amount == 500
	})).Return(nil)

	err := svc.ManualAdjust(ctx, 1, 10, 500, "promo credit")

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
}

func TestManualAdjust_Burn(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo := newAccountServiceForTest()

	caller := &models.Account{ID: 1, Username: "house", Role: models.RoleSuperAdmin}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(caller, nil)
	mockAccountRepo.On("DeductBalance", ctx, int64(10), int64(200)).Return(int64(800), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeManualAdjustment && tx.Amount == -200
	})).Return(nil)

	err := svc.ManualAdjust(ctx, 1, 10, -200, "correction")

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
}
