package service

import (
	"context"
	"time"

	"bookie/events"
	"bookie/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, username string, role models.Role, parentID *int64, initialBalance int64) (*models.Account, error) {
	args := m.Called(ctx, username, role, parentID, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id int64) (*models.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByWindow(ctx context.Context, gameType models.GameType, windowStart time.Time) (*models.Round, error) {
	args := m.Called(ctx, gameType, windowStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *MockRoundRepository) Create(ctx context.Context, round *models.Round) (bool, error) {
	args := m.Called(ctx, round)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) AddWagered(ctx context.Context, roundID int64, amount int64) error {
	args := m.Called(ctx, roundID, amount)
	return args.Error(0)
}

func (m *MockRoundRepository) ClaimSettlement(ctx context.Context, roundID int64) (bool, error) {
	args := m.Called(ctx, roundID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) RecordResult(ctx context.Context, roundID int64, winningOutcome string, totalPaid int64) error {
	args := m.Called(ctx, roundID, winningOutcome, totalPaid)
	return args.Error(0)
}

func (m *MockRoundRepository) GetDue(ctx context.Context, now time.Time) ([]*models.Round, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Round), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Wager, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.Wager, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) MarkSettled(ctx context.Context, wagerID int64, status models.WagerStatus, payout int64) error {
	args := m.Called(ctx, wagerID, status, payout)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, transaction *models.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockCommissionRepository is a mock implementation of CommissionRepository
type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) Create(ctx context.Context, entry *models.CommissionEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommissionRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.CommissionEntry, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CommissionEntry), args.Error(1)
}

func (m *MockCommissionRepository) TotalByRound(ctx context.Context, roundID int64) (int64, error) {
	args := m.Called(ctx, roundID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRepository) SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error) {
	args := m.Called(ctx, beneficiaryID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionSummary), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// noopEventPublisher drops events; the default bus for unit of work mocks
type noopEventPublisher struct{}

func (noopEventPublisher) Publish(event events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests can wire per-repo mocks with SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo     AccountRepository
	roundRepo       RoundRepository
	wagerRepo       WagerRepository
	transactionRepo TransactionRepository
	commissionRepo  CommissionRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repository mocks this unit of work hands out.
// Any of them may be nil when the test never touches that repository.
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	roundRepo RoundRepository,
	wagerRepo WagerRepository,
	transactionRepo TransactionRepository,
	commissionRepo CommissionRepository,
) {
	m.accountRepo = accountRepo
	m.roundRepo = roundRepo
	m.wagerRepo = wagerRepo
	m.transactionRepo = transactionRepo
	m.commissionRepo = commissionRepo
}

// SetEventBus overrides the default no-op event publisher
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) RoundRepository() RoundRepository {
	return m.roundRepo
}

func (m *MockUnitOfWork) WagerRepository() WagerRepository {
	return m.wagerRepo
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) CommissionRepository() CommissionRepository {
	return m.commissionRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return noopEventPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockJobQueue is a mock implementation of JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueuePostWager(ctx context.Context, wagerID int64) error {
	args := m.Called(ctx, wagerID)
	return args.Error(0)
}

// MockRateLimiter is a mock implementation of RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, accountID int64) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

// MockCommissionService is a mock implementation of CommissionService
type MockCommissionService struct {
	mock.Mock
}

func (m *MockCommissionService) DistributeCommissions(ctx context.Context, roundID int64) error {
	args := m.Called(ctx, roundID)
	return args.Error(0)
}

func (m *MockCommissionService) ReconcileRound(ctx context.Context, roundID int64) (*models.CommissionReconciliation, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionReconciliation), args.Error(1)
}

func (m *MockCommissionService) SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error) {
	args := m.Called(ctx, beneficiaryID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionSummary), args.Error(1)
}
