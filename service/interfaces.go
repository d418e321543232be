package service

import (
	"context"
	"time"

	"bookie/events"
	"bookie/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by id, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByUsername retrieves an account by username, nil when absent
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// Create creates a new account under the given parent. Returns nil when a
	// concurrent creator already took the username; callers re-read that row.
	Create(ctx context.Context, username string, role models.Role, parentID *int64, initialBalance int64) (*models.Account, error)

	// AddBalance atomically credits the account and returns the new balance
	AddBalance(ctx context.Context, id int64, amount int64) (int64, error)

	// DeductBalance atomically debits the account and returns the new balance,
	// failing with ErrInsufficientBalance when the balance is too low
	DeductBalance(ctx context.Context, id int64, amount int64) (int64, error)
}

// RoundRepository defines the interface for round data access
type RoundRepository interface {
	// GetByID retrieves a round by id, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Round, error)

	// GetByWindow retrieves the round for (gameType, windowStart), nil when absent
	GetByWindow(ctx context.Context, gameType models.GameType, windowStart time.Time) (*models.Round, error)

	// Create inserts the round under the (game_type, window_start) uniqueness
	// constraint. Returns false when a concurrent creator already won the race.
	Create(ctx context.Context, round *models.Round) (bool, error)

	// AddWagered bumps the round's wagered aggregate while it is still open
	AddWagered(ctx context.Context, roundID int64, amount int64) error

	// ClaimSettlement atomically transitions open -> settled.
	// Returns false when the round was already settled.
	ClaimSettlement(ctx context.Context, roundID int64) (bool, error)

	// RecordResult stores the winning outcome and paid aggregate
	RecordResult(ctx context.Context, roundID int64, winningOutcome string, totalPaid int64) error

	// GetDue returns open rounds whose window has closed
	GetDue(ctx context.Context, now time.Time) ([]*models.Round, error)
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// Create creates a new wager record
	Create(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager by id, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Wager, error)

	// GetByIdempotencyKey retrieves a wager by its client-supplied key, nil when absent
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Wager, error)

	// GetByRound returns every wager placed against a round
	GetByRound(ctx context.Context, roundID int64) ([]*models.Wager, error)

	// GetByAccount returns an account's wagers, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error)

	// MarkSettled records a pending wager's terminal status and payout
	MarkSettled(ctx context.Context, wagerID int64, status models.WagerStatus, payout int64) error
}

// TransactionRepository defines the interface for the append-only transaction log
type TransactionRepository interface {
	// Record appends a transaction entry
	Record(ctx context.Context, transaction *models.Transaction) error

	// GetByAccount returns an account's transactions, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)
}

// CommissionRepository defines the interface for commission entry data access
type CommissionRepository interface {
	// Create inserts the entry under the (round, beneficiary, source)
	// uniqueness constraint. Returns false when the entry already exists.
	Create(ctx context.Context, entry *models.CommissionEntry) (bool, error)

	// GetByRound returns every commission entry recorded for a round
	GetByRound(ctx context.Context, roundID int64) ([]*models.CommissionEntry, error)

	// TotalByRound returns the summed commission recorded for a round
	TotalByRound(ctx context.Context, roundID int64) (int64, error)

	// SummaryByBeneficiary aggregates commission earned over a date range
	SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	RoundRepository() RoundRepository
	WagerRepository() WagerRepository
	TransactionRepository() TransactionRepository
	CommissionRepository() CommissionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// JobQueue decouples slow post-wager side effects from the synchronous
// acceptance path. Enqueue failures must not fail the wager; the debit has
// already been committed.
type JobQueue interface {
	EnqueuePostWager(ctx context.Context, wagerID int64) error
}

// RateLimiter bounds wager submissions per account per rolling window
type RateLimiter interface {
	// Allow reports whether the account may place another wager right now
	Allow(ctx context.Context, accountID int64) (bool, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetOrCreateAccount retrieves an account by username or creates one with
	// the starting balance under the given parent
	GetOrCreateAccount(ctx context.Context, username string, role models.Role, parentID *int64) (*models.Account, error)

	// Transfer moves points between two accounts
	Transfer(ctx context.Context, fromID, toID int64, amount int64) error

	// ManualAdjust mints or burns points on an account. Only a super admin
	// caller may do this; negative amounts burn.
	ManualAdjust(ctx context.Context, callerID, accountID int64, amount int64, reason string) error

	// GetTransactions returns an account's transaction log, newest first
	GetTransactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)
}

// RoundScheduler defines the interface for round window management
type RoundScheduler interface {
	// GetOrCreateCurrentRound returns the round for the game's current window,
	// creating it if no caller has yet
	GetOrCreateCurrentRound(ctx context.Context, gameType models.GameType) (*models.Round, error)

	// GetRound retrieves a round by id
	GetRound(ctx context.Context, roundID int64) (*models.Round, error)
}

// WagerService defines the interface for wager intake
type WagerService interface {
	// PlaceWager validates and records one bet against an open round.
	// idempotencyKey may be empty; when supplied, resubmissions return the
	// original wager unchanged.
	PlaceWager(ctx context.Context, accountID int64, gameType models.GameType, roundID int64, outcome string, amount int64, idempotencyKey string) (*models.Wager, error)

	// GetWagersByAccount returns an account's wagers, newest first
	GetWagersByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error)
}

// SettlementService defines the interface for closing rounds
type SettlementService interface {
	// SettleRound closes the round, draws the winning outcome, pays winners
	// and triggers commission propagation. Idempotent: repeated calls return
	// the stored result.
	SettleRound(ctx context.Context, roundID int64) (*models.SettlementResult, error)
}

// CommissionService defines the interface for commission propagation
type CommissionService interface {
	// DistributeCommissions walks each bettor's ownership chain and credits
	// eligible ancestors, at most once per (round, ancestor, bettor)
	DistributeCommissions(ctx context.Context, roundID int64) error

	// ReconcileRound compares expected against recorded commission for a round
	ReconcileRound(ctx context.Context, roundID int64) (*models.CommissionReconciliation, error)

	// SummaryByBeneficiary aggregates commission earned over a date range
	SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error)
}
