package repository

import (
	"context"
	"fmt"

	"bookie/database"
	"bookie/models"
	"bookie/service"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the service.AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByID retrieves an account by id
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, username, role, parent_id, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Username,
		&account.Role,
		&account.ParentID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}

	return &account, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT id, username, role, parent_id, balance, created_at, updated_at
		FROM accounts
		WHERE username = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.Role,
		&account.ParentID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %q: %w", username, err)
	}

	return &account, nil
}

// Create creates a new account under the given parent. The insert rides the
// username uniqueness constraint; a concurrent creator of the same username
// gets nil back and should re-read the winner's row.
func (r *AccountRepository) Create(ctx context.Context, username string, role models.Role, parentID *int64, initialBalance int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (username, role, parent_id, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, role, parent_id, balance, created_at, updated_at
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, username, role, parentID, initialBalance).Scan(
		&account.ID,
		&account.Username,
		&account.Role,
		&account.ParentID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", username, err)
	}

	return &account, nil
}

// AddBalance atomically credits the account and returns the new balance
func (r *AccountRepository) AddBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for account %d: %w", id, err)
	}

	return newBalance, nil
}

// DeductBalance atomically debits the account, failing when the balance is
// too low. The guard lives in the UPDATE itself so concurrent debits never
// read-modify-write on a stale balance.
func (r *AccountRepository) DeductBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		// Distinguish a missing account from an underfunded one
		account, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return 0, fmt.Errorf("failed to check account %d: %w", id, getErr)
		}
		if account == nil {
			return 0, fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
		}
		return 0, fmt.Errorf("have %d, need %d: %w", account.Balance, amount, service.ErrInsufficientBalance)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct balance for account %d: %w", id, err)
	}

	return newBalance, nil
}
