package repository

import (
	"context"
	"fmt"

	"bookie/database"
	"bookie/models"
	"github.com/jackc/pgx/v5"
)

// WagerRepository implements the service.WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

const wagerColumns = `
	id, round_id, account_id, outcome, amount, status, payout,
	idempotency_key, created_at, settled_at
`

func scanWager(row pgx.Row) (*models.Wager, error) {
	var wager models.Wager
	err := row.Scan(
		&wager.ID,
		&wager.RoundID,
		&wager.AccountID,
		&wager.Outcome,
		&wager.Amount,
		&wager.Status,
		&wager.Payout,
		&wager.IdempotencyKey,
		&wager.CreatedAt,
		&wager.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// Create creates a new wager record
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (round_id, account_id, outcome, amount, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.RoundID,
		wager.AccountID,
		wager.Outcome,
		wager.Amount,
		models.WagerStatusPending,
		wager.IdempotencyKey,
	).Scan(&wager.ID, &wager.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create wager for account %d: %w", wager.AccountID, err)
	}

	wager.Status = models.WagerStatusPending
	return nil
}

// GetByID retrieves a wager by id
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, err)
	}

	return wager, nil
}

// GetByIdempotencyKey retrieves a wager by its client-supplied key
func (r *WagerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE idempotency_key = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager by idempotency key: %w", err)
	}

	return wager, nil
}

// GetByRound returns every wager placed against a round
func (r *WagerRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE round_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wagers for round %d: %w", roundID, err)
	}
	defer rows.Close()

	return collectWagers(rows)
}

// GetByAccount returns an account's wagers, newest first
func (r *WagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	query := `SELECT ` + wagerColumns + `
		FROM wagers
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wagers for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectWagers(rows)
}

// MarkSettled records a pending wager's terminal status and payout
func (r *WagerRepository) MarkSettled(ctx context.Context, wagerID int64, status models.WagerStatus, payout int64) error {
	query := `
		UPDATE wagers
		SET status = $1, payout = $2, settled_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.Exec(ctx, query, status, payout, wagerID, models.WagerStatusPending)
	if err != nil {
		return fmt.Errorf("failed to settle wager %d: %w", wagerID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wager %d is not pending", wagerID)
	}

	return nil
}

func collectWagers(rows pgx.Rows) ([]*models.Wager, error) {
	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}

	return wagers, nil
}
