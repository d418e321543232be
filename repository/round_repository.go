package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/database"
	"bookie/models"
	"github.com/jackc/pgx/v5"
)

// RoundRepository implements the service.RoundRepository interface
type RoundRepository struct {
	q queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

// newRoundRepositoryWithTx creates a new round repository with a transaction
func newRoundRepositoryWithTx(tx queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

const roundColumns = `
	id, game_type, window_start, window_end, status,
	COALESCE(winning_outcome, ''), total_wagered, total_paid, created_at, settled_at
`

func scanRound(row pgx.Row) (*models.Round, error) {
	var round models.Round
	err := row.Scan(
		&round.ID,
		&round.GameType,
		&round.WindowStart,
		&round.WindowEnd,
		&round.Status,
		&round.WinningOutcome,
		&round.TotalWagered,
		&round.TotalPaid,
		&round.CreatedAt,
		&round.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// GetByID retrieves a round by id
func (r *RoundRepository) GetByID(ctx context.Context, id int64) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	round, err := scanRound(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}

	return round, nil
}

// GetByWindow retrieves the round for (gameType, windowStart)
func (r *RoundRepository) GetByWindow(ctx context.Context, gameType models.GameType, windowStart time.Time) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE game_type = $1 AND window_start = $2`

	round, err := scanRound(r.q.QueryRow(ctx, query, gameType, windowStart))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round for %s at %s: %w", gameType, windowStart, err)
	}

	return round, nil
}

// Create inserts the round under the (game_type, window_start) uniqueness
// constraint. Returns false without error when a concurrent creator already
// inserted the same window.
func (r *RoundRepository) Create(ctx context.Context, round *models.Round) (bool, error) {
	query := `
		INSERT INTO rounds (game_type, window_start, window_end, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_type, window_start) DO NOTHING
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		round.GameType,
		round.WindowStart,
		round.WindowEnd,
		models.RoundStatusOpen,
	).Scan(&round.ID, &round.CreatedAt)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create round for %s: %w", round.GameType, err)
	}

	round.Status = models.RoundStatusOpen
	return true, nil
}

// AddWagered bumps the round's wagered aggregate while it is still open
func (r *RoundRepository) AddWagered(ctx context.Context, roundID int64, amount int64) error {
	query := `
		UPDATE rounds
		SET total_wagered = total_wagered + $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, amount, roundID, models.RoundStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to update wagered total for round %d: %w", roundID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %d is not open", roundID)
	}

	return nil
}

// ClaimSettlement atomically transitions open -> settled. Exactly one of any
// number of concurrent callers observes true.
func (r *RoundRepository) ClaimSettlement(ctx context.Context, roundID int64) (bool, error) {
	query := `
		UPDATE rounds
		SET status = $1, settled_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, models.RoundStatusSettled, roundID, models.RoundStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to claim settlement for round %d: %w", roundID, err)
	}

	return result.RowsAffected() > 0, nil
}

// RecordResult stores the winning outcome and paid aggregate
func (r *RoundRepository) RecordResult(ctx context.Context, roundID int64, winningOutcome string, totalPaid int64) error {
	query := `
		UPDATE rounds
		SET winning_outcome = $1, total_paid = $2
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, winningOutcome, totalPaid, roundID)
	if err != nil {
		return fmt.Errorf("failed to record result for round %d: %w", roundID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %d not found", roundID)
	}

	return nil
}

// GetDue returns open rounds whose window has closed
func (r *RoundRepository) GetDue(ctx context.Context, now time.Time) ([]*models.Round, error) {
	query := `SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = $1 AND window_end <= $2
		ORDER BY window_end
	`

	rows, err := r.q.Query(ctx, query, models.RoundStatusOpen, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}

	return rounds, nil
}
