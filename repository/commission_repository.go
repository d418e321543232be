package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/database"
	"bookie/models"
	"github.com/jackc/pgx/v5"
)

// CommissionRepository implements the service.CommissionRepository interface
type CommissionRepository struct {
	q queryable
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db *database.DB) *CommissionRepository {
	return &CommissionRepository{q: db.Pool}
}

// newCommissionRepositoryWithTx creates a new commission repository with a transaction
func newCommissionRepositoryWithTx(tx queryable) *CommissionRepository {
	return &CommissionRepository{q: tx}
}

// Create inserts the entry under the (round, beneficiary, source) uniqueness
// constraint. Returns false without error when the entry already exists, which
// is how re-runs of propagation detect prior credits.
func (r *CommissionRepository) Create(ctx context.Context, entry *models.CommissionEntry) (bool, error) {
	query := `
		INSERT INTO commission_entries (round_id, beneficiary_id, source_id, level, rate, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (round_id, beneficiary_id, source_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.RoundID,
		entry.BeneficiaryID,
		entry.SourceID,
		entry.Level,
		entry.Rate,
		entry.Amount,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create commission entry for round %d beneficiary %d: %w",
			entry.RoundID, entry.BeneficiaryID, err)
	}

	return true, nil
}

// GetByRound returns every commission entry recorded for a round
func (r *CommissionRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.CommissionEntry, error) {
	query := `
		SELECT id, round_id, beneficiary_id, source_id, level, rate, amount, created_at
		FROM commission_entries
		WHERE round_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get commission entries for round %d: %w", roundID, err)
	}
	defer rows.Close()

	var entries []*models.CommissionEntry
	for rows.Next() {
		var entry models.CommissionEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RoundID,
			&entry.BeneficiaryID,
			&entry.SourceID,
			&entry.Level,
			&entry.Rate,
			&entry.Amount,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commission entries: %w", err)
	}

	return entries, nil
}

// TotalByRound returns the summed commission recorded for a round
func (r *CommissionRepository) TotalByRound(ctx context.Context, roundID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM commission_entries
		WHERE round_id = $1
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, roundID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to total commission for round %d: %w", roundID, err)
	}

	return total, nil
}

// SummaryByBeneficiary aggregates commission earned over a date range
func (r *CommissionRepository) SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM commission_entries
		WHERE beneficiary_id = $1 AND created_at >= $2 AND created_at < $3
	`

	summary := &models.CommissionSummary{
		BeneficiaryID: beneficiaryID,
		From:          from,
		To:            to,
	}
	err := r.q.QueryRow(ctx, query, beneficiaryID, from, to).Scan(&summary.TotalAmount, &summary.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize commission for beneficiary %d: %w", beneficiaryID, err)
	}

	return summary, nil
}
