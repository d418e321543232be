package models

import (
	"time"
)

// CommissionEntry records one ancestor's cut of one bettor's wagers in a round.
// At most one entry exists per (round, beneficiary, source bettor).
type CommissionEntry struct {
	ID            int64     `db:"id"`
	RoundID       int64     `db:"round_id"`
	BeneficiaryID int64     `db:"beneficiary_id"`
	SourceID      int64     `db:"source_id"`
	Level         int       `db:"level"`
	Rate          float64   `db:"rate"`
	Amount        int64     `db:"amount"`
	CreatedAt     time.Time `db:"created_at"`
}

// CommissionSummary aggregates commission earned by a beneficiary over a period
type CommissionSummary struct {
	BeneficiaryID int64
	From          time.Time
	To            time.Time
	TotalAmount   int64
	EntryCount    int
}

// CommissionReconciliation compares the commission a settled round should have
// produced against what was actually recorded, used as the corrective report
// for partially failed distributions.
type CommissionReconciliation struct {
	RoundID        int64
	ExpectedAmount int64
	RecordedAmount int64
}

// Balanced reports whether recorded commission matches the expectation
func (r *CommissionReconciliation) Balanced() bool {
	return r.ExpectedAmount == r.RecordedAmount
}
