package models

import (
	"time"
)

// WagerStatus represents the state of a wager
type WagerStatus string

const (
	WagerStatusPending WagerStatus = "pending"
	WagerStatusWon     WagerStatus = "won"
	WagerStatusLost    WagerStatus = "lost"
)

// Wager represents one bet placed by an account against a round's outcome set.
// Wagers are created while the round is open and mutated exactly once when it
// settles; they are never deleted.
type Wager struct {
	ID             int64       `db:"id"`
	RoundID        int64       `db:"round_id"`
	AccountID      int64       `db:"account_id"`
	Outcome        string      `db:"outcome"`
	Amount         int64       `db:"amount"`
	Status         WagerStatus `db:"status"`
	Payout         int64       `db:"payout"`
	IdempotencyKey *string     `db:"idempotency_key"`
	CreatedAt      time.Time   `db:"created_at"`
	SettledAt      *time.Time  `db:"settled_at"`
}

// IsPending reports whether the wager still awaits settlement
func (w *Wager) IsPending() bool {
	return w.Status == WagerStatusPending
}

// WonAgainst reports whether the wager's selection is among the winning labels
func (w *Wager) WonAgainst(winningLabels []string) bool {
	for _, label := range winningLabels {
		if w.Outcome == label {
			return true
		}
	}
	return false
}
