package testutil

import (
	"time"

	"bookie/models"
)

// CreateTestRound creates an open round covering the given instant
func CreateTestRound(gameType models.GameType, now time.Time, duration time.Duration) *models.Round {
	windowStart := now.UTC().Truncate(duration)
	return &models.Round{
		GameType:    gameType,
		WindowStart: windowStart,
		WindowEnd:   windowStart.Add(duration),
		Status:      models.RoundStatusOpen,
	}
}

// CreateTestWager creates a pending wager with default values
func CreateTestWager(roundID, accountID int64, outcome string, amount int64) *models.Wager {
	return &models.Wager{
		RoundID:   roundID,
		AccountID: accountID,
		Outcome:   outcome,
		Amount:    amount,
		Status:    models.WagerStatusPending,
	}
}
