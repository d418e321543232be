package models

import (
	"strings"
	"time"
)

// GameType identifies one of the supported games
type GameType string

const (
	GameSevenUpDown  GameType = "seven_up_down"
	GameCoinFlip     GameType = "coin_flip"
	GameLuckyNumbers GameType = "lucky_numbers"
)

// GameTypes lists every supported game
var GameTypes = []GameType{GameSevenUpDown, GameCoinFlip, GameLuckyNumbers}

// RoundStatus represents the lifecycle state of a round
type RoundStatus string

const (
	RoundStatusOpen    RoundStatus = "open"
	RoundStatusSettled RoundStatus = "settled"
)

// Round represents one timed betting period for a game type.
// Exactly one round exists per (game type, window start).
type Round struct {
	ID             int64       `db:"id"`
	GameType       GameType    `db:"game_type"`
	WindowStart    time.Time   `db:"window_start"`
	WindowEnd      time.Time   `db:"window_end"`
	Status         RoundStatus `db:"status"`
	WinningOutcome string      `db:"winning_outcome"`
	TotalWagered   int64       `db:"total_wagered"`
	TotalPaid      int64       `db:"total_paid"`
	CreatedAt      time.Time   `db:"created_at"`
	SettledAt      *time.Time  `db:"settled_at"`
}

// IsSettled reports whether the round has reached its terminal state
func (r *Round) IsSettled() bool {
	return r.Status == RoundStatusSettled
}

// BettingOpen reports whether new wagers may be accepted at the given instant
func (r *Round) BettingOpen(now time.Time) bool {
	return r.Status == RoundStatusOpen && now.Before(r.WindowEnd)
}

// Due reports whether the round's window has closed and it awaits settlement
func (r *Round) Due(now time.Time) bool {
	return r.Status == RoundStatusOpen && !now.Before(r.WindowEnd)
}

// WinningLabels splits the stored comma-joined winning outcome.
// Games that award several simultaneous winners store more than one label.
func (r *Round) WinningLabels() []string {
	if r.WinningOutcome == "" {
		return nil
	}
	return strings.Split(r.WinningOutcome, ",")
}

// HouseProfit is the round's net result for the house
func (r *Round) HouseProfit() int64 {
	return r.TotalWagered - r.TotalPaid
}

// SettlementResult summarizes a settled round
type SettlementResult struct {
	RoundID        int64
	WinningOutcome string
	TotalWagered   int64
	TotalPaid      int64
	WagersSettled  int
	WagersWon      int
}
