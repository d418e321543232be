package service

import (
	"errors"
)

// Sentinel errors for the wager and settlement lifecycle. Callers are expected
// to branch with errors.Is; everything else is an internal failure.
var (
	// ErrAccountNotFound is returned when the referenced account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidRound is returned when the round does not exist or does not
	// belong to the requested game type
	ErrInvalidRound = errors.New("invalid round")

	// ErrBettingClosed is returned when the round no longer accepts wagers
	ErrBettingClosed = errors.New("betting closed")

	// ErrInvalidOutcome is returned for outcome labels the game does not pay on
	ErrInvalidOutcome = errors.New("invalid outcome")

	// ErrWagerTooSmall and ErrWagerTooLarge bound the configured wager range
	ErrWagerTooSmall = errors.New("wager below minimum")
	ErrWagerTooLarge = errors.New("wager above maximum")

	// ErrInsufficientBalance is returned when a debit exceeds the balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRateLimited is returned when an account exceeds the wager rate limit
	ErrRateLimited = errors.New("rate limited")

	// ErrIdempotencyMismatch is returned when an idempotency key is resubmitted
	// with parameters that differ from the wager it originally accepted
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different parameters")

	// ErrUnknownGame is returned for game types absent from the game table
	ErrUnknownGame = errors.New("unknown game type")

	// ErrNotAuthorized is returned when a caller's role does not permit the operation
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPropagationPartial is returned when some, but not all, commission
	// credits for a round failed. Payouts are unaffected; the reconciliation
	// report identifies the shortfall.
	ErrPropagationPartial = errors.New("commission propagation partially failed")
)
