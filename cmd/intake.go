package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"bookie/models"
	"bookie/service"
)

// wagerRequest is the payload accepted on the wager intake subject
type wagerRequest struct {
	Username       string `json:"username"`
	GameType       string `json:"game_type"`
	Outcome        string `json:"outcome"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// wagerReply is the intake response. Error carries the rejection reason and
// is empty on success.
type wagerReply struct {
	WagerID int64  `json:"wager_id,omitempty"`
	RoundID int64  `json:"round_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

const wagerIntakeSubject = "bookie.intake.wager"

// startWagerIntake answers wager placement requests over NATS request/reply.
// Unknown callers are registered as plain user accounts under the house root.
func startWagerIntake(
	nc *nats.Conn,
	accounts service.AccountService,
	scheduler service.RoundScheduler,
	wagers service.WagerService,
	rootAccountID int64,
) (*nats.Subscription, error) {
	return nc.Subscribe(wagerIntakeSubject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var req wagerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respond(msg, wagerReply{Error: "malformed request"})
			return
		}

		account, err := accounts.GetOrCreateAccount(ctx, req.Username, models.RoleUser, &rootAccountID)
		if err != nil {
			respond(msg, wagerReply{Error: rejectionReason(err)})
			return
		}

		round, err := scheduler.GetOrCreateCurrentRound(ctx, models.GameType(req.GameType))
		if err != nil {
			respond(msg, wagerReply{Error: rejectionReason(err)})
			return
		}

		wager, err := wagers.PlaceWager(ctx, account.ID, round.GameType, round.ID, req.Outcome, req.Amount, req.IdempotencyKey)
		if err != nil {
			respond(msg, wagerReply{Error: rejectionReason(err)})
			return
		}

		respond(msg, wagerReply{WagerID: wager.ID, RoundID: wager.RoundID})
	})
}

func respond(msg *nats.Msg, reply wagerReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("Failed to marshal intake reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("Failed to respond on intake subject: %v", err)
	}
}

// rejectionReason maps service sentinels onto stable reason strings so
// callers can branch without parsing wrapped error text
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, service.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, service.ErrBettingClosed):
		return "betting_closed"
	case errors.Is(err, service.ErrInvalidOutcome):
		return "invalid_outcome"
	case errors.Is(err, service.ErrWagerTooSmall):
		return "below_minimum"
	case errors.Is(err, service.ErrWagerTooLarge):
		return "above_maximum"
	case errors.Is(err, service.ErrIdempotencyMismatch):
		return "idempotency_mismatch"
	case errors.Is(err, service.ErrInvalidRound):
		return "invalid_round"
	case errors.Is(err, service.ErrUnknownGame):
		return "unknown_game"
	case errors.Is(err, service.ErrAccountNotFound):
		return "account_not_found"
	default:
		log.Printf("Wager intake failed: %v", err)
		return "internal_error"
	}
}
