package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bookie/config"
	"bookie/events"
	"bookie/models"
	"bookie/observability"
)

type wagerService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	limiter    RateLimiter
	queue      JobQueue
	now        func() time.Time
}

// NewWagerService creates a new wager service. limiter and queue may be nil;
// rate limiting and post-wager jobs are then skipped.
func NewWagerService(uowFactory UnitOfWorkFactory, cfg *config.Config, limiter RateLimiter, queue JobQueue) WagerService {
	return &wagerService{
		uowFactory: uowFactory,
		cfg:        cfg,
		limiter:    limiter,
		queue:      queue,
		now:        time.Now,
	}
}

// PlaceWager validates and records one bet against an open round. The debit,
// the wager row and the round aggregate commit atomically; a rejected wager
// leaves no trace.
func (s *wagerService) PlaceWager(ctx context.Context, accountID int64, gameType models.GameType, roundID int64, outcome string, amount int64, idempotencyKey string) (*models.Wager, error) {
	rules, ok := s.cfg.Games[string(gameType)]
	if !ok {
		observability.WagersRejected.WithLabelValues("unknown_game").Inc()
		return nil, fmt.Errorf("%q: %w", gameType, ErrUnknownGame)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, accountID)
		if err != nil {
			// Fail open: the limiter backend being down must not block intake
			log.WithError(err).WithField("accountId", accountID).Warn("Rate limiter check failed, allowing wager")
		} else if !allowed {
			observability.WagersRejected.WithLabelValues("rate_limited").Inc()
			return nil, fmt.Errorf("account %d: %w", accountID, ErrRateLimited)
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil || round.GameType != gameType {
		observability.WagersRejected.WithLabelValues("invalid_round").Inc()
		return nil, fmt.Errorf("round %d for game %s: %w", roundID, gameType, ErrInvalidRound)
	}
	if !round.BettingOpen(s.now()) {
		observability.WagersRejected.WithLabelValues("betting_closed").Inc()
		return nil, fmt.Errorf("round %d: %w", roundID, ErrBettingClosed)
	}

	if _, ok := rules.Multipliers[outcome]; !ok {
		observability.WagersRejected.WithLabelValues("invalid_outcome").Inc()
		return nil, fmt.Errorf("outcome %q for game %s: %w", outcome, gameType, ErrInvalidOutcome)
	}
	if amount < rules.MinWager {
		observability.WagersRejected.WithLabelValues("below_minimum").Inc()
		return nil, fmt.Errorf("amount %d below minimum %d: %w", amount, rules.MinWager, ErrWagerTooSmall)
	}
	if amount > rules.MaxWager {
		observability.WagersRejected.WithLabelValues("above_maximum").Inc()
		return nil, fmt.Errorf("amount %d above maximum %d: %w", amount, rules.MaxWager, ErrWagerTooLarge)
	}

	if idempotencyKey != "" {
		existing, err := uow.WagerRepository().GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			// A replay must match the wager the key originally accepted;
			// otherwise the key is being reused for a different bet
			if existing.AccountID != accountID || existing.RoundID != roundID ||
				existing.Outcome != outcome || existing.Amount != amount {
				observability.WagersRejected.WithLabelValues("idempotency_mismatch").Inc()
				return nil, fmt.Errorf("key already used by wager %d: %w", existing.ID, ErrIdempotencyMismatch)
			}
			// Resubmission of an already-accepted wager; no second debit
			return existing, nil
		}
	}

	if _, err := Debit(ctx, uow, accountID, amount, models.TransactionTypeWagerDebit, map[string]any{
		"round_id":  roundID,
		"game_type": string(gameType),
		"outcome":   outcome,
	}); err != nil {
		observability.WagersRejected.WithLabelValues("insufficient_balance").Inc()
		return nil, err
	}

	wager := &models.Wager{
		RoundID:   roundID,
		AccountID: accountID,
		Outcome:   outcome,
		Amount:    amount,
		Status:    models.WagerStatusPending,
	}
	if idempotencyKey != "" {
		wager.IdempotencyKey = &idempotencyKey
	}
	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, err
	}

	if err := uow.RoundRepository().AddWagered(ctx, roundID, amount); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerID:   wager.ID,
		RoundID:   roundID,
		AccountID: accountID,
		GameType:  gameType,
		Outcome:   outcome,
		Amount:    amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wager: %w", err)
	}

	observability.WagersPlaced.Inc()

	log.WithFields(log.Fields{
		"wagerId":   wager.ID,
		"roundId":   roundID,
		"accountId": accountID,
		"outcome":   outcome,
		"amount":    amount,
	}).Info("Wager placed")

	if s.queue != nil {
		// The wager is committed; job enqueue failures are logged, not returned
		go func(wagerID int64) {
			enqueueCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.queue.EnqueuePostWager(enqueueCtx, wagerID); err != nil {
				log.WithError(err).WithField("wagerId", wagerID).Error("Failed to enqueue post-wager job")
			}
		}(wager.ID)
	}

	return wager, nil
}

// GetWagersByAccount returns an account's wagers, newest first
func (s *wagerService) GetWagersByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.WagerRepository().GetByAccount(ctx, accountID, limit)
}
