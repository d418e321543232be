package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"bookie/config"
	"bookie/events"
	"bookie/models"
	"bookie/observability"
)

type settlementService struct {
	uowFactory  UnitOfWorkFactory
	cfg         *config.Config
	commissions CommissionService
	draw        func(gameType models.GameType) (string, error)
	now         func() time.Time
}

// NewSettlementService creates a new settlement service. commissions may be
// nil; propagation is then skipped.
func NewSettlementService(uowFactory UnitOfWorkFactory, cfg *config.Config, commissions CommissionService) SettlementService {
	return &settlementService{
		uowFactory:  uowFactory,
		cfg:         cfg,
		commissions: commissions,
		draw:        DrawOutcome,
		now:         time.Now,
	}
}

// SettleRound closes the round, draws the winning outcome, pays winners and
// triggers commission propagation. Concurrent callers race on the round's
// open -> settled transition; exactly one performs the work and the rest
// observe the stored result.
func (s *settlementService) SettleRound(ctx context.Context, roundID int64) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("round %d: %w", roundID, ErrInvalidRound)
	}

	if round.IsSettled() {
		return s.storedResult(ctx, uow, round)
	}
	if !round.Due(s.now()) {
		return nil, fmt.Errorf("round %d window closes at %s, cannot settle yet", roundID, round.WindowEnd)
	}

	claimed, err := uow.RoundRepository().ClaimSettlement(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// A concurrent settler won the claim; re-read and report its result
		round, err = uow.RoundRepository().GetByID(ctx, roundID)
		if err != nil {
			return nil, err
		}
		return s.storedResult(ctx, uow, round)
	}

	winningOutcome, err := s.draw(round.GameType)
	if err != nil {
		return nil, fmt.Errorf("failed to draw outcome for round %d: %w", roundID, err)
	}
	winningLabels := strings.Split(winningOutcome, ",")

	rules := s.cfg.Games[string(round.GameType)]

	wagers, err := uow.WagerRepository().GetByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	result := &models.SettlementResult{
		RoundID:        roundID,
		WinningOutcome: winningOutcome,
		TotalWagered:   round.TotalWagered,
	}

	for _, wager := range wagers {
		if !wager.IsPending() {
			continue
		}

		if !wager.WonAgainst(winningLabels) {
			if err := uow.WagerRepository().MarkSettled(ctx, wager.ID, models.WagerStatusLost, 0); err != nil {
				return nil, err
			}
			result.WagersSettled++
			continue
		}

		payout := int64(math.Floor(float64(wager.Amount) * rules.Multipliers[wager.Outcome]))
		if _, err := Credit(ctx, uow, wager.AccountID, payout, models.TransactionTypePayoutCredit, map[string]any{
			"round_id": roundID,
			"wager_id": wager.ID,
			"outcome":  wager.Outcome,
		}); err != nil {
			// Leave the wager pending for a later manual pass rather than
			// recording a payout that never reached the account
			log.WithError(err).WithFields(log.Fields{
				"roundId":   roundID,
				"wagerId":   wager.ID,
				"accountId": wager.AccountID,
			}).Error("Failed to credit payout, skipping wager")
			continue
		}

		if err := uow.WagerRepository().MarkSettled(ctx, wager.ID, models.WagerStatusWon, payout); err != nil {
			return nil, err
		}
		result.TotalPaid += payout
		result.WagersSettled++
		result.WagersWon++
	}

	if err := uow.RoundRepository().RecordResult(ctx, roundID, winningOutcome, result.TotalPaid); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.RoundSettledEvent{
		RoundID:        roundID,
		GameType:       round.GameType,
		WinningOutcome: winningOutcome,
		TotalWagered:   result.TotalWagered,
		TotalPaid:      result.TotalPaid,
		HouseProfit:    result.TotalWagered - result.TotalPaid,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement for round %d: %w", roundID, err)
	}

	observability.RoundsSettled.WithLabelValues(string(round.GameType)).Inc()
	observability.PayoutAmount.Add(float64(result.TotalPaid))

	log.WithFields(log.Fields{
		"roundId":        roundID,
		"gameType":       round.GameType,
		"winningOutcome": winningOutcome,
		"totalWagered":   result.TotalWagered,
		"totalPaid":      result.TotalPaid,
		"wagersSettled":  result.WagersSettled,
		"wagersWon":      result.WagersWon,
	}).Info("Round settled")

	if s.commissions != nil {
		// Payouts are committed; commission failures never unwind them
		if err := s.commissions.DistributeCommissions(ctx, roundID); err != nil {
			log.WithError(err).WithField("roundId", roundID).Error("Commission propagation incomplete")
		}
	}

	return result, nil
}

// storedResult rebuilds the settlement summary of an already-settled round
func (s *settlementService) storedResult(ctx context.Context, uow UnitOfWork, round *models.Round) (*models.SettlementResult, error) {
	wagers, err := uow.WagerRepository().GetByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	result := &models.SettlementResult{
		RoundID:        round.ID,
		WinningOutcome: round.WinningOutcome,
		TotalWagered:   round.TotalWagered,
		TotalPaid:      round.TotalPaid,
	}
	for _, wager := range wagers {
		if wager.IsPending() {
			continue
		}
		result.WagersSettled++
		if wager.Status == models.WagerStatusWon {
			result.WagersWon++
		}
	}

	return result, nil
}
