package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bookie/config"
	"bookie/events"
	"bookie/models"
)

type roundScheduler struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	now        func() time.Time
}

// NewRoundScheduler creates a new round scheduler
func NewRoundScheduler(uowFactory UnitOfWorkFactory, cfg *config.Config) RoundScheduler {
	return &roundScheduler{
		uowFactory: uowFactory,
		cfg:        cfg,
		now:        time.Now,
	}
}

// windowStartFor floors t onto the game's fixed window grid. The grid is
// anchored to the Unix epoch in UTC, so every process computes the same
// window boundaries for the same instant regardless of when it started.
func windowStartFor(t time.Time, duration time.Duration) time.Time {
	secs := int64(duration.Seconds())
	unix := t.Unix()
	return time.Unix(unix-unix%secs, 0).UTC()
}

// GetOrCreateCurrentRound returns the round covering the game's current
// window. The first caller in a window creates the round; concurrent callers
// race on the (game_type, window_start) uniqueness constraint and the losers
// adopt the winner's row.
func (s *roundScheduler) GetOrCreateCurrentRound(ctx context.Context, gameType models.GameType) (*models.Round, error) {
	rules, ok := s.cfg.Games[string(gameType)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", gameType, ErrUnknownGame)
	}

	windowStart := windowStartFor(s.now(), rules.RoundDuration)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByWindow(ctx, gameType, windowStart)
	if err != nil {
		return nil, err
	}
	if round != nil {
		return round, nil
	}

	round = &models.Round{
		GameType:    gameType,
		WindowStart: windowStart,
		WindowEnd:   windowStart.Add(rules.RoundDuration),
		Status:      models.RoundStatusOpen,
	}

	created, err := uow.RoundRepository().Create(ctx, round)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the creation race; adopt the winner's round
		round, err = uow.RoundRepository().GetByWindow(ctx, gameType, windowStart)
		if err != nil {
			return nil, err
		}
		if round == nil {
			return nil, fmt.Errorf("round for %s window %s vanished after creation race", gameType, windowStart)
		}
		return round, nil
	}

	uow.EventBus().Publish(events.RoundOpenedEvent{
		RoundID:     round.ID,
		GameType:    round.GameType,
		WindowStart: round.WindowStart.Unix(),
		WindowEnd:   round.WindowEnd.Unix(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round creation: %w", err)
	}

	log.WithFields(log.Fields{
		"roundId":     round.ID,
		"gameType":    round.GameType,
		"windowStart": round.WindowStart,
		"windowEnd":   round.WindowEnd,
	}).Info("Opened new betting round")

	return round, nil
}

// GetRound retrieves a round by id
func (s *roundScheduler) GetRound(ctx context.Context, roundID int64) (*models.Round, error) {
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

	return round, nil
}
