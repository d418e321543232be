package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bookie/models"
)

// SettlementWorker keeps the round grid moving: it opens the current round
// for every game type and settles rounds whose window has closed. Settlement
// races between replicas are resolved by the round's status transition, so
// running several workers is safe.
type SettlementWorker struct {
	uowFactory UnitOfWorkFactory
	scheduler  RoundScheduler
	settler    SettlementService
	interval   time.Duration
	now        func() time.Time
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(uowFactory UnitOfWorkFactory, scheduler RoundScheduler, settler SettlementService, interval time.Duration) *SettlementWorker {
	return &SettlementWorker{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		settler:    settler,
		interval:   interval,
		now:        time.Now,
	}
}

// Run ticks until the context is cancelled
func (w *SettlementWorker) Run(ctx context.Context) {
	log.WithField("interval", w.interval).Info("Settlement worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Settlement worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SettlementWorker) tick(ctx context.Context) {
	for _, gameType := range models.GameTypes {
		if _, err := w.scheduler.GetOrCreateCurrentRound(ctx, gameType); err != nil {
			log.WithError(err).WithField("gameType", gameType).Error("Failed to open current round")
		}
	}

	due, err := w.dueRounds(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list due rounds")
		return
	}

	for _, round := range due {
		if _, err := w.settler.SettleRound(ctx, round.ID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"roundId":  round.ID,
				"gameType": round.GameType,
			}).Error("Failed to settle round")
		}
	}
}

func (w *SettlementWorker) dueRounds(ctx context.Context) ([]*models.Round, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RoundRepository().GetDue(ctx, w.now())
}
