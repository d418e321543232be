package service

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"bookie/config"
	"bookie/events"
	"bookie/models"
	"bookie/observability"
)

type commissionService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	publisher  EventPublisher
}

// NewCommissionService creates a new commission service. publisher may be
// nil; the aggregate distribution event is then skipped.
func NewCommissionService(uowFactory UnitOfWorkFactory, cfg *config.Config, publisher EventPublisher) CommissionService {
	return &commissionService{
		uowFactory: uowFactory,
		cfg:        cfg,
		publisher:  publisher,
	}
}

// plannedCredit is one ancestor credit derived from one wager's chain walk
type plannedCredit struct {
	beneficiary *models.Account
	sourceID    int64
	level       int
	rate        float64
	amount      int64
}

// DistributeCommissions walks each bettor's ownership chain and credits
// eligible ancestors. Each credit runs in its own transaction so one failing
// ancestor cannot block the rest; the (round, beneficiary, source) uniqueness
// constraint makes re-runs converge instead of double-paying.
func (s *commissionService) DistributeCommissions(ctx context.Context, roundID int64) error {
	round, wagers, err := s.loadSettledRound(ctx, roundID)
	if err != nil {
		return err
	}

	credits, err := s.planCredits(ctx, round, wagers)
	if err != nil {
		return err
	}

	var (
		totalAmount int64
		entryCount  int
		failures    int
	)
	for _, credit := range credits {
		created, err := s.applyCredit(ctx, roundID, credit)
		if err != nil {
			failures++
			observability.CommissionFailures.Inc()
			log.WithError(err).WithFields(log.Fields{
				"roundId":       roundID,
				"beneficiaryId": credit.beneficiary.ID,
				"sourceId":      credit.sourceID,
			}).Error("Failed to credit commission")
			continue
		}
		if created {
			totalAmount += credit.amount
			entryCount++
		}
	}

	observability.CommissionAmount.Add(float64(totalAmount))

	if s.publisher != nil {
		s.publisher.Publish(events.CommissionDistributedEvent{
			RoundID:     roundID,
			TotalAmount: totalAmount,
			EntryCount:  entryCount,
			Failures:    failures,
		})
	}

	log.WithFields(log.Fields{
		"roundId":     roundID,
		"totalAmount": totalAmount,
		"entryCount":  entryCount,
		"failures":    failures,
	}).Info("Commission distribution finished")

	if failures > 0 {
		return fmt.Errorf("%d of %d commission credits failed for round %d: %w",
			failures, len(credits), roundID, ErrPropagationPartial)
	}
	return nil
}

// applyCredit records one commission entry and its balance credit in a single
// transaction. Returns false when the entry already exists from a prior run.
func (s *commissionService) applyCredit(ctx context.Context, roundID int64, credit plannedCredit) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry := &models.CommissionEntry{
		RoundID:       roundID,
		BeneficiaryID: credit.beneficiary.ID,
		SourceID:      credit.sourceID,
		Level:         credit.level,
		Rate:          credit.rate,
		Amount:        credit.amount,
	}
	created, err := uow.CommissionRepository().Create(ctx, entry)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if _, err := Credit(ctx, uow, credit.beneficiary.ID, credit.amount, models.TransactionTypeCommissionCredit, map[string]any{
		"round_id":  roundID,
		"source_id": credit.sourceID,
		"level":     credit.level,
		"rate":      credit.rate,
	}); err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit commission credit: %w", err)
	}
	return true, nil
}

// planCredits derives every ancestor credit owed for the round's wagers.
// The walk up each bettor's chain is bounded by MaxCommissionDepth and a
// visited set, so a corrupted parent cycle cannot loop forever.
func (s *commissionService) planCredits(ctx context.Context, round *models.Round, wagers []*models.Wager) ([]plannedCredit, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := make(map[int64]*models.Account)
	getAccount := func(id int64) (*models.Account, error) {
		if account, ok := accounts[id]; ok {
			return account, nil
		}
		account, err := uow.AccountRepository().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = account
		return account, nil
	}

	var credits []plannedCredit
	for _, wager := range wagers {
		bettor, err := getAccount(wager.AccountID)
		if err != nil {
			return nil, err
		}
		if bettor == nil {
			log.WithFields(log.Fields{
				"roundId": round.ID,
				"wagerId": wager.ID,
			}).Warn("Wager references missing account, skipping chain")
			continue
		}

		visited := map[int64]bool{bettor.ID: true}
		current := bettor
		for level := 1; level <= s.cfg.MaxCommissionDepth && current.ParentID != nil; level++ {
			parent, err := getAccount(*current.ParentID)
			if err != nil {
				return nil, err
			}
			if parent == nil || visited[parent.ID] {
				break
			}
			visited[parent.ID] = true

			// The house takes its cut as profit, not commission
			if parent.Role != models.RoleSuperAdmin {
				if rate, ok := s.cfg.CommissionRates[string(parent.Role)]; ok && rate > 0 {
					amount := int64(math.Floor(float64(wager.Amount) * rate))
					if amount > 0 {
						credits = append(credits, plannedCredit{
							beneficiary: parent,
							sourceID:    bettor.ID,
							level:       level,
							rate:        rate,
							amount:      amount,
						})
					}
				}
			}

			current = parent
		}
	}

	return credits, nil
}

// loadSettledRound loads the round and its wagers, requiring the round to be
// settled; commission derives from final wager state
func (s *commissionService) loadSettledRound(ctx context.Context, roundID int64) (*models.Round, []*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByID(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	if round == nil {
		return nil, nil, fmt.Errorf("round %d: %w", roundID, ErrInvalidRound)
	}
	if !round.IsSettled() {
		return nil, nil, fmt.Errorf("round %d is not settled, cannot distribute commission", roundID)
	}

	wagers, err := uow.WagerRepository().GetByRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}

	return round, wagers, nil
}

// ReconcileRound compares the commission the round's wagers should have
// produced against what the entries table actually recorded
func (s *commissionService) ReconcileRound(ctx context.Context, roundID int64) (*models.CommissionReconciliation, error) {
	round, wagers, err := s.loadSettledRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	credits, err := s.planCredits(ctx, round, wagers)
	if err != nil {
		return nil, err
	}

	var expected int64
	for _, credit := range credits {
		expected += credit.amount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	recorded, err := uow.CommissionRepository().TotalByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	return &models.CommissionReconciliation{
		RoundID:        roundID,
		ExpectedAmount: expected,
		RecordedAmount: recorded,
	}, nil
}

// SummaryByBeneficiary aggregates commission earned over a date range
func (s *commissionService) SummaryByBeneficiary(ctx context.Context, beneficiaryID int64, from, to time.Time) (*models.CommissionSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.CommissionRepository().SummaryByBeneficiary(ctx, beneficiaryID, from, to)
}
