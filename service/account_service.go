package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"bookie/config"
	"bookie/models"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, cfg *config.Config) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// GetOrCreateAccount retrieves an account by username or creates one with the
// starting balance under the given parent
func (s *accountService) GetOrCreateAccount(ctx context.Context, username string, role models.Role, parentID *int64) (*models.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	if parentID != nil {
		parent, err := uow.AccountRepository().GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent account %d: %w", *parentID, ErrAccountNotFound)
		}
	}

	account, err = uow.AccountRepository().Create(ctx, username, role, parentID, s.cfg.StartingBalance)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// Lost the creation race; adopt the winner's account
		account, err = uow.AccountRepository().GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, fmt.Errorf("account %q vanished after creation race", username)
		}
		return account, nil
	}

	if s.cfg.StartingBalance > 0 {
		if err := uow.TransactionRepository().Record(ctx, &models.Transaction{
			AccountID:    account.ID,
			Type:         models.TransactionTypeInitial,
			Amount:       s.cfg.StartingBalance,
			BalanceAfter: s.cfg.StartingBalance,
			Metadata:     map[string]any{"username": username},
		}); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}

	log.WithFields(log.Fields{
		"accountId": account.ID,
		"username":  username,
		"role":      role,
	}).Info("Created account")

	return account, nil
}

// Transfer moves points between two accounts. The debit and credit commit in
// one transaction; the debit fails first if the sender cannot cover it.
func (s *accountService) Transfer(ctx context.Context, fromID, toID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	if fromID == toID {
		return fmt.Errorf("cannot transfer to the same account")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := Debit(ctx, uow, fromID, amount, models.TransactionTypeTransferOut, map[string]any{
		"to_account_id": toID,
	}); err != nil {
		return err
	}
	if _, err := Credit(ctx, uow, toID, amount, models.TransactionTypeTransferIn, map[string]any{
		"from_account_id": fromID,
	}); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	log.WithFields(log.Fields{
		"fromAccountId": fromID,
		"toAccountId":   toID,
		"amount":        amount,
	}).Info("Transfer completed")

	return nil
}

// ManualAdjust mints or burns points on an account. Only the super admin may
// do this; it is the one operation allowed to change the total points supply.
func (s *accountService) ManualAdjust(ctx context.Context, callerID, accountID int64, amount int64, reason string) error {
	if amount == 0 {
		return fmt.Errorf("adjustment amount must be non-zero")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	caller, err := uow.AccountRepository().GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if caller == nil {
		return fmt.Errorf("caller account %d: %w", callerID, ErrAccountNotFound)
	}
	if !caller.CanMint() {
		return fmt.Errorf("account %d with role %s: %w", callerID, caller.Role, ErrNotAuthorized)
	}

	metadata := map[string]any{
		"caller_id": callerID,
		"reason":    reason,
	}
	if amount > 0 {
		_, err = Credit(ctx, uow, accountID, amount, models.TransactionTypeManualAdjustment, metadata)
	} else {
		_, err = Debit(ctx, uow, accountID, -amount, models.TransactionTypeManualAdjustment, metadata)
	}
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit manual adjustment: %w", err)
	}

	log.WithFields(log.Fields{
		"callerId":  callerID,
		"accountId": accountID,
		"amount":    amount,
		"reason":    reason,
	}).Warn("Manual balance adjustment applied")

	return nil
}

// GetTransactions returns an account's transaction log, newest first
func (s *accountService) GetTransactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().GetByAccount(ctx, accountID, limit)
}
