package service

import (
	"context"
	"fmt"

	"bookie/events"
	"bookie/models"
)

// Credit applies a balance credit and appends the matching transaction log
// entry inside the given unit of work. This and Debit are the only entry
// points for balance changes; the mutation and the log entry commit or roll
// back together.
func Credit(ctx context.Context, uow UnitOfWork, accountID int64, amount int64, txType models.TransactionType, metadata map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive")
	}

	newBalance, err := uow.AccountRepository().AddBalance(ctx, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account %d: %w", accountID, err)
	}

	transaction := &models.Transaction{
		AccountID:    accountID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: newBalance,
		Metadata:     metadata,
	}
	if err := uow.TransactionRepository().Record(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to record credit transaction: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       accountID,
		NewBalance:      newBalance,
		ChangeAmount:    amount,
		TransactionType: txType,
	})

	return transaction, nil
}

// Debit applies a balance debit and appends the matching transaction log
// entry inside the given unit of work. Fails with ErrInsufficientBalance
// when the account cannot cover the amount; balances never go negative.
func Debit(ctx context.Context, uow UnitOfWork, accountID int64, amount int64, txType models.TransactionType, metadata map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive")
	}

	newBalance, err := uow.AccountRepository().DeductBalance(ctx, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit account %d: %w", accountID, err)
	}

	transaction := &models.Transaction{
		AccountID:    accountID,
		Type:         txType,
		Amount:       -amount,
		BalanceAfter: newBalance,
		Metadata:     metadata,
	}
	if err := uow.TransactionRepository().Record(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to record debit transaction: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       accountID,
		NewBalance:      newBalance,
		ChangeAmount:    -amount,
		TransactionType: txType,
	})

	return transaction, nil
}
