package models

import (
	"time"
)

// TransactionType represents the kind of balance change
type TransactionType string

const (
	TransactionTypeWagerDebit       TransactionType = "wager_debit"
	TransactionTypePayoutCredit     TransactionType = "payout_credit"
	TransactionTypeCommissionCredit TransactionType = "commission_credit"
	TransactionTypeTransferIn       TransactionType = "transfer_in"
	TransactionTypeTransferOut      TransactionType = "transfer_out"
	TransactionTypeInitial          TransactionType = "initial"

	// Super-admin mint/burn. The only type allowed to break points
	// conservation, kept distinct so reconciliation can explain every
	// balance change.
	TransactionTypeManualAdjustment TransactionType = "manual_adjustment"
)

// Transaction is one append-only entry in an account's transaction log.
// Amount is signed; BalanceAfter is the balance the mutation produced.
type Transaction struct {
	ID           int64           `db:"id"`
	AccountID    int64           `db:"account_id"`
	Type         TransactionType `db:"type"`
	Amount       int64           `db:"amount"`
	BalanceAfter int64           `db:"balance_after"`
	Metadata     map[string]any  `db:"metadata"`
	CreatedAt    time.Time       `db:"created_at"`
}
