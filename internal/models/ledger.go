package models

import "time"

// Ledger transaction types
const (
	TxTaskReward       = "task_reward"
	TxInterest         = "interest"
	TxParentBonus      = "parent_bonus"
	TxParentReset      = "parent_reset"
	TxSavingsDeposit   = "savings_deposit"
	TxRewardRedemption = "reward_redemption"
)

// StarsLedgerEntry is one immutable balance change for a child. Entries
// are never updated or deleted; corrections are appended as offsetting
// entries, and a child's balance is always the sum of deltas.
type StarsLedgerEntry struct {
	ID              int64
	ChildID         int64
	Delta           int
	Reason          string
	TransactionType string
	CreatedAt       time.Time
}
