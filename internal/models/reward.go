package models

import "time"

// Reward is a family-scoped catalog entry redeemable against a child's
// time bank
type Reward struct {
	ID          int64
	FamilyID    int64
	Title       string
	CostMinutes int
	Icon        string
	Available   bool
	CreatedAt   time.Time
}
