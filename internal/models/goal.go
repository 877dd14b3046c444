package models

import "time"

// Savings goal statuses. The transition to completed is one-way and
// happens exactly once.
const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
)

// SavingsGoal is a child-scoped stars target
type SavingsGoal struct {
	ID           int64
	ChildID      int64
	Title        string
	TargetStars  int
	CurrentStars int
	Status       string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// IsMet reports whether the saved stars have reached the target
func (g *SavingsGoal) IsMet() bool {
	return g.CurrentStars >= g.TargetStars
}
