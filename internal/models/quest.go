package models

import "time"

// Family quest statuses
const (
	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
)

// FamilyQuest is a family-wide, time-boxed completion-rate objective.
// Progress is never stored; it is recomputed on every read.
type FamilyQuest struct {
	ID                   int64
	FamilyID             int64
	Title                string
	RewardDescription    string
	TargetCompletionRate float64 // percentage, 0-100
	StartDate            time.Time
	EndDate              time.Time
	Status               string
	CreatedAt            time.Time
	CelebratedAt         *time.Time
}

// QuestProgress is the recomputed state of a quest against current family
// composition
type QuestProgress struct {
	Quest          FamilyQuest
	AssignedTasks  int
	CompletedTasks int
	CompletionRate float64 // percentage, 0-100
	IsMet          bool

	// JustCompleted is set only on the recomputation that observed the
	// false -> true transition; callers fire the celebration off it.
	JustCompleted bool
}
