package models

import "time"

// XPPerApprovedTask is the fixed experience credit for one approved task.
const XPPerApprovedTask = 10

// Child represents a managed minor profile. It carries no stored balance
// or level: the time-bank balance is always derived from the stars ledger
// and the level from XP. AccountID links the profile to its own child-role
// login, when the parents have created one.
type Child struct {
	ID          int64
	FamilyID    int64
	AccountID   *int64
	Name        string
	AvatarColor string
	PINHash     string
	XP          int
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Level derives the child's level from experience points:
// level 1 at 0-99 XP, level 2 at 100-199 XP, and so on.
func (c *Child) Level() int {
	return LevelForXP(c.XP)
}

// LevelForXP computes 1 + floor(xp/100) for non-negative xp
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return 1 + xp/100
}

// IsDeleted reports whether the profile has been soft-deleted. Soft-deleted
// children are excluded from task lists, quest progress and rewards.
func (c *Child) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ChildWithStats combines a child with values derived on read
type ChildWithStats struct {
	Child
	Level            int
	TimeBankMinutes  int
	ActiveTaskCount  int
	PendingTaskCount int
}
