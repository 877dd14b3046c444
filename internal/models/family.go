package models

import "time"

// Family is the tenancy boundary: it owns accounts, children, tasks,
// rewards and quests. Every query is scoped to exactly one family.
type Family struct {
	ID         int64
	Name       string
	FamilyCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FamilyMember links an account to a family
type FamilyMember struct {
	ID        int64
	FamilyID  int64
	AccountID int64
	Role      string // 'parent' or 'admin'
	JoinedAt  time.Time
}
