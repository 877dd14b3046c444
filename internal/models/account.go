package models

import "time"

// Account roles. A role is set at signup and immutable afterwards except
// by administrative override.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Account represents a human operator: a parent account or the optional
// login account backing a child profile
type Account struct {
	ID              int64
	Email           string
	PasswordHash    string
	Name            string
	Role            string
	OAuthProvider   string
	OAuthSubject    string
	NotifyApprovals bool
	IsAdmin         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
