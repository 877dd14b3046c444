package models

import "time"

// Session is a server-side authenticated session. ActiveChildID carries
// the session-scoped child context: set for the lifetime of a "view as
// child" entry by a parent, or for the whole session of a genuine child
// account. It dies with the session and is cleared on sign-out.
type Session struct {
	ID             string
	AccountID      int64
	ActiveChildID  *int64
	ChildEnteredAt *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionContext is the explicit per-request session state threaded
// through guards and handlers. It is constructed once per request from
// the session row; nothing reads ambient session state elsewhere.
type SessionContext struct {
	SessionID     string
	AccountID     int64
	Role          string
	IsAdmin       bool
	FamilyID      int64
	ActiveChildID *int64
	EnteredAt     *time.Time
}

// ChildModeActive reports whether the session is locked to a child's
// capabilities. A genuine child account is always in child mode; there is
// no code path by which it can clear the context.
func (c SessionContext) ChildModeActive() bool {
	return c.Role == RoleChild || c.ActiveChildID != nil
}

// CanExitChildContext reports whether the "back to parent" action is
// allowed: only a parent account that entered a child context may leave it
func (c SessionContext) CanExitChildContext() bool {
	return c.Role == RoleParent && c.ActiveChildID != nil
}
