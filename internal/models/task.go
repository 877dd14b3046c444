package models

import "time"

// Assigned task statuses. The soft-delete flag is an orthogonal axis, not
// a status.
const (
	TaskStatusActive         = "active"
	TaskStatusReadyForReview = "ready_for_review"
	TaskStatusApproved       = "approved"
	TaskStatusRejected       = "rejected"
)

// SubmittablePredecessors is the set of statuses from which a child may
// submit a task for review. Rejection is not terminal: resubmission is
// allowed indefinitely.
var SubmittablePredecessors = []string{TaskStatusActive, TaskStatusRejected}

// AssignedTask is one instance of work given to exactly one child
type AssignedTask struct {
	ID               int64
	FamilyID         int64
	ChildID          int64
	Title            string
	Description      string
	Category         string
	RewardMinutes    int
	RequiresApproval bool
	Status           string
	CreatedAt        time.Time
	CompletedAt      *time.Time
	ApprovedAt       *time.Time
	DeletedAt        *time.Time
}

// IsDeleted reports whether the task has been soft-deleted
func (t *AssignedTask) IsDeleted() bool {
	return t.DeletedAt != nil
}

// IsSubmittable reports whether the task is in a status a child submission
// can move forward from
func (t *AssignedTask) IsSubmittable() bool {
	return t.Status == TaskStatusActive || t.Status == TaskStatusRejected
}

// IsSettled reports whether the task already left the submittable set,
// which makes a duplicate submission a no-op rather than an error
func (t *AssignedTask) IsSettled() bool {
	return t.Status == TaskStatusReadyForReview || t.Status == TaskStatusApproved
}

// ApprovalLatency returns the time between submission and approval, or
// false when either timestamp is missing
func (t *AssignedTask) ApprovalLatency() (time.Duration, bool) {
	if t.CompletedAt == nil || t.ApprovedAt == nil {
		return 0, false
	}
	return t.ApprovedAt.Sub(*t.CompletedAt), true
}
