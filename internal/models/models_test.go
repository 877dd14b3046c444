package models

import (
	"testing"
	"time"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{xp: 0, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 199, want: 2},
		{xp: 250, want: 3},
		{xp: 1000, want: 11},
		{xp: -10, want: 1},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestSessionIsExpired(t *testing.T) {
	live := Session{ExpiresAt: time.Now().Add(time.Hour)}
	if live.IsExpired() {
		t.Error("session expiring in an hour reported expired")
	}
	dead := Session{ExpiresAt: time.Now().Add(-time.Minute)}
	if !dead.IsExpired() {
		t.Error("session expired a minute ago reported live")
	}
}

func TestSessionContextChildMode(t *testing.T) {
	childID := int64(7)
	tests := []struct {
		name       string
		sc         SessionContext
		wantActive bool
		wantExit   bool
	}{
		{
			name:       "plain parent session",
			sc:         SessionContext{Role: RoleParent},
			wantActive: false,
			wantExit:   false,
		},
		{
			name:       "parent viewing as child",
			sc:         SessionContext{Role: RoleParent, ActiveChildID: &childID},
			wantActive: true,
			wantExit:   true,
		},
		{
			name:       "genuine child account",
			sc:         SessionContext{Role: RoleChild, ActiveChildID: &childID},
			wantActive: true,
			wantExit:   false,
		},
		{
			name:       "child account without context stays locked",
			sc:         SessionContext{Role: RoleChild},
			wantActive: true,
			wantExit:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sc.ChildModeActive(); got != tt.wantActive {
				t.Errorf("ChildModeActive() = %v, want %v", got, tt.wantActive)
			}
			if got := tt.sc.CanExitChildContext(); got != tt.wantExit {
				t.Errorf("CanExitChildContext() = %v, want %v", got, tt.wantExit)
			}
		})
	}
}

func TestTaskStatusPredicates(t *testing.T) {
	tests := []struct {
		status      string
		submittable bool
		settled     bool
	}{
		{status: TaskStatusActive, submittable: true, settled: false},
		{status: TaskStatusRejected, submittable: true, settled: false},
		{status: TaskStatusReadyForReview, submittable: false, settled: true},
		{status: TaskStatusApproved, submittable: false, settled: true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			task := AssignedTask{Status: tt.status}
			if got := task.IsSubmittable(); got != tt.submittable {
				t.Errorf("IsSubmittable() = %v, want %v", got, tt.submittable)
			}
			if got := task.IsSettled(); got != tt.settled {
				t.Errorf("IsSettled() = %v, want %v", got, tt.settled)
			}
		})
	}
}

func TestApprovalLatency(t *testing.T) {
	completed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	approved := completed.Add(45 * time.Minute)

	task := AssignedTask{CompletedAt: &completed, ApprovedAt: &approved}
	latency, ok := task.ApprovalLatency()
	if !ok {
		t.Fatal("ApprovalLatency() not available with both timestamps set")
	}
	if latency != 45*time.Minute {
		t.Errorf("ApprovalLatency() = %v, want 45m", latency)
	}

	if _, ok := (&AssignedTask{CompletedAt: &completed}).ApprovalLatency(); ok {
		t.Error("ApprovalLatency() available without an approval timestamp")
	}
	if _, ok := (&AssignedTask{}).ApprovalLatency(); ok {
		t.Error("ApprovalLatency() available without any timestamps")
	}
}

func TestSavingsGoalIsMet(t *testing.T) {
	met := SavingsGoal{TargetStars: 100, CurrentStars: 100}
	if !met.IsMet() {
		t.Error("goal at target reported unmet")
	}
	unmet := SavingsGoal{TargetStars: 100, CurrentStars: 99}
	if unmet.IsMet() {
		t.Error("goal below target reported met")
	}
}
