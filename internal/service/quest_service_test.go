package service

import (
	"testing"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/realtime"
	"taskfortime/internal/repository"
)

func questTask(completed bool) models.AssignedTask {
	t := models.AssignedTask{Status: models.TaskStatusActive}
	if completed {
		done := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		t.CompletedAt = &done
		t.Status = models.TaskStatusReadyForReview
	}
	return t
}

// rejectedQuestTask was submitted once, so it carries a submission
// timestamp, but the parent sent it back
func rejectedQuestTask() models.AssignedTask {
	done := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return models.AssignedTask{Status: models.TaskStatusRejected, CompletedAt: &done}
}

func TestComputeQuestProgress(t *testing.T) {
	quest := models.FamilyQuest{TargetCompletionRate: 75}

	tests := []struct {
		name      string
		tasks     []models.AssignedTask
		wantRate  float64
		wantIsMet bool
	}{
		{
			name:      "no tasks is zero percent and never met",
			tasks:     nil,
			wantRate:  0,
			wantIsMet: false,
		},
		{
			name:      "rate below target",
			tasks:     []models.AssignedTask{questTask(true), questTask(false)},
			wantRate:  50,
			wantIsMet: false,
		},
		{
			name:      "rate exactly at target is met",
			tasks:     []models.AssignedTask{questTask(true), questTask(true), questTask(true), questTask(false)},
			wantRate:  75,
			wantIsMet: true,
		},
		{
			name:      "all completed",
			tasks:     []models.AssignedTask{questTask(true), questTask(true)},
			wantRate:  100,
			wantIsMet: true,
		},
		{
			name:      "rejected task does not count despite submission timestamp",
			tasks:     []models.AssignedTask{rejectedQuestTask()},
			wantRate:  0,
			wantIsMet: false,
		},
		{
			name:      "rejected task drags the rate below target",
			tasks:     []models.AssignedTask{questTask(true), questTask(true), rejectedQuestTask(), rejectedQuestTask()},
			wantRate:  50,
			wantIsMet: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeQuestProgress(quest, tt.tasks)
			if p.CompletionRate != tt.wantRate {
				t.Errorf("CompletionRate = %v, want %v", p.CompletionRate, tt.wantRate)
			}
			if p.IsMet != tt.wantIsMet {
				t.Errorf("IsMet = %v, want %v", p.IsMet, tt.wantIsMet)
			}
			if p.AssignedTasks != len(tt.tasks) {
				t.Errorf("AssignedTasks = %d, want %d", p.AssignedTasks, len(tt.tasks))
			}
			if p.JustCompleted {
				t.Error("ComputeQuestProgress() must never set JustCompleted itself")
			}
		})
	}
}

func TestGetQuestProgressHidesInapplicableQuests(t *testing.T) {
	db := newTestDB(t)
	familyID, _ := seedFamily(t, db)
	questRepo := repository.NewQuestRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	childRepo := repository.NewChildRepository(db)
	svc := NewQuestService(questRepo, taskRepo, childRepo, realtime.NewHub())

	// created_at defaults are stored in UTC; keep the window in UTC so the
	// comparison brackets the insert regardless of host timezone
	start := time.Now().UTC().Add(-24 * time.Hour)
	end := time.Now().UTC().Add(24 * time.Hour)
	if _, err := questRepo.CreateQuest(familyID, "Great week", "Pizza night", 50, start, end); err != nil {
		t.Fatalf("CreateQuest() error = %v", err)
	}

	// No children: the quest applies to no one and must be hidden
	progress, err := svc.GetQuestProgress(familyID)
	if err != nil {
		t.Fatalf("GetQuestProgress() error = %v", err)
	}
	if len(progress) != 0 {
		t.Fatalf("GetQuestProgress() with no children returned %d entries, want 0", len(progress))
	}

	child, err := childRepo.CreateChild(familyID, "Sam", "mint", "pinhash")
	if err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	// A child but no tasks in the window: still inapplicable, not 0%
	progress, err = svc.GetQuestProgress(familyID)
	if err != nil {
		t.Fatalf("GetQuestProgress() error = %v", err)
	}
	if len(progress) != 0 {
		t.Fatalf("GetQuestProgress() with no tasks returned %d entries, want 0", len(progress))
	}

	task, err := taskRepo.CreateTask(familyID, child.ID, "Tidy room", "", "", 10, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	progress, err = svc.GetQuestProgress(familyID)
	if err != nil {
		t.Fatalf("GetQuestProgress() error = %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("GetQuestProgress() returned %d entries, want 1", len(progress))
	}
	if progress[0].CompletionRate != 0 || progress[0].IsMet {
		t.Errorf("open task progress = %v%% met=%v, want 0%% met=false", progress[0].CompletionRate, progress[0].IsMet)
	}

	// Submission crosses the target; the celebration fires exactly once
	if _, err := taskRepo.SubmitForReview(task.ID, child.ID); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	progress, err = svc.GetQuestProgress(familyID)
	if err != nil {
		t.Fatalf("GetQuestProgress() error = %v", err)
	}
	if len(progress) != 1 || !progress[0].IsMet || !progress[0].JustCompleted {
		t.Fatalf("first recomputation after crossing target = %+v, want met and just completed", progress)
	}
	progress, err = svc.GetQuestProgress(familyID)
	if err != nil {
		t.Fatalf("GetQuestProgress() error = %v", err)
	}
	if len(progress) != 1 || progress[0].JustCompleted {
		t.Error("celebration fired twice for the same quest")
	}
}

func TestComputeQuestProgressIsDeterministic(t *testing.T) {
	quest := models.FamilyQuest{TargetCompletionRate: 50}
	tasks := []models.AssignedTask{questTask(true), questTask(false), questTask(true)}

	first := ComputeQuestProgress(quest, tasks)
	second := ComputeQuestProgress(quest, tasks)
	if first != second {
		t.Errorf("ComputeQuestProgress() not deterministic: %+v vs %+v", first, second)
	}
}
