package repository

import (
	"path/filepath"
	"testing"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// newTestChild sets up an account, a family and one child, returning the
// family and child IDs
func newTestChild(t *testing.T, db *database.DB) (int64, int64) {
	t.Helper()

	account, err := NewAccountRepository(db).CreateAccount("parent@example.com", "hash", "Pat", models.RoleParent)
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	family, err := NewFamilyRepository(db).CreateFamily("Test Family", "ABCD1234", account.ID)
	if err != nil {
		t.Fatalf("failed to create family: %v", err)
	}
	child, err := NewChildRepository(db).CreateChild(family.ID, "Sam", "mint", "pinhash")
	if err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	return family.ID, child.ID
}

func TestSubmitForReviewIdempotent(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	repo := NewTaskRepository(db)

	task, err := repo.CreateTask(familyID, childID, "Tidy room", "", "chores", 20, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	moved, err := repo.SubmitForReview(task.ID, childID)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if moved != 1 {
		t.Fatalf("first submission moved %d rows, want 1", moved)
	}

	// A duplicate submission moves nothing; the task is already settled
	moved, err = repo.SubmitForReview(task.ID, childID)
	if err != nil {
		t.Fatalf("SubmitForReview() retry error = %v", err)
	}
	if moved != 0 {
		t.Fatalf("duplicate submission moved %d rows, want 0", moved)
	}

	reloaded, err := repo.GetTaskByID(task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID() error = %v", err)
	}
	if !reloaded.IsSettled() {
		t.Errorf("task status = %q after duplicate submission, want settled", reloaded.Status)
	}
	if reloaded.CompletedAt == nil {
		t.Error("submission did not record completed_at")
	}
}

func TestSubmitForReviewWrongChild(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	repo := NewTaskRepository(db)

	task, err := repo.CreateTask(familyID, childID, "Feed the cat", "", "", 10, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	moved, err := repo.SubmitForReview(task.ID, childID+1)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if moved != 0 {
		t.Errorf("submission by another child moved %d rows, want 0", moved)
	}
}

func TestApproveAndCredit(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	taskRepo := NewTaskRepository(db)
	ledgerRepo := NewLedgerRepository(db)

	// Park the child one approval short of level 2
	if _, err := db.Exec("UPDATE children SET xp = 95 WHERE id = ?", childID); err != nil {
		t.Fatalf("failed to seed xp: %v", err)
	}

	task, err := taskRepo.CreateTask(familyID, childID, "Homework", "", "school", 25, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := taskRepo.SubmitForReview(task.ID, childID); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	effects, ok, err := taskRepo.ApproveAndCredit(task.ID, familyID, "approved: Homework")
	if err != nil {
		t.Fatalf("ApproveAndCredit() error = %v", err)
	}
	if !ok {
		t.Fatal("ApproveAndCredit() reported conflict on a submitted task")
	}
	if effects.CreditedMinutes != 25 {
		t.Errorf("CreditedMinutes = %d, want 25", effects.CreditedMinutes)
	}
	if effects.NewXP != 105 {
		t.Errorf("NewXP = %d, want 105", effects.NewXP)
	}
	if models.LevelForXP(effects.NewXP) != 2 {
		t.Errorf("level after approval = %d, want 2", models.LevelForXP(effects.NewXP))
	}
	if effects.Task.Status != models.TaskStatusApproved {
		t.Errorf("task status = %q, want approved", effects.Task.Status)
	}
	if effects.Task.ApprovedAt == nil {
		t.Error("approval did not record approved_at")
	}

	balance, err := ledgerRepo.Balance(childID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 25 {
		t.Errorf("balance after approval = %d, want 25", balance)
	}

	// A second approval is a conflict and must not credit again
	_, ok, err = taskRepo.ApproveAndCredit(task.ID, familyID, "approved: Homework")
	if err != nil {
		t.Fatalf("ApproveAndCredit() retry error = %v", err)
	}
	if ok {
		t.Fatal("ApproveAndCredit() settled the same task twice")
	}
	balance, err = ledgerRepo.Balance(childID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 25 {
		t.Errorf("balance after duplicate approval = %d, want 25", balance)
	}
}

func TestApproveRequiresSubmission(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	repo := NewTaskRepository(db)

	task, err := repo.CreateTask(familyID, childID, "Laundry", "", "", 15, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	_, ok, err := repo.ApproveAndCredit(task.ID, familyID, "approved: Laundry")
	if err != nil {
		t.Fatalf("ApproveAndCredit() error = %v", err)
	}
	if ok {
		t.Error("ApproveAndCredit() settled a task that was never submitted")
	}
}

func TestRejectAndResubmit(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	repo := NewTaskRepository(db)

	task, err := repo.CreateTask(familyID, childID, "Dishes", "", "", 10, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := repo.SubmitForReview(task.ID, childID); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}

	ok, err := repo.Reject(task.ID, familyID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if !ok {
		t.Fatal("Reject() failed on a submitted task")
	}

	// Rejection is not terminal
	moved, err := repo.SubmitForReview(task.ID, childID)
	if err != nil {
		t.Fatalf("SubmitForReview() after rejection error = %v", err)
	}
	if moved != 1 {
		t.Errorf("resubmission moved %d rows, want 1", moved)
	}
}

func TestSoftDeletedTasksExcluded(t *testing.T) {
	db := newTestDB(t)
	familyID, childID := newTestChild(t, db)
	repo := NewTaskRepository(db)

	task, err := repo.CreateTask(familyID, childID, "Old task", "", "", 5, true)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := repo.SoftDeleteTask(task.ID, familyID); err != nil {
		t.Fatalf("SoftDeleteTask() error = %v", err)
	}

	tasks, err := repo.GetTasksForChild(childID)
	if err != nil {
		t.Fatalf("GetTasksForChild() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("GetTasksForChild() returned %d tasks, want 0", len(tasks))
	}

	// Submission against a deleted task moves nothing
	moved, err := repo.SubmitForReview(task.ID, childID)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if moved != 0 {
		t.Errorf("submission of a deleted task moved %d rows, want 0", moved)
	}
}

func TestLedgerBalanceAndGuardedAppend(t *testing.T) {
	db := newTestDB(t)
	_, childID := newTestChild(t, db)
	repo := NewLedgerRepository(db)

	balance, err := repo.Balance(childID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 0 {
		t.Fatalf("fresh balance = %d, want 0", balance)
	}

	if err := repo.Append(childID, 60, "approved: chores", models.TxTaskReward); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	ok, err := repo.AppendIfBalanceAtLeast(childID, 45, "redeemed: movie night", models.TxRewardRedemption)
	if err != nil {
		t.Fatalf("AppendIfBalanceAtLeast() error = %v", err)
	}
	if !ok {
		t.Fatal("AppendIfBalanceAtLeast() denied an affordable redemption")
	}

	// 15 left; a second 45-star redemption must be denied with no entry
	ok, err = repo.AppendIfBalanceAtLeast(childID, 45, "redeemed: movie night", models.TxRewardRedemption)
	if err != nil {
		t.Fatalf("AppendIfBalanceAtLeast() error = %v", err)
	}
	if ok {
		t.Fatal("AppendIfBalanceAtLeast() allowed an overdraft")
	}

	balance, err = repo.Balance(childID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 15 {
		t.Errorf("balance = %d, want 15", balance)
	}

	entries, err := repo.Entries(childID)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Entries() returned %d rows, want 2 (denied redemption must leave no trace)", len(entries))
	}
}

func TestGoalDeposit(t *testing.T) {
	db := newTestDB(t)
	_, childID := newTestChild(t, db)
	goalRepo := NewGoalRepository(db)
	ledgerRepo := NewLedgerRepository(db)

	if err := ledgerRepo.Append(childID, 50, "bonus", models.TxParentBonus); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	goal, err := goalRepo.CreateGoal(childID, "New bike", 40)
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	result, ok, err := goalRepo.Deposit(goal.ID, childID, 30, "saved toward: New bike")
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if !ok {
		t.Fatal("Deposit() denied an affordable deposit")
	}
	if result.JustCompleted {
		t.Error("Deposit() reported completion below the target")
	}
	if result.Goal.CurrentStars != 30 {
		t.Errorf("goal stars = %d, want 30", result.Goal.CurrentStars)
	}

	// 20 stars left; a 30-star deposit must be denied atomically
	_, ok, err = goalRepo.Deposit(goal.ID, childID, 30, "saved toward: New bike")
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if ok {
		t.Fatal("Deposit() overdrew the balance")
	}

	// The affordable remainder crosses the target exactly once
	result, ok, err = goalRepo.Deposit(goal.ID, childID, 20, "saved toward: New bike")
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if !ok {
		t.Fatal("Deposit() denied the final affordable deposit")
	}
	if !result.JustCompleted {
		t.Error("Deposit() did not report the completion transition")
	}
	if result.Goal.Status != models.GoalStatusCompleted {
		t.Errorf("goal status = %q, want completed", result.Goal.Status)
	}

	balance, err := ledgerRepo.Balance(childID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 0 {
		t.Errorf("balance after deposits = %d, want 0", balance)
	}
}

func TestQuestMarkCompletedClaimedOnce(t *testing.T) {
	db := newTestDB(t)
	familyID, _ := newTestChild(t, db)
	repo := NewQuestRepository(db)

	quest, err := repo.CreateQuest(familyID, "Great week", "Pizza night", 80, testDate(2026, 3, 2), testDate(2026, 3, 8))
	if err != nil {
		t.Fatalf("CreateQuest() error = %v", err)
	}

	claimed, err := repo.MarkCompleted(quest.ID)
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if !claimed {
		t.Fatal("MarkCompleted() failed to claim an active quest")
	}

	claimed, err = repo.MarkCompleted(quest.ID)
	if err != nil {
		t.Fatalf("MarkCompleted() retry error = %v", err)
	}
	if claimed {
		t.Error("MarkCompleted() claimed the same quest twice")
	}
}
