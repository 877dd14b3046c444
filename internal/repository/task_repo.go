package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// TaskRepository handles database operations for assigned tasks. Every
// state transition is a conditional UPDATE scoped by task id, owner id and
// expected predecessor statuses, so authorization and the prior-state
// check happen atomically with the mutation.
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, family_id, child_id, title, description, category,
	reward_minutes, requires_approval, status, created_at, completed_at,
	approved_at, deleted_at`

func scanTask(scan func(dest ...interface{}) error) (*models.AssignedTask, error) {
	task := &models.AssignedTask{}
	err := scan(
		&task.ID,
		&task.FamilyID,
		&task.ChildID,
		&task.Title,
		&task.Description,
		&task.Category,
		&task.RewardMinutes,
		&task.RequiresApproval,
		&task.Status,
		&task.CreatedAt,
		&task.CompletedAt,
		&task.ApprovedAt,
		&task.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask assigns a new task to a child
func (r *TaskRepository) CreateTask(familyID, childID int64, title, description, category string, rewardMinutes int, requiresApproval bool) (*models.AssignedTask, error) {
	query := `
		INSERT INTO assigned_tasks (family_id, child_id, title, description, category, reward_minutes, requires_approval)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, childID, title, description, category, rewardMinutes, requiresApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &models.AssignedTask{
		ID:               id,
		FamilyID:         familyID,
		ChildID:          childID,
		Title:            title,
		Description:      description,
		Category:         category,
		RewardMinutes:    rewardMinutes,
		RequiresApproval: requiresApproval,
		Status:           models.TaskStatusActive,
		CreatedAt:        time.Now(),
	}, nil
}

// GetTaskByID retrieves a task by ID; returns nil when not found
func (r *TaskRepository) GetTaskByID(taskID int64) (*models.AssignedTask, error) {
	query := "SELECT " + taskColumns + " FROM assigned_tasks WHERE id = ?"
	task, err := scanTask(r.db.QueryRow(query, taskID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetTasksForChild retrieves the non-deleted tasks assigned to a child
func (r *TaskRepository) GetTasksForChild(childID int64) ([]models.AssignedTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM assigned_tasks
		WHERE child_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.queryTasks(query, childID)
}

// GetTasksForFamily retrieves the non-deleted tasks in a family
func (r *TaskRepository) GetTasksForFamily(familyID int64) ([]models.AssignedTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM assigned_tasks
		WHERE family_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.queryTasks(query, familyID)
}

// GetTasksInWindow retrieves non-deleted family tasks created within
// [start, end], for quest progress recomputation
func (r *TaskRepository) GetTasksInWindow(familyID int64, start, end time.Time) ([]models.AssignedTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM assigned_tasks
		WHERE family_id = ? AND deleted_at IS NULL AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`
	return r.queryTasks(query, familyID, start, end)
}

// GetTasksForChildBetween retrieves non-deleted child tasks created within
// [from, to), for coaching telemetry
func (r *TaskRepository) GetTasksForChildBetween(childID int64, from, to time.Time) ([]models.AssignedTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM assigned_tasks
		WHERE child_id = ? AND deleted_at IS NULL AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`
	return r.queryTasks(query, childID, from, to)
}

func (r *TaskRepository) queryTasks(query string, args ...interface{}) ([]models.AssignedTask, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.AssignedTask
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// SubmitForReview moves a task from active or rejected to
// ready_for_review, but only when it is owned by the submitting child,
// not soft-deleted, and still in the predecessor set. Returns the number
// of rows moved (0 or 1); 0 with the task already settled is the
// idempotent duplicate-submission case, which callers treat as success.
func (r *TaskRepository) SubmitForReview(taskID, childID int64) (int64, error) {
	query := `
		UPDATE assigned_tasks
		SET status = 'ready_for_review', completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND child_id = ? AND deleted_at IS NULL
		  AND status IN ('active', 'rejected')
	`
	result, err := r.db.Exec(query, taskID, childID)
	if err != nil {
		return 0, fmt.Errorf("failed to submit task: %w", err)
	}
	return result.RowsAffected()
}

// ApprovalEffects reports the settlement outcome of an approval
type ApprovalEffects struct {
	Task            *models.AssignedTask
	CreditedMinutes int
	NewXP           int
}

// ApproveAndCredit settles a task in a single transaction: the status
// transition, the task_reward ledger append and the XP increment are
// applied together or not at all. The bool result is false on conflict
// (task no longer ready_for_review, wrong family, or soft-deleted).
func (r *TaskRepository) ApproveAndCredit(taskID, familyID int64, reason string) (*ApprovalEffects, bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE assigned_tasks
		SET status = 'approved', approved_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id = ? AND deleted_at IS NULL
		  AND status = 'ready_for_review'
	`, taskID, familyID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to approve task: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if moved == 0 {
		return nil, false, nil
	}

	task, err := scanTask(tx.QueryRow("SELECT "+taskColumns+" FROM assigned_tasks WHERE id = ?", taskID).Scan)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload approved task: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO stars_ledger (child_id, delta, reason, transaction_type)
		VALUES (?, ?, ?, ?)
	`, task.ChildID, task.RewardMinutes, reason, models.TxTaskReward)
	if err != nil {
		return nil, false, fmt.Errorf("failed to credit reward: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE children SET xp = xp + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, models.XPPerApprovedTask, task.ChildID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to increment xp: %w", err)
	}

	var newXP int
	if err := tx.QueryRow("SELECT xp FROM children WHERE id = ?", task.ChildID).Scan(&newXP); err != nil {
		return nil, false, fmt.Errorf("failed to read xp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit approval: %w", err)
	}

	return &ApprovalEffects{Task: task, CreditedMinutes: task.RewardMinutes, NewXP: newXP}, true, nil
}

// Reject moves a task from ready_for_review to rejected with no economic
// effect. Returns false when the task was not in the expected state.
func (r *TaskRepository) Reject(taskID, familyID int64) (bool, error) {
	query := `
		UPDATE assigned_tasks
		SET status = 'rejected'
		WHERE id = ? AND family_id = ? AND deleted_at IS NULL
		  AND status = 'ready_for_review'
	`
	result, err := r.db.Exec(query, taskID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to reject task: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return moved == 1, nil
}

// SoftDeleteTask marks a task as removed without erasing history
func (r *TaskRepository) SoftDeleteTask(taskID, familyID int64) error {
	query := `
		UPDATE assigned_tasks SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id = ? AND deleted_at IS NULL
	`
	if _, err := r.db.Exec(query, taskID, familyID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
