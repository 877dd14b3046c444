package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// GoalRepository handles database operations for savings goals
type GoalRepository struct {
	db *database.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *database.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = "id, child_id, title, target_stars, current_stars, status, created_at, completed_at"

func scanGoal(scan func(dest ...interface{}) error) (*models.SavingsGoal, error) {
	goal := &models.SavingsGoal{}
	err := scan(
		&goal.ID,
		&goal.ChildID,
		&goal.Title,
		&goal.TargetStars,
		&goal.CurrentStars,
		&goal.Status,
		&goal.CreatedAt,
		&goal.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// CreateGoal adds a savings goal for a child
func (r *GoalRepository) CreateGoal(childID int64, title string, targetStars int) (*models.SavingsGoal, error) {
	query := "INSERT INTO savings_goals (child_id, title, target_stars) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, childID, title, targetStars)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return &models.SavingsGoal{
		ID:          id,
		ChildID:     childID,
		Title:       title,
		TargetStars: targetStars,
		Status:      models.GoalStatusActive,
		CreatedAt:   time.Now(),
	}, nil
}

// GetGoalByID retrieves a goal; returns nil when not found
func (r *GoalRepository) GetGoalByID(goalID int64) (*models.SavingsGoal, error) {
	query := "SELECT " + goalColumns + " FROM savings_goals WHERE id = ?"
	goal, err := scanGoal(r.db.QueryRow(query, goalID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// GetGoalsForChild retrieves a child's goals, active first
func (r *GoalRepository) GetGoalsForChild(childID int64) ([]models.SavingsGoal, error) {
	query := "SELECT " + goalColumns + " FROM savings_goals WHERE child_id = ? ORDER BY status ASC, created_at DESC"
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []models.SavingsGoal
	for rows.Next() {
		goal, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *goal)
	}

	return goals, rows.Err()
}

// DepositResult reports the outcome of a guarded goal deposit
type DepositResult struct {
	Goal          *models.SavingsGoal
	JustCompleted bool
}

// Deposit moves stars from a child's spendable balance into a goal, in one
// transaction: a balance-guarded savings_deposit ledger debit plus the
// goal increment. The goal's transition to completed is one-way and
// happens exactly once, via a conditional update. The bool result is
// false when the balance was insufficient.
func (r *GoalRepository) Deposit(goalID, childID int64, stars int, reason string) (*DepositResult, bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO stars_ledger (child_id, delta, reason, transaction_type)
		SELECT ?, ?, ?, ?
		WHERE (SELECT COALESCE(SUM(delta), 0) FROM stars_ledger WHERE child_id = ?) >= ?
	`, childID, -stars, reason, models.TxSavingsDeposit, childID, stars)
	if err != nil {
		return nil, false, fmt.Errorf("failed to debit balance: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if inserted == 0 {
		return nil, false, nil
	}

	_, err = tx.Exec(`
		UPDATE savings_goals SET current_stars = current_stars + ?
		WHERE id = ? AND child_id = ?
	`, stars, goalID, childID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to grow goal: %w", err)
	}

	completion, err := tx.Exec(`
		UPDATE savings_goals SET status = 'completed', completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND current_stars >= target_stars
	`, goalID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete goal: %w", err)
	}
	completedRows, err := completion.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	goal, err := scanGoal(tx.QueryRow("SELECT "+goalColumns+" FROM savings_goals WHERE id = ?", goalID).Scan)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload goal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit deposit: %w", err)
	}

	return &DepositResult{Goal: goal, JustCompleted: completedRows == 1}, true, nil
}
