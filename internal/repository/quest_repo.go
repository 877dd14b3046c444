package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// QuestRepository handles database operations for family quests. Quest
// progress is never stored here; only the quest definition and its
// one-way completion status live in the database.
type QuestRepository struct {
	db *database.DB
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db *database.DB) *QuestRepository {
	return &QuestRepository{db: db}
}

const questColumns = `id, family_id, title, reward_description, target_completion_rate,
	start_date, end_date, status, created_at, celebrated_at`

func scanQuest(scan func(dest ...interface{}) error) (*models.FamilyQuest, error) {
	quest := &models.FamilyQuest{}
	err := scan(
		&quest.ID,
		&quest.FamilyID,
		&quest.Title,
		&quest.RewardDescription,
		&quest.TargetCompletionRate,
		&quest.StartDate,
		&quest.EndDate,
		&quest.Status,
		&quest.CreatedAt,
		&quest.CelebratedAt,
	)
	if err != nil {
		return nil, err
	}
	return quest, nil
}

// CreateQuest adds a time-boxed completion-rate objective to a family
func (r *QuestRepository) CreateQuest(familyID int64, title, rewardDescription string, targetRate float64, start, end time.Time) (*models.FamilyQuest, error) {
	query := `
		INSERT INTO family_quests (family_id, title, reward_description, target_completion_rate, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, title, rewardDescription, targetRate, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	return &models.FamilyQuest{
		ID:                   id,
		FamilyID:             familyID,
		Title:                title,
		RewardDescription:    rewardDescription,
		TargetCompletionRate: targetRate,
		StartDate:            start,
		EndDate:              end,
		Status:               models.QuestStatusActive,
		CreatedAt:            time.Now(),
	}, nil
}

// GetQuestByID retrieves a quest; returns nil when not found
func (r *QuestRepository) GetQuestByID(questID int64) (*models.FamilyQuest, error) {
	query := "SELECT " + questColumns + " FROM family_quests WHERE id = ?"
	quest, err := scanQuest(r.db.QueryRow(query, questID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return quest, nil
}

// GetQuestsForFamily retrieves a family's quests, newest first
func (r *QuestRepository) GetQuestsForFamily(familyID int64) ([]models.FamilyQuest, error) {
	query := "SELECT " + questColumns + " FROM family_quests WHERE family_id = ? ORDER BY created_at DESC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quests: %w", err)
	}
	defer rows.Close()

	var quests []models.FamilyQuest
	for rows.Next() {
		quest, err := scanQuest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, *quest)
	}

	return quests, rows.Err()
}

// MarkCompleted flips a quest from active to completed. The conditional
// update is what makes the celebration edge-triggered: only the caller
// that observes the false -> true transition gets one row moved, so
// reopening the same screen never re-fires it.
func (r *QuestRepository) MarkCompleted(questID int64) (bool, error) {
	query := `
		UPDATE family_quests
		SET status = 'completed', celebrated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active'
	`
	result, err := r.db.Exec(query, questID)
	if err != nil {
		return false, fmt.Errorf("failed to complete quest: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return moved == 1, nil
}
