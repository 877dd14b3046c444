package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// RewardRepository handles database operations for the reward catalog
type RewardRepository struct {
	db *database.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// CreateReward adds a catalog entry to a family
func (r *RewardRepository) CreateReward(familyID int64, title string, costMinutes int, icon string) (*models.Reward, error) {
	query := "INSERT INTO rewards (family_id, title, cost_minutes, icon) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, familyID, title, costMinutes, icon)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return &models.Reward{
		ID:          id,
		FamilyID:    familyID,
		Title:       title,
		CostMinutes: costMinutes,
		Icon:        icon,
		Available:   true,
		CreatedAt:   time.Now(),
	}, nil
}

// GetRewardByID retrieves a reward; returns nil when not found
func (r *RewardRepository) GetRewardByID(rewardID int64) (*models.Reward, error) {
	query := "SELECT id, family_id, title, cost_minutes, icon, available, created_at FROM rewards WHERE id = ?"
	reward := &models.Reward{}
	err := r.db.QueryRow(query, rewardID).Scan(
		&reward.ID,
		&reward.FamilyID,
		&reward.Title,
		&reward.CostMinutes,
		&reward.Icon,
		&reward.Available,
		&reward.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// GetAvailableRewards retrieves a family's currently redeemable rewards
func (r *RewardRepository) GetAvailableRewards(familyID int64) ([]models.Reward, error) {
	query := `
		SELECT id, family_id, title, cost_minutes, icon, available, created_at
		FROM rewards
		WHERE family_id = ? AND available = ?
		ORDER BY cost_minutes ASC
	`
	rows, err := r.db.Query(query, familyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		if err := rows.Scan(
			&reward.ID,
			&reward.FamilyID,
			&reward.Title,
			&reward.CostMinutes,
			&reward.Icon,
			&reward.Available,
			&reward.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}

	return rewards, rows.Err()
}

// SetAvailability toggles a reward's catalog availability
func (r *RewardRepository) SetAvailability(rewardID, familyID int64, available bool) error {
	query := "UPDATE rewards SET available = ? WHERE id = ? AND family_id = ?"
	if _, err := r.db.Exec(query, available, rewardID, familyID); err != nil {
		return fmt.Errorf("failed to update reward availability: %w", err)
	}
	return nil
}
