package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// ChildRepository handles database operations for child profiles
type ChildRepository struct {
	db *database.DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = "id, family_id, account_id, name, avatar_color, pin_hash, xp, deleted_at, created_at, updated_at"

// CreateChild creates a new child profile
func (r *ChildRepository) CreateChild(familyID int64, name, avatarColor, pinHash string) (*models.Child, error) {
	query := "INSERT INTO children (family_id, name, avatar_color, pin_hash) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, familyID, name, avatarColor, pinHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	return &models.Child{
		ID:          id,
		FamilyID:    familyID,
		Name:        name,
		AvatarColor: avatarColor,
		PINHash:     pinHash,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetChildByID retrieves a child by ID, including soft-deleted profiles so
// callers can decide how to treat them; returns nil when not found
func (r *ChildRepository) GetChildByID(childID int64) (*models.Child, error) {
	return r.getChild("SELECT "+childColumns+" FROM children WHERE id = ?", childID)
}

// GetChildByAccountID retrieves the child profile bound to a child-role
// login account; returns nil when the account has no profile
func (r *ChildRepository) GetChildByAccountID(accountID int64) (*models.Child, error) {
	return r.getChild("SELECT "+childColumns+" FROM children WHERE account_id = ?", accountID)
}

func (r *ChildRepository) getChild(query string, arg int64) (*models.Child, error) {
	child := &models.Child{}
	err := r.db.QueryRow(query, arg).Scan(
		&child.ID,
		&child.FamilyID,
		&child.AccountID,
		&child.Name,
		&child.AvatarColor,
		&child.PINHash,
		&child.XP,
		&child.DeletedAt,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// LinkAccount binds a login account to a child profile. The bind is
// first-writer-wins: a profile that already has an account, was removed,
// or belongs to another family is not touched.
func (r *ChildRepository) LinkAccount(childID, familyID, accountID int64) (bool, error) {
	query := `
		UPDATE children SET account_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id = ? AND deleted_at IS NULL AND account_id IS NULL
	`
	result, err := r.db.Exec(query, accountID, childID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to link child account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetActiveChildren retrieves the non-soft-deleted children of a family
func (r *ChildRepository) GetActiveChildren(familyID int64) ([]models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children
		WHERE family_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(
			&child.ID,
			&child.FamilyID,
			&child.AccountID,
			&child.Name,
			&child.AvatarColor,
			&child.PINHash,
			&child.XP,
			&child.DeletedAt,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}

	return children, rows.Err()
}

// UpdateChild updates a child's display fields
func (r *ChildRepository) UpdateChild(childID int64, name, avatarColor string) error {
	query := "UPDATE children SET name = ?, avatar_color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, name, avatarColor, childID); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// UpdatePIN replaces a child's login PIN hash
func (r *ChildRepository) UpdatePIN(childID int64, pinHash string) error {
	query := "UPDATE children SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, pinHash, childID); err != nil {
		return fmt.Errorf("failed to update child PIN: %w", err)
	}
	return nil
}

// SoftDeleteChild marks a child as removed without erasing history
func (r *ChildRepository) SoftDeleteChild(childID, familyID int64) error {
	query := `
		UPDATE children SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND family_id = ? AND deleted_at IS NULL
	`
	if _, err := r.db.Exec(query, childID, familyID); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}
