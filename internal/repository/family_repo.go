package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family and adds the creator as an admin member
func (r *FamilyRepository) CreateFamily(name, familyCode string, creatorAccountID int64) (*models.Family, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	familyID, err := tx.ExecReturningID("INSERT INTO families (name, family_code) VALUES (?, ?)", name, familyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	_, err = tx.Exec("INSERT INTO family_members (family_id, account_id, role) VALUES (?, ?, 'admin')", familyID, creatorAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to add family member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Family{
		ID:         familyID,
		Name:       name,
		FamilyCode: familyCode,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// GetFamilyByID retrieves a family by ID; returns nil when not found
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families WHERE id = ?"
	return r.scanFamily(r.db.QueryRow(query, familyID))
}

// GetFamilyByCode retrieves a family by its join code
func (r *FamilyRepository) GetFamilyByCode(familyCode string) (*models.Family, error) {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families WHERE family_code = ?"
	return r.scanFamily(r.db.QueryRow(query, familyCode))
}

func (r *FamilyRepository) scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(&family.ID, &family.Name, &family.FamilyCode, &family.CreatedAt, &family.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetAccountFamily retrieves the family an account belongs to, or nil
func (r *FamilyRepository) GetAccountFamily(accountID int64) (*models.Family, error) {
	query := `
		SELECT f.id, f.name, f.family_code, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.account_id = ?
		ORDER BY fm.joined_at ASC
		LIMIT 1
	`
	return r.scanFamily(r.db.QueryRow(query, accountID))
}

// AddFamilyMember adds an account to a family
func (r *FamilyRepository) AddFamilyMember(familyID, accountID int64, role string) error {
	query := "INSERT INTO family_members (family_id, account_id, role) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, familyID, accountID, role); err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// IsFamilyMember checks if an account is a member of a family
func (r *FamilyRepository) IsFamilyMember(accountID, familyID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM family_members WHERE account_id = ? AND family_id = ?"
	if err := r.db.QueryRow(query, accountID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// GetParentAccounts retrieves the parent accounts of a family, for
// approval notifications. onlyNotifiable restricts to parents who have
// not disabled task-approval emails.
func (r *FamilyRepository) GetParentAccounts(familyID int64, onlyNotifiable bool) ([]models.Account, error) {
	query := `
		SELECT a.id, a.email, a.password_hash, a.name, a.role, a.oauth_provider,
		       a.oauth_subject, a.notify_approvals, a.is_admin, a.created_at, a.updated_at
		FROM accounts a
		INNER JOIN family_members fm ON a.id = fm.account_id
		WHERE fm.family_id = ? AND a.role = 'parent'
	`
	args := []interface{}{familyID}
	if onlyNotifiable {
		query += " AND a.notify_approvals = ?"
		args = append(args, true)
	}
	query += " ORDER BY fm.joined_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query family parents: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.OAuthProvider,
			&a.OAuthSubject, &a.NotifyApprovals, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family parent: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// GetAllFamilies returns every family, for the daily summary sweep
func (r *FamilyRepository) GetAllFamilies() ([]models.Family, error) {
	rows, err := r.db.Query("SELECT id, name, family_code, created_at, updated_at FROM families ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.FamilyCode, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// DeleteFamily deletes a family and all associated data
func (r *FamilyRepository) DeleteFamily(familyID int64) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}
