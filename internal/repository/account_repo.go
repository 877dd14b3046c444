package repository

import (
	"database/sql"
	"fmt"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// AccountRepository handles database operations for accounts and sessions
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount creates a new account with the given role
func (r *AccountRepository) CreateAccount(email, passwordHash, name, role string) (*models.Account, error) {
	query := "INSERT INTO accounts (email, password_hash, name, role) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, email, passwordHash, name, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &models.Account{
		ID:              id,
		Email:           email,
		PasswordHash:    passwordHash,
		Name:            name,
		Role:            role,
		NotifyApprovals: true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}, nil
}

const accountColumns = `id, email, password_hash, name, role, oauth_provider,
	oauth_subject, notify_approvals, is_admin, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&account.Role,
		&account.OAuthProvider,
		&account.OAuthSubject,
		&account.NotifyApprovals,
		&account.IsAdmin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByID retrieves an account by ID; returns nil when not found
func (r *AccountRepository) GetAccountByID(accountID int64) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = ?"
	return scanAccount(r.db.QueryRow(query, accountID))
}

// GetAccountByEmail retrieves an account by email; returns nil when not found
func (r *AccountRepository) GetAccountByEmail(email string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE email = ?"
	return scanAccount(r.db.QueryRow(query, email))
}

// GetAccountByOAuth retrieves an account by OAuth provider and subject
func (r *AccountRepository) GetAccountByOAuth(provider, subject string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE oauth_provider = ? AND oauth_subject = ?"
	return scanAccount(r.db.QueryRow(query, provider, subject))
}

// LinkOAuthProvider records an OAuth identity against an existing account
func (r *AccountRepository) LinkOAuthProvider(accountID int64, provider, subject string) error {
	query := "UPDATE accounts SET oauth_provider = ?, oauth_subject = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, provider, subject, accountID); err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	return nil
}

// DeleteAccount removes an account. Used for compensating cleanup when
// dependent family creation fails mid-signup.
func (r *AccountRepository) DeleteAccount(accountID int64) error {
	if _, err := r.db.Exec("DELETE FROM accounts WHERE id = ?", accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// SetNotifyApprovals toggles task-approval notification emails
func (r *AccountRepository) SetNotifyApprovals(accountID int64, enabled bool) error {
	query := "UPDATE accounts SET notify_approvals = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, enabled, accountID); err != nil {
		return fmt.Errorf("failed to update notification preference: %w", err)
	}
	return nil
}

// CreateSession creates a new session row
func (r *AccountRepository) CreateSession(sessionID string, accountID int64, expiresAt time.Time) (*models.Session, error) {
	query := "INSERT INTO sessions (id, account_id, expires_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, sessionID, accountID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetSession retrieves a session by ID; returns nil when not found
func (r *AccountRepository) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, account_id, active_child_id, child_entered_at, expires_at, created_at
		FROM sessions WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.AccountID,
		&session.ActiveChildID,
		&session.ChildEnteredAt,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// SetActiveChild stores the session-scoped child context
func (r *AccountRepository) SetActiveChild(sessionID string, childID int64) error {
	query := "UPDATE sessions SET active_child_id = ?, child_entered_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, childID, sessionID); err != nil {
		return fmt.Errorf("failed to set active child: %w", err)
	}
	return nil
}

// ClearActiveChild drops the session-scoped child context
func (r *AccountRepository) ClearActiveChild(sessionID string) error {
	query := "UPDATE sessions SET active_child_id = NULL, child_entered_at = NULL WHERE id = ?"
	if _, err := r.db.Exec(query, sessionID); err != nil {
		return fmt.Errorf("failed to clear active child: %w", err)
	}
	return nil
}

// DeleteSession removes a session
func (r *AccountRepository) DeleteSession(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (r *AccountRepository) DeleteExpiredSessions() error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP"); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
