package repository

import (
	"fmt"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
)

// LedgerRepository handles the append-only stars ledger. There is no
// update or delete surface: corrections are appended as offsetting
// entries, and balances are always read as SUM(delta).
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts one immutable ledger entry
func (r *LedgerRepository) Append(childID int64, delta int, reason, transactionType string) error {
	query := "INSERT INTO stars_ledger (child_id, delta, reason, transaction_type) VALUES (?, ?, ?, ?)"
	if _, err := r.db.Exec(query, childID, delta, reason, transactionType); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Balance returns the sum of all deltas for a child; 0 when the child has
// no entries
func (r *LedgerRepository) Balance(childID int64) (int, error) {
	var balance int
	query := "SELECT COALESCE(SUM(delta), 0) FROM stars_ledger WHERE child_id = ?"
	if err := r.db.QueryRow(query, childID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}

// AppendIfBalanceAtLeast appends a debit entry only if the child's current
// balance covers the cost, as one atomic statement: the sufficiency check
// and the insert cannot be separated by a concurrent append, so two
// simultaneous redemptions against a balance sufficient for one produce
// exactly one entry. Returns false when the balance was insufficient.
func (r *LedgerRepository) AppendIfBalanceAtLeast(childID int64, cost int, reason, transactionType string) (bool, error) {
	query := `
		INSERT INTO stars_ledger (child_id, delta, reason, transaction_type)
		SELECT ?, ?, ?, ?
		WHERE (SELECT COALESCE(SUM(delta), 0) FROM stars_ledger WHERE child_id = ?) >= ?
	`
	result, err := r.db.Exec(query, childID, -cost, reason, transactionType, childID, cost)
	if err != nil {
		return false, fmt.Errorf("failed to append guarded ledger entry: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted == 1, nil
}

// Entries returns a child's full ledger history, newest first
func (r *LedgerRepository) Entries(childID int64) ([]models.StarsLedgerEntry, error) {
	query := `
		SELECT id, child_id, delta, reason, transaction_type, created_at
		FROM stars_ledger
		WHERE child_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.StarsLedgerEntry
	for rows.Next() {
		var e models.StarsLedgerEntry
		if err := rows.Scan(&e.ID, &e.ChildID, &e.Delta, &e.Reason, &e.TransactionType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
