package service

import (
	"path/filepath"
	"testing"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
	"taskfortime/internal/repository"
)

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

// seedFamily creates a parent account and a family, returning both IDs
func seedFamily(t *testing.T, db *database.DB) (int64, int64) {
	t.Helper()

	account, err := repository.NewAccountRepository(db).CreateAccount("parent@example.com", "hash", "Pat", models.RoleParent)
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	family, err := repository.NewFamilyRepository(db).CreateFamily("Test Family", "ABCD1234", account.ID)
	if err != nil {
		t.Fatalf("failed to create family: %v", err)
	}
	return family.ID, account.ID
}
