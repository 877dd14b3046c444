package service

import (
	"errors"
	"testing"
	"time"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
	"taskfortime/internal/repository"
)

func newTestAuthService(db *database.DB) *AuthService {
	return NewAuthService(
		repository.NewAccountRepository(db),
		repository.NewFamilyRepository(db),
		repository.NewChildRepository(db),
		time.Hour,
	)
}

func TestValidateSessionStaleChildContext(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuthService(db)
	accountRepo := repository.NewAccountRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)

	account, err := auth.Register("parent@example.com", "password123", "Pat", "Test Family", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	family, err := familyRepo.GetAccountFamily(account.ID)
	if err != nil || family == nil {
		t.Fatalf("GetAccountFamily() = %v, %v", family, err)
	}
	child, err := childRepo.CreateChild(family.ID, "Sam", "mint", "pinhash")
	if err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	session, _, err := auth.Login("parent@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := accountRepo.SetActiveChild(session.ID, child.ID); err != nil {
		t.Fatalf("SetActiveChild() error = %v", err)
	}

	sc, err := auth.ValidateSession(session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if !sc.ChildModeActive() {
		t.Fatal("session is not in child mode after entering the child context")
	}

	if err := childRepo.SoftDeleteChild(child.ID, family.ID); err != nil {
		t.Fatalf("SoftDeleteChild() error = %v", err)
	}

	// The device was locked to the deleted child. The session must die
	// with the context instead of falling back to a parent view.
	_, err = auth.ValidateSession(session.ID)
	if !errors.Is(err, ErrStaleChildContext) {
		t.Fatalf("ValidateSession() error = %v, want ErrStaleChildContext", err)
	}

	_, err = auth.ValidateSession(session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateSession() after invalidation error = %v, want ErrSessionNotFound", err)
	}
}

func TestChildAccountLoginIsLockedToChildMode(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuthService(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)

	parent, err := auth.Register("parent@example.com", "password123", "Pat", "Test Family", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	family, err := familyRepo.GetAccountFamily(parent.ID)
	if err != nil || family == nil {
		t.Fatalf("GetAccountFamily() = %v, %v", family, err)
	}
	child, err := childRepo.CreateChild(family.ID, "Sam", "mint", "pinhash")
	if err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	parentSC := models.SessionContext{AccountID: parent.ID, Role: models.RoleParent, FamilyID: family.ID}
	account, err := auth.CreateChildLogin(parentSC, child.ID, "sam@example.com", "password123")
	if err != nil {
		t.Fatalf("CreateChildLogin() error = %v", err)
	}
	if account.Role != models.RoleChild {
		t.Errorf("account role = %q, want child", account.Role)
	}

	session, _, err := auth.Login("sam@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	sc, err := auth.ValidateSession(session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if sc.ActiveChildID == nil || *sc.ActiveChildID != child.ID {
		t.Fatalf("ActiveChildID = %v, want %d", sc.ActiveChildID, child.ID)
	}
	if sc.FamilyID != family.ID {
		t.Errorf("FamilyID = %d, want %d", sc.FamilyID, family.ID)
	}
	if !sc.ChildModeActive() {
		t.Error("child account session is not in child mode")
	}
	if sc.CanExitChildContext() {
		t.Error("child account session must not be able to exit child mode")
	}
	if err := auth.ExitChildContext(*sc); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("ExitChildContext() error = %v, want ErrNotAllowed", err)
	}

	// One login per profile
	if _, err := auth.CreateChildLogin(parentSC, child.ID, "sam2@example.com", "password123"); err == nil {
		t.Error("CreateChildLogin() bound a second account to the same child")
	}

	// Removing the profile kills the child-account session too
	if err := childRepo.SoftDeleteChild(child.ID, family.ID); err != nil {
		t.Fatalf("SoftDeleteChild() error = %v", err)
	}
	_, err = auth.ValidateSession(session.ID)
	if !errors.Is(err, ErrStaleChildContext) {
		t.Errorf("ValidateSession() error = %v, want ErrStaleChildContext", err)
	}
}

func TestCreateChildLoginRequiresParent(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuthService(db)
	familyID, _ := seedFamily(t, db)
	child, err := repository.NewChildRepository(db).CreateChild(familyID, "Sam", "mint", "pinhash")
	if err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	childSC := models.SessionContext{Role: models.RoleChild, FamilyID: familyID}
	if _, err := auth.CreateChildLogin(childSC, child.ID, "sam@example.com", "password123"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("CreateChildLogin() error = %v, want ErrNotAllowed", err)
	}

	otherFamilySC := models.SessionContext{Role: models.RoleParent, FamilyID: familyID + 1}
	if _, err := auth.CreateChildLogin(otherFamilySC, child.ID, "sam@example.com", "password123"); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("CreateChildLogin() across families error = %v, want ErrChildNotFound", err)
	}
}
