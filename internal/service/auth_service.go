package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/repository"
	"taskfortime/internal/security"
	"taskfortime/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidPIN         = errors.New("invalid PIN")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidFamilyCode  = errors.New("invalid family code")
	ErrNoFamily           = errors.New("account has no family")
	ErrNotAllowed         = errors.New("operation not allowed")
	ErrStaleChildContext  = errors.New("child context no longer valid")
)

// AuthService handles authentication and session business logic
type AuthService struct {
	accountRepo     *repository.AccountRepository
	familyRepo      *repository.FamilyRepository
	childRepo       *repository.ChildRepository
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(accountRepo *repository.AccountRepository, familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		accountRepo:     accountRepo,
		familyRepo:      familyRepo,
		childRepo:       childRepo,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new parent account and either joins an existing
// family by code or creates a new one. An account is never left without
// a family: if the family step fails, the freshly created account is
// deleted again so the signup can be retried cleanly.
func (s *AuthService) Register(email, password, name, familyName, familyCode string) (*models.Account, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.GetAccountByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accountRepo.CreateAccount(email, passwordHash, name, models.RoleParent)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.attachFamily(account, familyName, familyCode); err != nil {
		if delErr := s.accountRepo.DeleteAccount(account.ID); delErr != nil {
			log.Printf("failed to clean up account %d after family failure: %v", account.ID, delErr)
		}
		return nil, err
	}

	return account, nil
}

func (s *AuthService) attachFamily(account *models.Account, familyName, familyCode string) error {
	if familyCode != "" {
		family, err := s.familyRepo.GetFamilyByCode(familyCode)
		if err != nil {
			return fmt.Errorf("failed to check family code: %w", err)
		}
		if family == nil {
			return ErrInvalidFamilyCode
		}
		if err := s.familyRepo.AddFamilyMember(family.ID, account.ID, models.RoleParent); err != nil {
			return fmt.Errorf("failed to join family: %w", err)
		}
		return nil
	}

	if familyName == "" {
		familyName = account.Name + "'s Family"
	}
	code, err := security.GenerateSecureToken(4)
	if err != nil {
		return fmt.Errorf("failed to generate family code: %w", err)
	}
	if _, err := s.familyRepo.CreateFamily(familyName, strings.ToUpper(code), account.ID); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// Login authenticates an account and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.Account, error) {
	account, err := s.accountRepo.GetAccountByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, account.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(account.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, account, nil
}

// OAuthLogin authenticates or creates an account from an OAuth identity
func (s *AuthService) OAuthLogin(provider, subject, email, name, familyCode string) (*models.Session, *models.Account, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	account, err := s.accountRepo.GetAccountByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth account: %w", err)
	}

	if account == nil {
		existing, err := s.accountRepo.GetAccountByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing account: %w", err)
		}
		if existing != nil {
			if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.accountRepo.LinkOAuthProvider(existing.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			account = existing
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			// OAuth accounts get an unguessable password so the
			// password path can never match
			randomHash, err := security.HashPassword(security.GenerateSessionID())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}
			created, err := s.accountRepo.CreateAccount(email, randomHash, name, models.RoleParent)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth account: %w", err)
			}
			if err := s.accountRepo.LinkOAuthProvider(created.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			if err := s.attachFamily(created, "", familyCode); err != nil {
				if delErr := s.accountRepo.DeleteAccount(created.ID); delErr != nil {
					log.Printf("failed to clean up account %d after family failure: %v", created.ID, delErr)
				}
				return nil, nil, err
			}
			account = created
		}
	}

	session, err := s.createSession(account.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, account, nil
}

func (s *AuthService) createSession(accountID int64) (*models.Session, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)
	session, err := s.accountRepo.CreateSession(sessionID, accountID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession resolves a session ID into the per-request session
// context: account role, family and the active child context, if any. A
// session locked to a child that no longer exists is invalidated
// outright; merely clearing the context would hand the device an
// unscoped parent view.
func (s *AuthService) ValidateSession(sessionID string) (*models.SessionContext, error) {
	session, err := s.accountRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.accountRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	account, err := s.accountRepo.GetAccountByID(session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrSessionNotFound
	}

	// A child-role login is permanently locked to its own profile. The
	// family comes from the profile, not from family membership, and the
	// context can never be exited.
	if account.Role == models.RoleChild {
		child, err := s.childRepo.GetChildByAccountID(account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get child profile: %w", err)
		}
		if child == nil || child.IsDeleted() {
			if err := s.accountRepo.DeleteSession(session.ID); err != nil {
				return nil, fmt.Errorf("failed to invalidate stale session: %w", err)
			}
			return nil, ErrStaleChildContext
		}
		return &models.SessionContext{
			SessionID:     session.ID,
			AccountID:     account.ID,
			Role:          account.Role,
			FamilyID:      child.FamilyID,
			ActiveChildID: &child.ID,
			EnteredAt:     &session.CreatedAt,
		}, nil
	}

	family, err := s.familyRepo.GetAccountFamily(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrNoFamily
	}

	ctx := &models.SessionContext{
		SessionID:     session.ID,
		AccountID:     account.ID,
		Role:          account.Role,
		IsAdmin:       account.IsAdmin,
		FamilyID:      family.ID,
		ActiveChildID: session.ActiveChildID,
		EnteredAt:     session.ChildEnteredAt,
	}

	if ctx.ActiveChildID != nil {
		child, err := s.childRepo.GetChildByID(*ctx.ActiveChildID)
		if err != nil {
			return nil, fmt.Errorf("failed to get active child: %w", err)
		}
		if child == nil || child.IsDeleted() || child.FamilyID != family.ID {
			if err := s.accountRepo.DeleteSession(session.ID); err != nil {
				return nil, fmt.Errorf("failed to invalidate stale session: %w", err)
			}
			return nil, ErrStaleChildContext
		}
	}

	return ctx, nil
}

// CreateChildLogin creates a child-role account bound to an existing
// child profile, so the child can sign in on their own device. The bind
// is one account per profile; if it fails, the freshly created account
// is deleted again so the attempt can be retried cleanly.
func (s *AuthService) CreateChildLogin(sc models.SessionContext, childID int64, email, password string) (*models.Account, error) {
	if sc.Role != models.RoleParent {
		return nil, ErrNotAllowed
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != sc.FamilyID {
		return nil, ErrChildNotFound
	}
	if child.AccountID != nil {
		return nil, ErrEmailTaken
	}

	existing, err := s.accountRepo.GetAccountByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account, err := s.accountRepo.CreateAccount(email, passwordHash, child.Name, models.RoleChild)
	if err != nil {
		return nil, fmt.Errorf("failed to create child account: %w", err)
	}

	linked, err := s.childRepo.LinkAccount(childID, sc.FamilyID, account.ID)
	if err == nil && !linked {
		err = ErrChildNotFound
	}
	if err != nil {
		if delErr := s.accountRepo.DeleteAccount(account.ID); delErr != nil {
			log.Printf("failed to clean up account %d after link failure: %v", account.ID, delErr)
		}
		return nil, err
	}

	return account, nil
}

// EnterChildContext switches a parent session into a child's view after
// verifying the child's PIN. The context is session-scoped: it persists
// until exited or signed out, and never spills into other sessions.
func (s *AuthService) EnterChildContext(sc models.SessionContext, childID int64, pin string) error {
	if sc.Role != models.RoleParent {
		return ErrNotAllowed
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != sc.FamilyID {
		return ErrChildNotFound
	}
	if !security.CheckPassword(pin, child.PINHash) {
		return ErrInvalidPIN
	}

	if err := s.accountRepo.SetActiveChild(sc.SessionID, childID); err != nil {
		return fmt.Errorf("failed to enter child context: %w", err)
	}
	return nil
}

// ExitChildContext returns a parent session to parent mode. Only a
// parent account that entered a child context may leave it; a genuine
// child account has no way out.
func (s *AuthService) ExitChildContext(sc models.SessionContext) error {
	if !sc.CanExitChildContext() {
		return ErrNotAllowed
	}
	if err := s.accountRepo.ClearActiveChild(sc.SessionID); err != nil {
		return fmt.Errorf("failed to exit child context: %w", err)
	}
	return nil
}

// SetNotifyApprovals toggles task-approval notification emails for an
// account
func (s *AuthService) SetNotifyApprovals(accountID int64, enabled bool) error {
	if err := s.accountRepo.SetNotifyApprovals(accountID, enabled); err != nil {
		return fmt.Errorf("failed to update notification preference: %w", err)
	}
	return nil
}

// Logout invalidates a session, and with it any child context it carried
func (s *AuthService) Logout(sessionID string) error {
	if err := s.accountRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.accountRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}
