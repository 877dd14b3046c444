package service

import (
	"errors"
	"fmt"

	"taskfortime/internal/credentials"
	"taskfortime/internal/models"
	"taskfortime/internal/repository"
	"taskfortime/internal/security"
	"taskfortime/internal/validation"
)

var (
	ErrChildNotFound   = errors.New("child not found")
	ErrNotFamilyMember = errors.New("not a member of this family")
)

// FamilyService handles family composition: membership checks and the
// child profile lifecycle
type FamilyService struct {
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
	ledgerRepo *repository.LedgerRepository
	taskRepo   *repository.TaskRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository, ledgerRepo *repository.LedgerRepository, taskRepo *repository.TaskRepository) *FamilyService {
	return &FamilyService{
		familyRepo: familyRepo,
		childRepo:  childRepo,
		ledgerRepo: ledgerRepo,
		taskRepo:   taskRepo,
	}
}

// GetFamily returns the account's family
func (s *FamilyService) GetFamily(accountID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetAccountFamily(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrNoFamily
	}
	return family, nil
}

// VerifyFamilyAccess checks that an account belongs to a family
func (s *FamilyService) VerifyFamilyAccess(accountID, familyID int64) error {
	isMember, err := s.familyRepo.IsFamilyMember(accountID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}

// JoinFamilyByCode adds an account to a family using its share code
func (s *FamilyService) JoinFamilyByCode(accountID int64, familyCode string) (*models.Family, error) {
	if familyCode == "" {
		return nil, ErrInvalidFamilyCode
	}

	family, err := s.familyRepo.GetFamilyByCode(familyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find family: %w", err)
	}
	if family == nil {
		return nil, ErrInvalidFamilyCode
	}

	isMember, err := s.familyRepo.IsFamilyMember(accountID, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return nil, errors.New("already a member of this family")
	}

	if err := s.familyRepo.AddFamilyMember(family.ID, accountID, models.RoleParent); err != nil {
		return nil, fmt.Errorf("failed to join family: %w", err)
	}
	return family, nil
}

// CreateChild adds a child profile with a generated PIN and avatar color.
// The plaintext PIN is returned exactly once so the parent can hand it
// over; only the bcrypt hash is stored.
func (s *FamilyService) CreateChild(familyID int64, name string) (*models.Child, string, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, "", err
	}

	pin, err := credentials.GeneratePIN()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate PIN: %w", err)
	}
	pinHash, err := security.HashPassword(pin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	avatarColor, err := credentials.RandomAvatarColor()
	if err != nil {
		return nil, "", fmt.Errorf("failed to pick avatar color: %w", err)
	}

	child, err := s.childRepo.CreateChild(familyID, name, avatarColor, pinHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create child: %w", err)
	}
	return child, pin, nil
}

// GetChild returns a family's child, soft-deleted excluded
func (s *FamilyService) GetChild(childID, familyID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != familyID {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// GetChildren returns the family's active children
func (s *FamilyService) GetChildren(familyID int64) ([]models.Child, error) {
	children, err := s.childRepo.GetActiveChildren(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	return children, nil
}

// GetChildrenWithStats returns the family's active children with their
// derived time-bank balance, level and open task counts
func (s *FamilyService) GetChildrenWithStats(familyID int64) ([]models.ChildWithStats, error) {
	children, err := s.GetChildren(familyID)
	if err != nil {
		return nil, err
	}

	stats := make([]models.ChildWithStats, 0, len(children))
	for _, child := range children {
		balance, err := s.ledgerRepo.Balance(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance for child %d: %w", child.ID, err)
		}

		tasks, err := s.taskRepo.GetTasksForChild(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get tasks for child %d: %w", child.ID, err)
		}
		var active, pending int
		for _, t := range tasks {
			switch t.Status {
			case models.TaskStatusActive, models.TaskStatusRejected:
				active++
			case models.TaskStatusReadyForReview:
				pending++
			}
		}

		stats = append(stats, models.ChildWithStats{
			Child:            child,
			Level:            child.Level(),
			TimeBankMinutes:  balance,
			ActiveTaskCount:  active,
			PendingTaskCount: pending,
		})
	}
	return stats, nil
}

// UpdateChild renames a child or changes their avatar color
func (s *FamilyService) UpdateChild(childID, familyID int64, name, avatarColor string) error {
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if _, err := s.GetChild(childID, familyID); err != nil {
		return err
	}
	if err := s.childRepo.UpdateChild(childID, name, avatarColor); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// RegeneratePIN issues a fresh PIN for a child and returns it once
func (s *FamilyService) RegeneratePIN(childID, familyID int64) (string, error) {
	if _, err := s.GetChild(childID, familyID); err != nil {
		return "", err
	}

	pin, err := credentials.GeneratePIN()
	if err != nil {
		return "", fmt.Errorf("failed to generate PIN: %w", err)
	}
	pinHash, err := security.HashPassword(pin)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	if err := s.childRepo.UpdatePIN(childID, pinHash); err != nil {
		return "", fmt.Errorf("failed to update PIN: %w", err)
	}
	return pin, nil
}

// RemoveChild soft-deletes a child. History, ledger entries and tasks
// stay in place; the child just stops appearing in rosters and quest
// denominators.
func (s *FamilyService) RemoveChild(childID, familyID int64) error {
	if _, err := s.GetChild(childID, familyID); err != nil {
		return err
	}
	if err := s.childRepo.SoftDeleteChild(childID, familyID); err != nil {
		return fmt.Errorf("failed to remove child: %w", err)
	}
	return nil
}
