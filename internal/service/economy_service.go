package service

import (
	"errors"
	"fmt"

	"taskfortime/internal/models"
	"taskfortime/internal/realtime"
	"taskfortime/internal/repository"
	"taskfortime/internal/validation"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrRewardNotFound    = errors.New("reward not found")
	ErrGoalNotFound      = errors.New("goal not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// resetDelta is the fixed adjustment appended by a parent reset. It is a
// plain audit-visible ledger entry like any other; balances remain a
// full-ledger sum, so the entry can drive the balance negative.
const resetDelta = -999999

// EconomyService owns the stars economy read and write paths: balances,
// redemptions, parent adjustments, interest and savings goals
type EconomyService struct {
	ledgerRepo *repository.LedgerRepository
	rewardRepo *repository.RewardRepository
	goalRepo   *repository.GoalRepository
	childRepo  *repository.ChildRepository
	hub        *realtime.Hub
}

// NewEconomyService creates a new economy service
func NewEconomyService(ledgerRepo *repository.LedgerRepository, rewardRepo *repository.RewardRepository, goalRepo *repository.GoalRepository, childRepo *repository.ChildRepository, hub *realtime.Hub) *EconomyService {
	return &EconomyService{
		ledgerRepo: ledgerRepo,
		rewardRepo: rewardRepo,
		goalRepo:   goalRepo,
		childRepo:  childRepo,
		hub:        hub,
	}
}

// Balance returns a child's spendable minutes, always derived by summing
// the ledger. A child with no entries has balance zero.
func (s *EconomyService) Balance(childID int64) (int, error) {
	return s.ledgerRepo.Balance(childID)
}

// History returns a child's ledger entries, newest first
func (s *EconomyService) History(childID int64) ([]models.StarsLedgerEntry, error) {
	return s.ledgerRepo.Entries(childID)
}

// Redeem spends a child's balance on a reward. The balance check and the
// debit are one atomic statement, so two concurrent redemptions against
// the same balance can never both succeed.
func (s *EconomyService) Redeem(childID, familyID, rewardID int64) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetRewardByID(rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || reward.FamilyID != familyID || !reward.Available {
		return nil, ErrRewardNotFound
	}

	ok, err := s.ledgerRepo.AppendIfBalanceAtLeast(childID, reward.CostMinutes, "redeemed: "+reward.Title, models.TxRewardRedemption)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem reward: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientFunds
	}

	s.hub.Publish(familyID, realtime.EventLedgerChanged)
	return reward, nil
}

// GrantBonus appends a parent-initiated credit
func (s *EconomyService) GrantBonus(childID, familyID int64, stars int, reason string) error {
	if stars <= 0 {
		return ErrInvalidAmount
	}
	if err := s.verifyChild(childID, familyID); err != nil {
		return err
	}
	if err := s.ledgerRepo.Append(childID, stars, reason, models.TxParentBonus); err != nil {
		return fmt.Errorf("failed to grant bonus: %w", err)
	}
	s.hub.Publish(familyID, realtime.EventLedgerChanged)
	return nil
}

// ResetBalance appends the fixed reset adjustment for a child
func (s *EconomyService) ResetBalance(childID, familyID int64) error {
	if err := s.verifyChild(childID, familyID); err != nil {
		return err
	}
	if err := s.ledgerRepo.Append(childID, resetDelta, "balance reset", models.TxParentReset); err != nil {
		return fmt.Errorf("failed to reset balance: %w", err)
	}
	s.hub.Publish(familyID, realtime.EventLedgerChanged)
	return nil
}

// ApplyInterest credits ratePercent of a child's current positive balance.
// A zero or negative balance accrues nothing.
func (s *EconomyService) ApplyInterest(childID int64, ratePercent int) (int, error) {
	if ratePercent <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.ledgerRepo.Balance(childID)
	if err != nil {
		return 0, err
	}
	if balance <= 0 {
		return 0, nil
	}

	credit := balance * ratePercent / 100
	if credit == 0 {
		return 0, nil
	}
	if err := s.ledgerRepo.Append(childID, credit, fmt.Sprintf("%d%% interest", ratePercent), models.TxInterest); err != nil {
		return 0, fmt.Errorf("failed to apply interest: %w", err)
	}
	return credit, nil
}

// CreateReward adds a redeemable reward to the family catalog
func (s *EconomyService) CreateReward(familyID int64, title string, costMinutes int, icon string) (*models.Reward, error) {
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if costMinutes < 0 {
		return nil, ErrInvalidAmount
	}
	reward, err := s.rewardRepo.CreateReward(familyID, title, costMinutes, icon)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}
	return reward, nil
}

// GetRewards returns the family's available rewards
func (s *EconomyService) GetRewards(familyID int64) ([]models.Reward, error) {
	return s.rewardRepo.GetAvailableRewards(familyID)
}

// SetRewardAvailability toggles a reward in the catalog
func (s *EconomyService) SetRewardAvailability(rewardID, familyID int64, available bool) error {
	return s.rewardRepo.SetAvailability(rewardID, familyID, available)
}

// CreateGoal opens a savings goal for a child
func (s *EconomyService) CreateGoal(childID, familyID int64, title string, targetStars int) (*models.SavingsGoal, error) {
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if targetStars <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.verifyChild(childID, familyID); err != nil {
		return nil, err
	}

	goal, err := s.goalRepo.CreateGoal(childID, title, targetStars)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

// GetGoals returns a child's savings goals
func (s *EconomyService) GetGoals(childID int64) ([]models.SavingsGoal, error) {
	return s.goalRepo.GetGoalsForChild(childID)
}

// DepositToGoal moves stars from the spendable balance into a goal. The
// debit, the goal growth and the one-way completion transition commit
// together; an insufficient balance leaves everything untouched.
func (s *EconomyService) DepositToGoal(goalID, childID int64, stars int) (*repository.DepositResult, error) {
	if stars <= 0 {
		return nil, ErrInvalidAmount
	}

	goal, err := s.goalRepo.GetGoalByID(goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	if goal == nil || goal.ChildID != childID {
		return nil, ErrGoalNotFound
	}
	if goal.Status != models.GoalStatusActive {
		return nil, errors.New("goal is already completed")
	}

	result, ok, err := s.goalRepo.Deposit(goalID, childID, stars, "saved toward: "+goal.Title)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientFunds
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err == nil && child != nil {
		s.hub.Publish(child.FamilyID, realtime.EventLedgerChanged)
	}
	return result, nil
}

func (s *EconomyService) verifyChild(childID, familyID int64) error {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != familyID {
		return ErrChildNotFound
	}
	return nil
}
