package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/repository"
)

// SummaryService composes and sends the end-of-day family digest
type SummaryService struct {
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
	taskRepo   *repository.TaskRepository
	ledgerRepo *repository.LedgerRepository
	email      *EmailService
}

// NewSummaryService creates a new summary service
func NewSummaryService(familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository, taskRepo *repository.TaskRepository, ledgerRepo *repository.LedgerRepository, email *EmailService) *SummaryService {
	return &SummaryService{
		familyRepo: familyRepo,
		childRepo:  childRepo,
		taskRepo:   taskRepo,
		ledgerRepo: ledgerRepo,
		email:      email,
	}
}

// SendDailySummaries sweeps every family and emails each notifiable
// parent the day's digest. Per-family failures are logged and skipped so
// one bad family never blocks the rest of the sweep.
func (s *SummaryService) SendDailySummaries(ctx context.Context) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}

	families, err := s.familyRepo.GetAllFamilies()
	if err != nil {
		log.Printf("daily summary sweep failed: %v", err)
		return
	}

	for _, family := range families {
		if err := s.sendFamilySummary(ctx, family.ID); err != nil {
			log.Printf("daily summary for family %d failed: %v", family.ID, err)
		}
	}
}

func (s *SummaryService) sendFamilySummary(ctx context.Context, familyID int64) error {
	lines, err := s.BuildSummaryLines(familyID, time.Now())
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	parents, err := s.familyRepo.GetParentAccounts(familyID, true)
	if err != nil {
		return fmt.Errorf("failed to get parents: %w", err)
	}

	for _, parent := range parents {
		if err := s.email.SendDailySummaryEmail(ctx, parent.Email, parent.Name, lines); err != nil {
			log.Printf("failed to send daily summary to %s: %v", parent.Email, err)
		}
	}
	return nil
}

// BuildSummaryLines computes one digest row per active child for the
// calendar day containing now
func (s *SummaryService) BuildSummaryLines(familyID int64, now time.Time) ([]DailySummaryLine, error) {
	children, err := s.childRepo.GetActiveChildren(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var lines []DailySummaryLine
	for _, child := range children {
		tasks, err := s.taskRepo.GetTasksForChild(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get tasks for child %d: %w", child.ID, err)
		}

		line := DailySummaryLine{ChildName: child.Name}
		for _, t := range tasks {
			if t.CompletedAt != nil && !t.CompletedAt.Before(dayStart) {
				line.CompletedToday++
			}
			if t.Status == models.TaskStatusReadyForReview {
				line.PendingReview++
			}
		}

		balance, err := s.ledgerRepo.Balance(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance for child %d: %w", child.ID, err)
		}
		line.BalanceMinutes = balance
		lines = append(lines, line)
	}

	return lines, nil
}
