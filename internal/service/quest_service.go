package service

import (
	"errors"
	"fmt"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/realtime"
	"taskfortime/internal/repository"
	"taskfortime/internal/validation"
)

var ErrQuestNotFound = errors.New("quest not found")

// QuestService computes quest progress and drives the one-shot
// celebration transition
type QuestService struct {
	questRepo *repository.QuestRepository
	taskRepo  *repository.TaskRepository
	childRepo *repository.ChildRepository
	hub       *realtime.Hub
}

// NewQuestService creates a new quest service
func NewQuestService(questRepo *repository.QuestRepository, taskRepo *repository.TaskRepository, childRepo *repository.ChildRepository, hub *realtime.Hub) *QuestService {
	return &QuestService{
		questRepo: questRepo,
		taskRepo:  taskRepo,
		childRepo: childRepo,
		hub:       hub,
	}
}

// CreateQuest opens a family-wide completion-rate objective
func (s *QuestService) CreateQuest(familyID int64, title, rewardDescription string, targetRate float64, start, end time.Time) (*models.FamilyQuest, error) {
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if targetRate <= 0 || targetRate > 100 {
		return nil, errors.New("target completion rate must be between 1 and 100")
	}
	if !end.After(start) {
		return nil, errors.New("quest end date must be after start date")
	}

	quest, err := s.questRepo.CreateQuest(familyID, title, rewardDescription, targetRate, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	s.hub.Publish(familyID, realtime.EventQuestChanged)
	return quest, nil
}

// GetQuestProgress recomputes every family quest against current data.
// Progress is never stored; removing a child or deleting a task moves it
// retroactively. Quests with no active children or no countable tasks in
// their window are inapplicable and omitted, never shown at a misleading
// 0%. The active-to-completed transition is claimed with a conditional
// update, so exactly one concurrent reader observes JustCompleted and
// fires the celebration.
func (s *QuestService) GetQuestProgress(familyID int64) ([]models.QuestProgress, error) {
	quests, err := s.questRepo.GetQuestsForFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}

	children, err := s.childRepo.GetActiveChildren(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	if len(children) == 0 {
		return []models.QuestProgress{}, nil
	}
	activeChildren := make(map[int64]bool, len(children))
	for _, c := range children {
		activeChildren[c.ID] = true
	}

	progress := make([]models.QuestProgress, 0, len(quests))
	for _, quest := range quests {
		tasks, err := s.taskRepo.GetTasksInWindow(familyID, quest.StartDate, quest.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to get tasks for quest %d: %w", quest.ID, err)
		}

		var counted []models.AssignedTask
		for _, t := range tasks {
			if activeChildren[t.ChildID] {
				counted = append(counted, t)
			}
		}
		if len(counted) == 0 {
			continue
		}

		p := ComputeQuestProgress(quest, counted)
		if p.IsMet && quest.Status == models.QuestStatusActive {
			claimed, err := s.questRepo.MarkCompleted(quest.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to complete quest %d: %w", quest.ID, err)
			}
			if claimed {
				p.JustCompleted = true
				p.Quest.Status = models.QuestStatusCompleted
				s.hub.Publish(familyID, realtime.EventQuestChanged)
			}
		}
		progress = append(progress, p)
	}

	return progress, nil
}

// ComputeQuestProgress derives a quest's completion percentage from the
// tasks in its window. A task counts as completed once it reaches
// ready_for_review or approved; a rejected task keeps its submission
// timestamp but does not count. Pure function: no clock, no storage.
func ComputeQuestProgress(quest models.FamilyQuest, tasks []models.AssignedTask) models.QuestProgress {
	p := models.QuestProgress{Quest: quest}
	for _, t := range tasks {
		p.AssignedTasks++
		if t.IsSettled() {
			p.CompletedTasks++
		}
	}
	if p.AssignedTasks > 0 {
		p.CompletionRate = float64(p.CompletedTasks) / float64(p.AssignedTasks) * 100
		p.IsMet = p.CompletionRate >= quest.TargetCompletionRate
	}
	return p
}
