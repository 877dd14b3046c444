package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/realtime"
	"taskfortime/internal/repository"
	"taskfortime/internal/validation"
)

var (
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskConflict means the task exists but is not in a status the
	// requested transition can move forward from
	ErrTaskConflict = errors.New("task is not in the expected state")
)

const notifyTimeout = 10 * time.Second

// TaskService drives the task lifecycle: assignment, submission, review
// and the settlement side effects
type TaskService struct {
	taskRepo   *repository.TaskRepository
	childRepo  *repository.ChildRepository
	familyRepo *repository.FamilyRepository
	email      *EmailService
	hub        *realtime.Hub
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo *repository.TaskRepository, childRepo *repository.ChildRepository, familyRepo *repository.FamilyRepository, email *EmailService, hub *realtime.Hub) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		childRepo:  childRepo,
		familyRepo: familyRepo,
		email:      email,
		hub:        hub,
	}
}

// CreateTask assigns a new task to a child in the family
func (s *TaskService) CreateTask(familyID, childID int64, title, description, category string, rewardMinutes int, requiresApproval bool) (*models.AssignedTask, error) {
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateRewardMinutes(rewardMinutes); err != nil {
		return nil, err
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() || child.FamilyID != familyID {
		return nil, ErrChildNotFound
	}

	task, err := s.taskRepo.CreateTask(familyID, childID, title, description, category, rewardMinutes, requiresApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.hub.Publish(familyID, realtime.EventTaskChanged)
	return task, nil
}

// GetTask returns a family's task, soft-deleted excluded
func (s *TaskService) GetTask(taskID, familyID int64) (*models.AssignedTask, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil || task.IsDeleted() || task.FamilyID != familyID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// GetTasksForChild returns a child's visible tasks
func (s *TaskService) GetTasksForChild(childID int64) ([]models.AssignedTask, error) {
	tasks, err := s.taskRepo.GetTasksForChild(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	return tasks, nil
}

// GetTasksForFamily returns all visible tasks across the family
func (s *TaskService) GetTasksForFamily(familyID int64) ([]models.AssignedTask, error) {
	tasks, err := s.taskRepo.GetTasksForFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	return tasks, nil
}

// Submit marks a task done by its child and moves it to ready_for_review.
// Submitting a task that already settled is a no-op success, so a double
// tap or retry never surfaces an error or double-credits. Tasks that do
// not require approval settle immediately with the same effects an
// explicit approval would have.
func (s *TaskService) Submit(taskID, childID int64) (*models.AssignedTask, error) {
	moved, err := s.taskRepo.SubmitForReview(taskID, childID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil || task.IsDeleted() || task.ChildID != childID {
		return nil, ErrTaskNotFound
	}

	if moved == 0 {
		if task.IsSettled() {
			return task, nil
		}
		return nil, ErrTaskConflict
	}

	if !task.RequiresApproval {
		effects, ok, err := s.taskRepo.ApproveAndCredit(taskID, task.FamilyID, "completed: "+task.Title)
		if err != nil {
			return nil, err
		}
		if ok {
			task = effects.Task
			s.hub.Publish(task.FamilyID, realtime.EventLedgerChanged)
		}
	} else {
		s.notifyParents(task)
	}

	s.hub.Publish(task.FamilyID, realtime.EventTaskChanged)
	return task, nil
}

// Approve settles a ready_for_review task: status, ledger credit and XP
// move together in one transaction. A concurrent approval loses the
// conditional update and comes back as a conflict, never a double credit.
func (s *TaskService) Approve(taskID, familyID int64) (*repository.ApprovalEffects, error) {
	task, err := s.GetTask(taskID, familyID)
	if err != nil {
		return nil, err
	}

	effects, ok, err := s.taskRepo.ApproveAndCredit(taskID, familyID, "approved: "+task.Title)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTaskConflict
	}

	s.hub.Publish(familyID, realtime.EventTaskChanged)
	s.hub.Publish(familyID, realtime.EventLedgerChanged)
	return effects, nil
}

// Reject sends a ready_for_review task back to the child with no economic
// effect. The child may resubmit any number of times.
func (s *TaskService) Reject(taskID, familyID int64) error {
	if _, err := s.GetTask(taskID, familyID); err != nil {
		return err
	}

	ok, err := s.taskRepo.Reject(taskID, familyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskConflict
	}

	s.hub.Publish(familyID, realtime.EventTaskChanged)
	return nil
}

// DeleteTask soft-deletes a task, removing it from lists and quest
// denominators without erasing settled history
func (s *TaskService) DeleteTask(taskID, familyID int64) error {
	if _, err := s.GetTask(taskID, familyID); err != nil {
		return err
	}
	if err := s.taskRepo.SoftDeleteTask(taskID, familyID); err != nil {
		return err
	}
	s.hub.Publish(familyID, realtime.EventTaskChanged)
	return nil
}

// notifyParents emails the family's notifiable parents about a submission.
// Fire-and-forget: delivery failure never affects the state transition.
func (s *TaskService) notifyParents(task *models.AssignedTask) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}

	child, err := s.childRepo.GetChildByID(task.ChildID)
	if err != nil || child == nil {
		log.Printf("skipping submission notification: failed to get child %d: %v", task.ChildID, err)
		return
	}

	parents, err := s.familyRepo.GetParentAccounts(task.FamilyID, true)
	if err != nil {
		log.Printf("skipping submission notification: failed to get parents for family %d: %v", task.FamilyID, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, parent := range parents {
			if err := s.email.SendTaskSubmittedEmail(ctx, parent.Email, parent.Name, child.Name, task.Title); err != nil {
				log.Printf("failed to send submission notification to %s: %v", parent.Email, err)
			}
		}
	}()
}
