package handlers

import (
	"net/http"

	"taskfortime/internal/service"
)

// ChildHandler serves the child surface. Every route sits behind the
// child-mode middleware, so sc.ActiveChildID is always set here and every
// operation is scoped to that one child.
type ChildHandler struct {
	authService    *service.AuthService
	familyService  *service.FamilyService
	taskService    *service.TaskService
	economyService *service.EconomyService
	questService   *service.QuestService
}

// NewChildHandler creates a new child handler
func NewChildHandler(authService *service.AuthService, familyService *service.FamilyService, taskService *service.TaskService, economyService *service.EconomyService, questService *service.QuestService) *ChildHandler {
	return &ChildHandler{
		authService:    authService,
		familyService:  familyService,
		taskService:    taskService,
		economyService: economyService,
		questService:   questService,
	}
}

// Home returns the child dashboard data: profile, assigned tasks and the
// spendable balance
func (h *ChildHandler) Home(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID := *sc.ActiveChildID

	child, err := h.familyService.GetChild(childID, sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	tasks, err := h.taskService.GetTasksForChild(childID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	balance, err := h.economyService.Balance(childID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"child":   child,
		"level":   child.Level(),
		"tasks":   tasks,
		"balance": balance,
	})
}

// SubmitTask marks one of the child's tasks ready for review. Submitting a
// task that is already settled is treated as a success.
func (h *ChildHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	taskID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	task, err := h.taskService.Submit(taskID, *sc.ActiveChildID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Rewards lists the family's available rewards
func (h *ChildHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	rewards, err := h.economyService.GetRewards(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rewards)
}

// Redeem spends the child's balance on a catalog reward
func (h *ChildHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	rewardID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	reward, err := h.economyService.Redeem(*sc.ActiveChildID, sc.FamilyID, rewardID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "redeemed",
		"reward": reward,
	})
}

// Goals lists the child's savings goals
func (h *ChildHandler) Goals(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	goals, err := h.economyService.GetGoals(*sc.ActiveChildID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

// CreateGoal opens a new savings goal for the child
func (h *ChildHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	targetStars, err := parseFormInt(r, "target_stars")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	goal, err := h.economyService.CreateGoal(*sc.ActiveChildID, sc.FamilyID, r.FormValue("title"), targetStars)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, goal)
}

// DepositToGoal moves stars from the child's balance into a goal
func (h *ChildHandler) DepositToGoal(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	goalID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	stars, err := parseFormInt(r, "stars")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	result, err := h.economyService.DepositToGoal(goalID, *sc.ActiveChildID, stars)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"goal":           result.Goal,
		"just_completed": result.JustCompleted,
	})
}

// Quests returns the family quests with recomputed progress
func (h *ChildHandler) Quests(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	progress, err := h.questService.GetQuestProgress(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// Ledger returns the child's own star history
func (h *ChildHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	entries, err := h.economyService.History(*sc.ActiveChildID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// ExitChildMode returns a parent session to the parent view. A genuine
// child account cannot trigger it.
func (h *ChildHandler) ExitChildMode(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := h.authService.ExitChildContext(sc); err != nil {
		respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/parent/home", http.StatusSeeOther)
}
