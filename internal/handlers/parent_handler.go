package handlers

import (
	"net/http"

	"taskfortime/internal/models"
	"taskfortime/internal/service"
)

// ParentHandler serves the parent surface: family administration, task
// review and the economy controls
type ParentHandler struct {
	authService    *service.AuthService
	familyService  *service.FamilyService
	taskService    *service.TaskService
	economyService *service.EconomyService
	questService   *service.QuestService
	insightService *service.InsightService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(authService *service.AuthService, familyService *service.FamilyService, taskService *service.TaskService, economyService *service.EconomyService, questService *service.QuestService, insightService *service.InsightService) *ParentHandler {
	return &ParentHandler{
		authService:    authService,
		familyService:  familyService,
		taskService:    taskService,
		economyService: economyService,
		questService:   questService,
		insightService: insightService,
	}
}

// Home returns the parent dashboard data: family, children with derived
// stats, and the review queue
func (h *ParentHandler) Home(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())

	family, err := h.familyService.GetFamily(sc.AccountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	children, err := h.familyService.GetChildrenWithStats(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	tasks, err := h.taskService.GetTasksForFamily(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	var review []models.AssignedTask
	for _, t := range tasks {
		if t.Status == models.TaskStatusReadyForReview {
			review = append(review, t)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"family":       family,
		"children":     children,
		"review_queue": review,
	})
}

// CreateChild adds a child profile and returns its one-time PIN
func (h *ParentHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	child, pin, err := h.familyService.CreateChild(sc.FamilyID, r.FormValue("name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"child": child,
		"pin":   pin,
	})
}

// UpdateChild renames a child or changes their avatar color
func (h *ParentHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.familyService.UpdateChild(childID, sc.FamilyID, r.FormValue("name"), r.FormValue("avatar_color")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RegenerateChildPIN issues a fresh PIN and returns it once
func (h *ParentHandler) RegenerateChildPIN(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	pin, err := h.familyService.RegeneratePIN(childID, sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"pin": pin})
}

// CreateChildLogin creates a standalone child-role login for a profile
func (h *ParentHandler) CreateChildLogin(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	account, err := h.authService.CreateChildLogin(sc, childID, r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"account_id": account.ID, "email": account.Email})
}

// DeleteChild soft-deletes a child profile
func (h *ParentHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.familyService.RemoveChild(childID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// EnterChildMode locks this session to a child's view after a PIN check
func (h *ParentHandler) EnterChildMode(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.authService.EnterChildContext(sc, childID, r.FormValue("pin")); err != nil {
		respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/child/home", http.StatusSeeOther)
}

// CreateTask assigns a new task to a child
func (h *ParentHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	childID, err := parseFormInt(r, "child_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	rewardMinutes, err := parseFormInt(r, "reward_minutes")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	requiresApproval := r.FormValue("requires_approval") != "false"

	task, err := h.taskService.CreateTask(sc.FamilyID, int64(childID),
		r.FormValue("title"), r.FormValue("description"), r.FormValue("category"),
		rewardMinutes, requiresApproval)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// Tasks lists the family's visible tasks
func (h *ParentHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	tasks, err := h.taskService.GetTasksForFamily(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// ApproveTask settles a submitted task: approval, time credit and XP in
// one shot
func (h *ParentHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	taskID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	effects, err := h.taskService.Approve(taskID, sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"task":             effects.Task,
		"credited_minutes": effects.CreditedMinutes,
		"new_xp":           effects.NewXP,
		"new_level":        models.LevelForXP(effects.NewXP),
	})
}

// RejectTask sends a submitted task back to the child
func (h *ParentHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	taskID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.taskService.Reject(taskID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// DeleteTask soft-deletes a task
func (h *ParentHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	taskID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.taskService.DeleteTask(taskID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreateReward adds a reward to the family catalog
func (h *ParentHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	costMinutes, err := parseFormInt(r, "cost_minutes")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	reward, err := h.economyService.CreateReward(sc.FamilyID, r.FormValue("title"), costMinutes, r.FormValue("icon"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reward)
}

// SetRewardAvailability toggles a catalog reward on or off
func (h *ParentHandler) SetRewardAvailability(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	rewardID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	available := r.FormValue("available") != "false"
	if err := h.economyService.SetRewardAvailability(rewardID, sc.FamilyID, available); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// GrantBonus appends a parent-initiated credit to a child's ledger
func (h *ParentHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
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

	if err := h.economyService.GrantBonus(childID, sc.FamilyID, stars, r.FormValue("reason")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// ResetBalance appends the reset adjustment to a child's ledger
func (h *ParentHandler) ResetBalance(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.economyService.ResetBalance(childID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ApplyInterest credits interest on a child's current balance
func (h *ParentHandler) ApplyInterest(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	rate, err := parseFormInt(r, "rate_percent")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if _, err := h.familyService.GetChild(childID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	credited, err := h.economyService.ApplyInterest(childID, rate)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"credited": credited})
}

// ChildLedger returns a child's full ledger history
func (h *ParentHandler) ChildLedger(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if _, err := h.familyService.GetChild(childID, sc.FamilyID); err != nil {
		respondServiceError(w, err)
		return
	}
	entries, err := h.economyService.History(childID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// CreateQuest opens a family quest
func (h *ParentHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	targetRate, err := parseFormFloat(r, "target_completion_rate")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	start, err := parseFormDate(r, "start_date")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	end, err := parseFormDate(r, "end_date")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	quest, err := h.questService.CreateQuest(sc.FamilyID, r.FormValue("title"), r.FormValue("reward_description"), targetRate, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, quest)
}

// QuestProgress recomputes and returns every family quest's progress
func (h *ParentHandler) QuestProgress(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	progress, err := h.questService.GetQuestProgress(sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// ChildInsight returns the coaching recommendation for one child
func (h *ParentHandler) ChildInsight(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	childID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	report, err := h.insightService.GetChildInsight(r.Context(), childID, sc.FamilyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// OutcomeMetrics returns family task aggregates for a date range
func (h *ParentHandler) OutcomeMetrics(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	from, err := parseDateParam(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	metrics, err := h.insightService.GetOutcomeMetrics(sc.FamilyID, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// JoinFamily attaches this account to another family by share code
func (h *ParentHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	family, err := h.familyService.JoinFamilyByCode(sc.AccountID, r.FormValue("family_code"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// SetNotifications toggles approval notification emails for this account
func (h *ParentHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	enabled := r.FormValue("enabled") != "false"
	if err := h.authService.SetNotifyApprovals(sc.AccountID, enabled); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
