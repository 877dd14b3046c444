package handlers

import (
	"log"
	"net/http"

	"taskfortime/internal/database"
	"taskfortime/internal/models"
	"taskfortime/internal/repository"
)

// AdminHandler serves the operator surface. It talks to the repositories
// directly because admin operations cut across family boundaries that the
// services enforce.
type AdminHandler struct {
	db          *database.DB
	accountRepo *repository.AccountRepository
	familyRepo  *repository.FamilyRepository
	childRepo   *repository.ChildRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *database.DB, accountRepo *repository.AccountRepository, familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository) *AdminHandler {
	return &AdminHandler{
		db:          db,
		accountRepo: accountRepo,
		familyRepo:  familyRepo,
		childRepo:   childRepo,
	}
}

type adminFamilyView struct {
	Family   models.Family    `json:"family"`
	Parents  []models.Account `json:"parents"`
	Children []models.Child   `json:"children"`
}

// Families lists every family with its parent accounts and children
func (h *AdminHandler) Families(w http.ResponseWriter, r *http.Request) {
	families, err := h.familyRepo.GetAllFamilies()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error fetching families", err)
		return
	}

	views := make([]adminFamilyView, 0, len(families))
	for _, family := range families {
		view := adminFamilyView{Family: family}

		parents, err := h.familyRepo.GetParentAccounts(family.ID, false)
		if err != nil {
			log.Printf("Error fetching parents for family %d: %v", family.ID, err)
		} else {
			view.Parents = parents
		}
		children, err := h.childRepo.GetActiveChildren(family.ID)
		if err != nil {
			log.Printf("Error fetching children for family %d: %v", family.ID, err)
		} else {
			view.Children = children
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, views)
}

// DeleteFamily removes a family and everything under it
func (h *AdminHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.familyRepo.DeleteFamily(familyID); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error deleting family", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DeleteAccount removes an account. Admins cannot delete themselves.
func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())
	accountID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if accountID == sc.AccountID {
		respondWithError(w, http.StatusBadRequest, "cannot delete your own account", "", nil)
		return
	}

	if err := h.accountRepo.DeleteAccount(accountID); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error deleting account", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type instanceStats struct {
	Accounts      int `json:"accounts"`
	Families      int `json:"families"`
	Children      int `json:"children"`
	Tasks         int `json:"tasks"`
	LedgerEntries int `json:"ledger_entries"`
	Quests        int `json:"quests"`
}

// Stats returns row counts for the operator dashboard
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := instanceStats{}
	counts := []struct {
		table string
		dest  *int
	}{
		{"accounts", &stats.Accounts},
		{"families", &stats.Families},
		{"children", &stats.Children},
		{"assigned_tasks", &stats.Tasks},
		{"stars_ledger", &stats.LedgerEntries},
		{"family_quests", &stats.Quests},
	}
	for _, c := range counts {
		if err := h.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error counting "+c.table, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, stats)
}
