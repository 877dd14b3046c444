package handlers

import (
	"net/http"

	"taskfortime/internal/security"
	"taskfortime/internal/service"
)

// AuthHandler handles signup, login and session endpoints
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// Register creates a parent account plus its family and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")
	familyName := r.FormValue("family_name")
	familyCode := r.FormValue("family_code")

	account, err := h.authService.Register(email, password, name, familyName, familyCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	session, _, err := h.authService.Login(email, password)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "post-register login failed", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"account_id": account.ID,
		"name":       account.Name,
	})
}

// Login authenticates with email and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	session, account, err := h.authService.Login(r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": account.ID,
		"name":       account.Name,
		"role":       account.Role,
	})
}

// Logout invalidates the current session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "logout failed", err)
			return
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Session reports the current session context, including whether the
// session is locked to a child, plus a CSRF token for mutating calls
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sc := GetSessionContext(r.Context())

	token, err := h.csrf.GenerateToken(sc.SessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "csrf token generation failed", err)
		return
	}

	payload := map[string]interface{}{
		"account_id": sc.AccountID,
		"role":       sc.Role,
		"family_id":  sc.FamilyID,
		"child_mode": sc.ChildModeActive(),
		"csrf_token": token,
	}
	if sc.ActiveChildID != nil {
		payload["active_child_id"] = *sc.ActiveChildID
	}
	respondJSON(w, http.StatusOK, payload)
}
