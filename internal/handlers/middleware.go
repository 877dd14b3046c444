package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"taskfortime/internal/models"
	"taskfortime/internal/security"
	"taskfortime/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
	}
}

// RequireAuth requires a valid session and threads the session context
// through the request
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sc, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, *sc)
		next(w, r.WithContext(ctx))
	}
}

// RequireParent requires an authenticated session that is NOT in child
// mode. A session locked to a child's capabilities is bounced to the
// child home rather than given an error page, so a handed-over device
// stays inside the child surface.
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		sc := GetSessionContext(r.Context())
		if sc.ChildModeActive() {
			http.Redirect(w, r, "/child/home", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// RequireChildMode requires an authenticated session with an active child
// context. Stale child contexts never reach here: validation invalidates
// the whole session and RequireAuth sends the user back to /login.
func (m *Middleware) RequireChildMode(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		sc := GetSessionContext(r.Context())
		if sc.ActiveChildID == nil {
			http.Redirect(w, r, "/parent/home", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// RequireAdmin requires an authenticated administrator
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		sc := GetSessionContext(r.Context())
		if !sc.IsAdmin {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		next(w, r)
	})
}

// CSRFProtect validates the stateless CSRF token on mutating requests.
// Must run inside RequireAuth: the token is bound to the session ID.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		sc := GetSessionContext(r.Context())
		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.FormValue(CSRFFormField)
		}
		if sc.SessionID == "" || !m.csrf.ValidateToken(sc.SessionID, token) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit applies the per-IP limiter, for credential endpoints
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetSessionContext retrieves the session context from the request
// context; the zero value means unauthenticated
func GetSessionContext(ctx context.Context) models.SessionContext {
	sc, _ := ctx.Value(SessionContextKey).(models.SessionContext)
	return sc
}
