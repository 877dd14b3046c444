package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskfortime/internal/config"
	"taskfortime/internal/database"
	"taskfortime/internal/handlers"
	"taskfortime/internal/insights"
	"taskfortime/internal/realtime"
	"taskfortime/internal/repository"
	"taskfortime/internal/security"
	"taskfortime/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	questRepo := repository.NewQuestRepository(db)

	// Event hub for server-sent updates
	hub := realtime.NewHub()

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if emailService.IsEnabled() {
		log.Println("Email notifications enabled")
	} else {
		log.Println("Email notifications disabled (SES_FROM_EMAIL not set)")
	}

	authService := service.NewAuthService(accountRepo, familyRepo, childRepo, cfg.SessionDuration)
	familyService := service.NewFamilyService(familyRepo, childRepo, ledgerRepo, taskRepo)
	taskService := service.NewTaskService(taskRepo, childRepo, familyRepo, emailService, hub)
	economyService := service.NewEconomyService(ledgerRepo, rewardRepo, goalRepo, childRepo, hub)
	questService := service.NewQuestService(questRepo, taskRepo, childRepo, hub)
	summaryService := service.NewSummaryService(familyRepo, childRepo, taskRepo, ledgerRepo, emailService)

	// The generated recommender needs an API key; without one, coaching
	// insights come from the deterministic templates alone.
	var recommender insights.Recommender = insights.DeterministicRecommender{}
	if cfg.InsightsAPIKey != "" {
		recommender = insights.NewGeneratedRecommender(insights.NewCompletionClient(cfg.InsightsAPIKey, cfg.InsightsBaseURL, cfg.InsightsModel))
		log.Println("Generated coaching insights enabled")
	}
	insightService := service.NewInsightService(taskRepo, childRepo, recommender, cfg.InsightsWindowDays)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, csrf, limiter)
	authHandler := handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.AppBaseURL)
	parentHandler := handlers.NewParentHandler(authService, familyService, taskService, economyService, questService, insightService)
	childHandler := handlers.NewChildHandler(authService, familyService, taskService, economyService, questService)
	eventsHandler := handlers.NewEventsHandler(hub)
	adminHandler := handlers.NewAdminHandler(db, accountRepo, familyRepo, childRepo)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Session introspection
	mux.HandleFunc("GET /session", middleware.RequireAuth(authHandler.Session))

	// Event stream
	mux.HandleFunc("GET /events", middleware.RequireAuth(eventsHandler.Stream))

	// Parent routes
	requireParent := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(middleware.RequireParent(next))
	}
	parentMutation := func(next http.HandlerFunc) http.HandlerFunc {
		return requireParent(middleware.CSRFProtect(next))
	}
	mux.HandleFunc("GET /parent/home", requireParent(parentHandler.Home))
	mux.HandleFunc("POST /parent/family/join", parentMutation(parentHandler.JoinFamily))
	mux.HandleFunc("POST /parent/notifications", parentMutation(parentHandler.SetNotifications))
	mux.HandleFunc("POST /parent/children/create", parentMutation(parentHandler.CreateChild))
	mux.HandleFunc("POST /parent/children/{id}/update", parentMutation(parentHandler.UpdateChild))
	mux.HandleFunc("POST /parent/children/{id}/regenerate-pin", parentMutation(parentHandler.RegenerateChildPIN))
	mux.HandleFunc("POST /parent/children/{id}/login", parentMutation(parentHandler.CreateChildLogin))
	mux.HandleFunc("POST /parent/children/{id}/delete", parentMutation(parentHandler.DeleteChild))
	mux.HandleFunc("POST /parent/children/{id}/enter", parentMutation(parentHandler.EnterChildMode))
	mux.HandleFunc("POST /parent/children/{id}/bonus", parentMutation(parentHandler.GrantBonus))
	mux.HandleFunc("POST /parent/children/{id}/reset-balance", parentMutation(parentHandler.ResetBalance))
	mux.HandleFunc("POST /parent/children/{id}/interest", parentMutation(parentHandler.ApplyInterest))
	mux.HandleFunc("GET /parent/children/{id}/ledger", requireParent(parentHandler.ChildLedger))
	mux.HandleFunc("GET /parent/children/{id}/insight", requireParent(parentHandler.ChildInsight))
	mux.HandleFunc("GET /parent/tasks", requireParent(parentHandler.Tasks))
	mux.HandleFunc("POST /parent/tasks/create", parentMutation(parentHandler.CreateTask))
	mux.HandleFunc("POST /parent/tasks/{id}/approve", parentMutation(parentHandler.ApproveTask))
	mux.HandleFunc("POST /parent/tasks/{id}/reject", parentMutation(parentHandler.RejectTask))
	mux.HandleFunc("POST /parent/tasks/{id}/delete", parentMutation(parentHandler.DeleteTask))
	mux.HandleFunc("POST /parent/rewards/create", parentMutation(parentHandler.CreateReward))
	mux.HandleFunc("POST /parent/rewards/{id}/availability", parentMutation(parentHandler.SetRewardAvailability))
	mux.HandleFunc("POST /parent/quests/create", parentMutation(parentHandler.CreateQuest))
	mux.HandleFunc("GET /parent/quests", requireParent(parentHandler.QuestProgress))
	mux.HandleFunc("GET /parent/metrics", requireParent(parentHandler.OutcomeMetrics))

	// Child routes
	requireChild := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(middleware.RequireChildMode(next))
	}
	childMutation := func(next http.HandlerFunc) http.HandlerFunc {
		return requireChild(middleware.CSRFProtect(next))
	}
	mux.HandleFunc("GET /child/home", requireChild(childHandler.Home))
	mux.HandleFunc("POST /child/tasks/{id}/submit", childMutation(childHandler.SubmitTask))
	mux.HandleFunc("GET /child/rewards", requireChild(childHandler.Rewards))
	mux.HandleFunc("POST /child/rewards/{id}/redeem", childMutation(childHandler.Redeem))
	mux.HandleFunc("GET /child/goals", requireChild(childHandler.Goals))
	mux.HandleFunc("POST /child/goals/create", childMutation(childHandler.CreateGoal))
	mux.HandleFunc("POST /child/goals/{id}/deposit", childMutation(childHandler.DepositToGoal))
	mux.HandleFunc("GET /child/quests", requireChild(childHandler.Quests))
	mux.HandleFunc("GET /child/ledger", requireChild(childHandler.Ledger))
	mux.HandleFunc("POST /child/exit", middleware.RequireAuth(middleware.CSRFProtect(childHandler.ExitChildMode)))

	// Admin routes
	requireAdmin := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(middleware.RequireAdmin(next))
	}
	mux.HandleFunc("GET /admin/families", requireAdmin(adminHandler.Families))
	mux.HandleFunc("POST /admin/families/{id}/delete", requireAdmin(middleware.CSRFProtect(adminHandler.DeleteFamily)))
	mux.HandleFunc("POST /admin/accounts/{id}/delete", requireAdmin(middleware.CSRFProtect(adminHandler.DeleteAccount)))
	mux.HandleFunc("GET /admin/stats", requireAdmin(adminHandler.Stats))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		// SSE connections stay open; WriteTimeout would cut them off
		IdleTimeout: 60 * time.Second,
	}

	// Start background workers
	go cleanupExpiredSessions(authService)
	go sendDailySummaries(summaryService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}
	}
}

// sendDailySummaries emails each family's summary once a day
func sendDailySummaries(summaryService *service.SummaryService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		summaryService.SendDailySummaries(ctx)
		cancel()
	}
}
