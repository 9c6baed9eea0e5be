package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chorebank/internal/chore"
	"chorebank/internal/handler"
	"chorebank/internal/ledger"
	"chorebank/internal/middleware"
	"chorebank/internal/realtime"
	"chorebank/internal/reward"
	"chorebank/internal/store"
)

type Server struct {
	db           *sql.DB
	hub          *realtime.Hub
	authH        *handler.AuthHandler
	userH        *handler.UserHandler
	choreH       *handler.ChoreHandler
	rewardH      *handler.RewardHandler
	ledgerH      *handler.LedgerHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)

	choreSvc := chore.NewService(db, logger.With("component", "chore"))
	rewardSvc := reward.NewService(db, logger.With("component", "reward"))
	ledgerSvc := ledger.NewService(db, logger.With("component", "ledger"))

	handlerLogger := logger.With("component", "handler")

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, handlerLogger),
		userH:        handler.NewUserHandler(userStore, handlerLogger),
		choreH:       handler.NewChoreHandler(choreSvc, hub, handlerLogger),
		rewardH:      handler.NewRewardHandler(rewardSvc, hub, handlerLogger),
		ledgerH:      handler.NewLedgerHandler(ledgerSvc, hub, handlerLogger),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore exposes the session store for periodic expiry cleanup.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter exposes the login rate limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session routes
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("POST /api/me/password", s.authH.ChangePassword)

	// User management
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("GET /api/users/children", s.userH.ListChildren)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PATCH /api/users/{id}", s.userH.Update)
	mux.HandleFunc("POST /api/users/{id}/password", s.userH.ResetPassword)

	// Chore lifecycle
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("GET /api/approvals", s.choreH.PendingApproval)
	mux.HandleFunc("POST /api/chores/{id}/done", s.choreH.MarkDone)
	mux.HandleFunc("POST /api/chores/{id}/approve", s.choreH.Approve)
	mux.HandleFunc("POST /api/chores/{id}/reject", s.choreH.Reject)

	// Rewards and redemptions
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("PATCH /api/rewards/{id}", s.rewardH.SetActive)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.ListRedemptions)
	mux.HandleFunc("POST /api/redemptions/{id}/approve", s.rewardH.ApproveRedemption)
	mux.HandleFunc("POST /api/redemptions/{id}/deny", s.rewardH.DenyRedemption)

	// Ledger
	mux.HandleFunc("GET /api/ledger", s.ledgerH.Get)
	mux.HandleFunc("POST /api/ledger/adjust", s.ledgerH.Adjust)

	// Realtime updates
	mux.HandleFunc("GET /ws", realtime.Handler(s.hub))
}
