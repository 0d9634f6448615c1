package api

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/pinggolf/m3-scheduling-core/internal/auth"
	"github.com/pinggolf/m3-scheduling-core/internal/config"
	"github.com/pinggolf/m3-scheduling-core/internal/db"
	"github.com/pinggolf/m3-scheduling-core/internal/queue"
	"github.com/pinggolf/m3-scheduling-core/internal/services"
	"github.com/rs/cors"
)

// Server represents the API server
type Server struct {
	config       *config.Config
	db           *db.Queries
	router       *mux.Router
	sessionStore sessions.Store
	authManager  *auth.Manager
	natsManager  *queue.Manager
	auditService *services.AuditService
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, queries *db.Queries, natsManager *queue.Manager, database *sql.DB) *Server {
	// Session store is cookie-based; scheduling runs themselves are tracked
	// in Postgres, so the session only needs to carry auth/environment state.
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	authManager := auth.NewManager(cfg, sessionStore)
	auditService := services.NewAuditService(queries)

	s := &Server{
		config:       cfg,
		db:           queries,
		router:       mux.NewRouter(),
		sessionStore: sessionStore,
		authManager:  authManager,
		natsManager:  natsManager,
		auditService: auditService,
	}

	s.setupRoutes()
	return s
}

// Router returns the configured HTTP router with CORS
func (s *Server) Router() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: s.config.CORSAllowCredentials,
		MaxAge:           300,
	})

	return c.Handler(s.router)
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Health check (no auth required)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Auth routes (session-based, scoped per TRN/PRD environment)
	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/login", s.handleLogin).Methods("POST")
	authRouter.HandleFunc("/callback", s.handleAuthCallback).Methods("GET")
	authRouter.HandleFunc("/logout", s.handleLogout).Methods("POST")
	authRouter.HandleFunc("/status", s.handleAuthStatus).Methods("GET")

	// Scheduling core: enqueue and inspect pipeline runs
	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/scheduling/runs", s.handleStartSchedulingRun).Methods("POST")
	protected.HandleFunc("/scheduling/runs/{taskID}", s.handleGetSchedulingRun).Methods("GET")
	protected.HandleFunc("/scheduling/runs/{taskID}/cancel", s.handleCancelSchedulingRun).Methods("POST")
}

// authMiddleware checks that the session is authenticated and refreshes
// its token when needed. It does not compare environments; the scheduling
// run handler checks the request's environment against the session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessionStore.Get(r, "m3-session")

		authenticated, ok := session.Values["authenticated"].(bool)
		if !ok || !authenticated {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		refreshed, err := s.authManager.RefreshTokenIfNeeded(session)
		if err != nil {
			http.Error(w, "Authentication expired", http.StatusUnauthorized)
			return
		}

		if refreshed {
			if err := session.Save(r, w); err != nil {
				log.Printf("Failed to save session after token refresh: %v", err)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
