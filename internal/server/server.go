// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go reads config and hands it to New(), which assembles the chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired in one
// place, rather than scattered across the codebase. Nothing here is a
// package-level singleton; every handler holds exactly the dependencies it
// was constructed with, which is what makes the handler tests able to stand
// up a full server around an in-memory database.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/handler"
	"github.com/sakif/taskboard/internal/middleware"
	sqliteRepo "github.com/sakif/taskboard/internal/repository/sqlite"
	"github.com/sakif/taskboard/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy
// to add options without changing function signatures.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session tokens. Empty means the insecure dev
	// fallback — main.go warns loudly about that.
	JWTSecret string

	// GitHub OAuth app credentials. Both empty = OAuth routes respond
	// with a soft "not configured" redirect instead of 404ing.
	GitHubClientID     string
	GitHubClientSecret string
	// GitHubRedirectURI overrides the callback URL derived from the
	// request host. Needed behind reverse proxies.
	GitHubRedirectURI string

	// FrontendURL is where OAuth redirects land ("" = same origin).
	FrontendURL string
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection: when it shuts down it must close
// the connection to flush the WAL and release the file lock. Start() handles
// that during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server, opening the database and wiring every layer.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo to keep it visually distinct
// from the driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()

	return s, nil
}

// Handler exposes the assembled router. Tests mount it on an httptest.Server
// instead of calling Start().
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start()'s
// shutdown path. Tests use this; Start() does its own cleanup.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth                  → register (201 + session cookie)
//	POST   /auth/login            → login
//	POST   /auth/logout           → clear session cookie
//	GET    /auth/me               → current user           [auth]
//	GET    /auth/github           → redirect to GitHub
//	GET    /auth/github/callback  → finish OAuth flow
//	PUT    /api/me                → rename account          [auth]
//	DELETE /api/me                → delete account          [auth]
//	CRUD   /api/projects[/{id}]   → projects                [auth]
//	CRUD   /api/tasks[/{id}]      → tasks                   [auth]
//	POST   /api/import            → replace board from file [auth]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first (so everything downstream can log it), RealIP before the
// logger (so logs show the true client), Recoverer last of the globals so a
// panicking handler still produces a logged 500.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === DEPENDENCY WIRING ===
	secret := s.config.JWTSecret
	if secret == "" {
		secret = auth.InsecureDevSecret
	}
	tokens := auth.NewTokenService(secret)
	passwords := auth.NewPasswordService()
	github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret)

	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	projectService := service.NewProjectService(s.db.Projects(), s.logger)
	taskService := service.NewTaskService(s.db.Tasks(), s.db.Projects(), s.logger)
	importService := service.NewImportService(s.db.Projects(), s.db.Tasks(), s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.config.FrontendURL, s.config.GitHubRedirectURI, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)
	importHandler := handler.NewImportHandler(importService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	// === AUTH ROUTES ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	// === API ROUTES (all require a session) ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Put("/me", authHandler.HandleUpdateMe)
		r.Delete("/me", authHandler.HandleDeleteMe)

		r.Post("/projects", projectHandler.HandleCreate)
		r.Get("/projects", projectHandler.HandleList)
		r.Get("/projects/{id}", projectHandler.HandleGet)
		r.Put("/projects/{id}", projectHandler.HandleUpdate)
		r.Delete("/projects/{id}", projectHandler.HandleDelete)

		r.Post("/tasks", taskHandler.HandleCreate)
		r.Get("/tasks", taskHandler.HandleList)
		r.Get("/tasks/{id}", taskHandler.HandleGet)
		r.Put("/tasks/{id}", taskHandler.HandleUpdate)
		r.Delete("/tasks/{id}", taskHandler.HandleDelete)

		r.Post("/import", importHandler.HandleImport)
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// The `defer s.db.Close()` ensures step 3 happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
