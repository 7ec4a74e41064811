// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the
// dependency chain is assembled:
//
//	sqlite.DB → AuthService ─┐
//	mcp.Client ──────────────┼→ handlers → chi routes
//	TokenService ────────────┘
//
// main.go stays minimal: build a Config, call New, call Start.
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

	"github.com/sakif/tastegate/internal/auth"
	"github.com/sakif/tastegate/internal/handler"
	"github.com/sakif/tastegate/internal/mcp"
	"github.com/sakif/tastegate/internal/middleware"
	sqliteRepo "github.com/sakif/tastegate/internal/repository/sqlite"
	"github.com/sakif/tastegate/internal/service"
)

// Config holds server configuration. It is built once in main from the
// environment and passed by reference — no component reads ambient
// globals.
type Config struct {
	Port      int
	DBPath    string // path to the SQLite account store
	JWTSecret string // HMAC secret for session tokens
	MCPURL    string // upstream MCP base URL
	MCPAPIKey string // upstream MCP API key
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency graph wired.
//
// Each layer only receives what it needs: services get interfaces
// (repository.UserRepository, mcp.API), handlers get services, routes get
// handlers. The concrete sqlite/http types appear only here.
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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST /api/auth/signup         → register + seed upstream context (JSON)
//	POST /api/auth/login          → authenticate, issue token (JSON)
//	GET  /api/recommendations     → standard snapshot          [auth]
//	GET  /api/ai-recommendations  → AI-enhanced snapshot       [auth]
//	POST /api/feedback            → like/dislike interaction   [auth]
//	POST /api/ai-feedback         → free-text sentiment        [auth]
//	GET  /api/debug/context       → preference context dump    [auth]
//	GET  /api/health/e2e          → composite health, no auth
func (s *Server) setupRoutes() error {
	// Global middleware — runs on every request, in order
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	upstream, err := mcp.New(mcp.Config{
		BaseURL: s.config.MCPURL,
		APIKey:  s.config.MCPAPIKey,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating mcp client: %w", err)
	}

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), upstream, s.logger)
	recService := service.NewRecommendationService(upstream, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	recHandler := handler.NewRecommendationHandler(recService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Get("/health/e2e", recHandler.HandleHealth)

		// Protected routes — RequireAuth validates the bearer token and
		// puts the caller's identity in the request context.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/recommendations", recHandler.HandleRecommendations)
			r.Get("/ai-recommendations", recHandler.HandleAIRecommendations)
			r.Post("/feedback", recHandler.HandleFeedback)
			r.Post("/ai-feedback", recHandler.HandleTextFeedback)
			r.Get("/debug/context", recHandler.HandleContext)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// Shutdown order matters: stop accepting connections, wait for in-flight
// requests (30s), then close the database to flush the WAL and release the
// file lock.
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
			slog.String("database", s.config.DBPath),
			slog.String("mcp", s.config.MCPURL),
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
