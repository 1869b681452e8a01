// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects the store, services,
// handlers, middleware and routes. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → store.Open → repository.Store (sqlite or mongo)
//	repository.Store → EventService / AnnouncementService / UserService / AuthService
//	services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (NewWithStore/routes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/handler"
	"github.com/sakif/eventhub/internal/middleware"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/store"
	"github.com/sakif/eventhub/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so in-flight requests never see a closed database.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	store   repository.Store
	limiter *middleware.RateLimiter
}

// New opens the configured store and wires the server around it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s, err := NewWithStore(cfg, st, logger)
	if err != nil {
		st.Close() // Clean up the store if wiring fails
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the server around an already-open store. Tests use it
// with an in-memory sqlite database.
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not *sqlite.DB or *mongo.Store)
// - Handlers get services (never the store)
func NewWithStore(cfg config.Config, st repository.Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   st,
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
	}
	s.routes(tokens)
	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
// 1. RequestID: assigns a unique ID to each request (read by Logger)
// 2. RealIP: extracts the client IP from proxy headers (read by the rate limiter)
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: only CLIENT_URL may call the API from a browser, with cookies
func (s *Server) routes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	// === Services ===
	eventService := service.NewEventService(s.store, s.store, s.logger)
	announcementService := service.NewAnnouncementService(s.store, s.store, s.store, s.logger)
	userService := service.NewUserService(s.store, s.store, s.logger)
	authService := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), s.logger)

	// === Handlers ===
	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, tokens, github, s.config.SecureCookie, s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	announcementHandler := handler.NewAnnouncementHandler(announcementService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.store, s.logger)
	requireAdmin := auth.RequireRole(model.RoleAdmin)

	// === Public pages ===
	s.router.Get("/", handler.HandleWelcome)
	s.router.Get("/health", handler.HandleHealth)

	// === Browser session routes ===
	s.router.Post("/auth/logout", authHandler.HandleLogout)
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Handler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.HandleList)
			r.Get("/{id}", eventHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{id}/like", eventHandler.HandleToggleLike)
				r.Post("/{id}/comments", eventHandler.HandleAddComment)
				r.Delete("/{id}/comments/{commentId}", eventHandler.HandleDeleteComment)
				r.Post("/{id}/comments/{commentId}/like", eventHandler.HandleToggleCommentLike)
				r.Post("/{id}/rate", eventHandler.HandleRate)
			})

			// The owner-or-admin rule for update/delete lives in the
			// service; the route itself is admin-only.
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", eventHandler.HandleCreate)
				r.Put("/{id}", eventHandler.HandleUpdate)
				r.Delete("/{id}", eventHandler.HandleDelete)
			})
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", announcementHandler.HandleList)
			r.Get("/{id}", announcementHandler.HandleGet)
			r.With(requireAuth).Post("/{id}/like", announcementHandler.HandleToggleLike)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", announcementHandler.HandleCreate)
				r.Put("/{id}", announcementHandler.HandleUpdate)
				r.Delete("/{id}", announcementHandler.HandleDelete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", userHandler.HandleProfile)
			r.Put("/profile", userHandler.HandleUpdateProfile)
			r.Get("/favorites", userHandler.HandleFavorites)
			r.Post("/favorites/{eventId}", userHandler.HandleToggleFavorite)
		})
	})
}

// Start runs the HTTP server until ctx is cancelled (main wires it to
// SIGINT/SIGTERM), then shuts down gracefully:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store (flushes the sqlite WAL / disconnects from mongo)
//
// The listener, the rate limiter sweeper and the shutdown watcher run in
// one errgroup: if the listener fails, the group context is cancelled and
// the others stop too.
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", store.Describe(s.config)),
			slog.Bool("githubOAuth", s.config.GitHubEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.limiter.Run(gctx.Done())
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
