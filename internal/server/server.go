// Package server sets up the HTTP server, router, and all route definitions.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and passes it to New, which builds
//
//	sqlite.DB → SessionDB (tokens sealed with session.Box) ┐
//	TokenService (cookie JWT)                              ├→ auth.Manager
//	foodgram.Client → AccountService, RecipeEditor          │
//	Renderer, Inflight ─────────────────────────────────────┴→ handler.Handler
//
// Everything is wired here (the "composition root"); no package reaches for
// globals.
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

	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/config"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/handler"
	"github.com/sakif/foodgram-web/internal/middleware"
	"github.com/sakif/foodgram-web/internal/recipes"
	sqliteRepo "github.com/sakif/foodgram-web/internal/repository/sqlite"
	"github.com/sakif/foodgram-web/internal/service"
	"github.com/sakif/foodgram-web/internal/session"
)

// purgeInterval is how often expired sessions are deleted.
const purgeInterval = time.Hour

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown, after
// in-flight requests have finished.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *auth.Manager
}

// New creates a Server with every dependency wired.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	h, sessions, err := wire(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
	}
	s.setupRoutes(h)
	return s, nil
}

// wire builds the handler and its collaborators on top of db.
func wire(cfg config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*handler.Handler, *auth.Manager, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("creating token service: %w", err)
	}
	store := db.Sessions(session.NewBox(cfg.SessionSecret))
	sessions := auth.NewManager(tokens, store, cfg.SessionTTL, cfg.SecureCookies, logger)

	client, err := foodgram.New(foodgram.Config{
		BaseURL:    cfg.APIURL,
		AuthScheme: cfg.AuthScheme,
		Timeout:    cfg.APITimeout,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating backend client: %w", err)
	}

	renderer, err := handler.NewRenderer(cfg.TemplateDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading templates: %w", err)
	}

	accounts := service.NewAccountService(func(token string) service.AccountAPI {
		return client.As(token)
	}, logger)
	editor := service.NewRecipeEditor(func(token string) service.EditorAPI {
		return client.As(token)
	}, logger)

	h := handler.New(handler.Deps{
		Backend:  client,
		Sessions: sessions,
		Accounts: accounts,
		Editor:   editor,
		Inflight: recipes.NewInflight(),
		Renderer: renderer,
		Logger:   logger,
	})
	return h, sessions, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER:
// 1. RequestID, RealIP: tag the request before it is logged
// 2. Logger
// 3. Recoverer: a panic becomes a logged 500
// 4. sessions.Load: attaches the viewer's session.State to the context
//
// Toggles and subscribe stay outside RequireSignIn: an anonymous POST reaches
// the controller, which refuses it without calling the backend, and the handler
// sends the visitor to /signin with a notice.
func (s *Server) setupRoutes(h *handler.Handler) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Load)

		r.Get("/", h.HandleHome)
		r.Get("/about", h.HandleAbout)
		r.Get("/technologies", h.HandleTechnologies)

		r.Get("/recipes", h.HandleRecipes)
		r.Get("/recipes/{id}", h.HandleRecipe)
		r.Post("/recipes/{id}/favorite", h.HandleToggleFavorite)
		r.Post("/recipes/{id}/cart", h.HandleToggleCart)
		r.Post("/recipes/{id}/link", h.HandleShortLink)
		r.Get("/user/{id}", h.HandleUser)
		r.Post("/users/{id}/subscribe", h.HandleSubscribe)
		r.Get("/api/ingredients", h.HandleIngredients)

		r.Get("/reset-password", h.HandleResetPasswordPage)
		r.Post("/reset-password", h.HandleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSignedOut)
			r.Get("/signin", h.HandleSignInPage)
			r.Post("/signin", h.HandleSignIn)
			r.Get("/signup", h.HandleSignUpPage)
			r.Post("/signup", h.HandleSignUp)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSignIn)
			r.Get("/recipes/create", h.HandleCreatePage)
			r.Post("/recipes/create", h.HandleCreate)
			r.Get("/recipes/{id}/edit", h.HandleEditPage)
			r.Post("/recipes/{id}/edit", h.HandleEdit)
			r.Post("/recipes/{id}/delete", h.HandleDelete)

			r.Get("/cart", h.HandleCart)
			r.Get("/cart/download", h.HandleDownloadCart)
			r.Get("/favorites", h.HandleFavorites)
			r.Get("/subscriptions", h.HandleSubscriptions)

			r.Post("/signout", h.HandleSignOut)
			r.Get("/change-password", h.HandleChangePasswordPage)
			r.Post("/change-password", h.HandleChangePassword)
			r.Get("/change-avatar", h.HandleChangeAvatarPage)
			r.Post("/change-avatar", h.HandleChangeAvatar)
			r.Post("/change-avatar/delete", h.HandleDeleteAvatar)
		})

		r.NotFound(h.NotFound)
	})
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts down
// gracefully:
// 1. Stop accepting new connections
// 2. Wait for in-flight requests (30s)
// 3. Stop the session purger and close the database
func (s *Server) Start() error {
	defer s.db.Close()

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go s.sessions.Purge(purgeCtx, purgeInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // backend calls can chain (sign-in is three)
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.APIURL),
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
