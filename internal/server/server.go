// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: every dependency is built in New
// and handed down, so nothing below it reads globals or the environment.
//
// LIFECYCLE (two phases):
//
//	srv, err := server.New(ctx, cfg, logger) // open store, sync schema, connect cache
//	err = srv.Start()                        // serve until SIGINT/SIGTERM
//
// New blocks until the store is ready; any failure there aborts startup and
// no port is ever opened.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/config"
	"github.com/sakif/user-service/internal/handler"
	"github.com/sakif/user-service/internal/middleware"
	"github.com/sakif/user-service/internal/repository/cache"
	sqliteRepo "github.com/sakif/user-service/internal/repository/sqlite"
	"github.com/sakif/user-service/internal/service"
	"github.com/sakif/user-service/internal/validate"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the resources behind it (database pool,
// optional Redis client). Close releases them; Start does so on exit.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	rdb    *redis.Client // nil when caching is off
}

// New initializes every dependency and registers the routes.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it doesn't read like the
// driver package.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.RedisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("user cache enabled",
			slog.String("redis", cfg.RedisAddr),
			slog.Duration("ttl", cfg.CacheTTL),
		)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires store → service → handlers and mounts them.
//
// ROUTE STRUCTURE:
//
//	GET    /             banner                    public
//	GET    /healthz      store/cache ping          public
//	POST   /register     self-registration         public
//	POST   /login        email+password → token    public
//	POST   /users        create user               public
//	GET    /users        list (page, limit, name)  bearer
//	GET    /users/{id}   fetch                     bearer
//	PUT    /users/{id}   replace name+email        bearer
//	PATCH  /users/{id}   partial update            bearer
//	DELETE /users/{id}   delete                    bearer
//	GET    /me           the token's user          bearer
//
// MIDDLEWARE ORDER MATTERS: RequestID first so the access log can read it,
// Recoverer innermost of the global chain so a panic still gets logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return err
	}

	// The cache decorator is a pass-through when s.rdb is nil.
	store := cache.NewCachingUserRepository(s.rdb, s.config.CacheTTL, s.db, "users")

	users := service.NewUserService(store, passwords, tokens, validate.New(), s.logger, service.Pagination{
		DefaultLimit: s.config.DefaultPageSize,
		MaxLimit:     s.config.MaxPageSize,
	})

	healthHandler := handler.NewHealthHandler(store, s.logger)
	authHandler := handler.NewAuthHandler(users, s.logger)
	userHandler := handler.NewUserHandler(users, s.logger)

	s.router.Get("/", healthHandler.HandleIndex)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/users", userHandler.HandleCreate)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(tokens))

		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Put("/users/{id}", userHandler.HandleUpdate)
		r.Patch("/users/{id}", userHandler.HandlePatch)
		r.Delete("/users/{id}", userHandler.HandleDelete)
		r.Get("/me", userHandler.HandleMe)
	})

	return nil
}

// Handler exposes the router (tests drive it through httptest).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and blocks until SIGINT/SIGTERM or a
// listener failure. In-flight requests get 30 seconds to finish; then the
// database and cache are closed.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		s.Close()
		return fmt.Errorf("listening on %s: %w", s.config.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully and releases the server's resources.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Close releases the database pool and the Redis client. Safe to call more
// than once.
func (s *Server) Close() error {
	var errs []error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}
