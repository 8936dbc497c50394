/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the identity service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the JSON logger
  3. Resolve the annual leave policy
  4. Initialize SQLite store
  5. Create identity service and API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (APP_PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: identity.db)
           Use ":memory:" for in-memory database
  -seed    Load a demo scenario at startup (e.g. "small-team")

ENVIRONMENT:
  APP_PORT, APP_ENV, LOG_LEVEL, DB_PATH, CORS_ALLOWED_ORIGINS
  LEAVE_POLICY_FILE or CASUAL_LEAVE / SICK_LEAVE

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/identity.db"

  # In-memory database with demo users
  ./server -db=":memory:" -seed=small-team

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/identity-engine/api"
	"github.com/warp/identity-engine/config"
	"github.com/warp/identity-engine/factory"
	"github.com/warp/identity-engine/identity"
	"github.com/warp/identity-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	seed := flag.String("seed", "", "Demo scenario to load at startup")
	flag.Parse()

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := api.NewLogger(os.Stdout, level, cfg.App.Env)
	slog.SetDefault(logger)

	policy, err := factory.NewPolicyFactory().Resolve(cfg.Leave.PolicyFile, cfg.Leave.Casual, cfg.Leave.Sick)
	if err != nil {
		return err
	}
	logger.Info("leave policy",
		slog.String("casual_leave", policy.AnnualCasualLeave.String()),
		slog.String("sick_leave", policy.AnnualSickLeave.String()),
	)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	svc := identity.NewService(store, policy, identity.WithLogger(logger))
	handler := api.NewHandler(svc, store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	if *seed != "" {
		if err := handler.ApplyScenario(context.Background(), *seed); err != nil {
			return err
		}
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.Int("port", *port), slog.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
