/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SLA compliance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment configuration
  2. Initialize logging
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT env)
  -db      SQLite database path (overrides DB_PATH env)
           Use ":memory:" for an in-memory database
  -v       Verbose (debug) logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/sla.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  PORT, DB_PATH, DATA_PATH, LOGS_FOLDER, VERBOSE,
  WORK_WINDOW_START, WORK_WINDOW_END (see config package). A .env file
  in the working directory is loaded when present.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Settings persistence
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/warp/sla-engine/api"
	"github.com/warp/sla-engine/config"
	"github.com/warp/sla-engine/engine"
	"github.com/warp/sla-engine/logging"
	"github.com/warp/sla-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	verbose := flag.Bool("v", cfg.Verbose, "verbose logging")
	flag.Parse()

	logging.Init(*verbose, cfg.LogDir)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)

	// Load the persisted report configuration
	if err := handler.LoadConfig(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to load stored configuration")
	}

	// Env window override beats the stored config
	if cfg.WindowStart != "" && cfg.WindowEnd != "" {
		window, err := parseWindow(cfg.WindowStart, cfg.WindowEnd)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid WORK_WINDOW_START/WORK_WINDOW_END")
		}
		handler.SetWindow(window)
	}

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func parseWindow(start, end string) (engine.WorkWindow, error) {
	s, err := engine.ParseDayTime(start)
	if err != nil {
		return engine.WorkWindow{}, err
	}
	e, err := engine.ParseDayTime(end)
	if err != nil {
		return engine.WorkWindow{}, err
	}
	w := engine.WorkWindow{Start: s, End: e}
	if !w.DailyHours().IsPositive() {
		return engine.WorkWindow{}, fmt.Errorf("window ends before it starts")
	}
	return w, nil
}
