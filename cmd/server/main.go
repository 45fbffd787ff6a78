/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the advance tax server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Configure logging
  3. Initialize SQLite store
  4. Create engine, estimate service and API handler
  5. Start the recalculation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: $PORT or 8080)
  -db        SQLite database path (default: $DB_PATH or advtax.db)
             Use ":memory:" for in-memory database
  -recalc    Recalculation interval, 0 disables (default: $RECALC_INTERVAL or 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for an in-flight pass)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/advtax.db"

  # Run with in-memory database and no scheduler
  ./server -db=":memory:" -recalc=0

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  PORT, DB_PATH, RECALC_INTERVAL, CORS_ORIGINS,
  LOG_LEVEL, LOG_FORMAT, LOG_TIME_FORMAT, LOG_OUTPUT

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/api"
	"github.com/warp/advance-tax/config"
	"github.com/warp/advance-tax/estimate"
	"github.com/warp/advance-tax/logger"
	"github.com/warp/advance-tax/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	recalc := flag.Duration("recalc", cfg.RecalcInterval, "Recalculation interval (0 disables)")
	flag.Parse()

	logCloser, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize service and handler
	engine := advancetax.NewEngine(advancetax.SystemClock)
	service := estimate.NewService(store, engine, logger.WithComponent("estimate"))
	metrics := api.NewMetrics()

	handler := api.NewHandler(service, store, metrics, logger.GetLogger())

	scheduler := api.NewRecalculationScheduler(service, store, metrics, logger.GetLogger())
	scheduler.CheckInterval = *recalc
	scheduler.Enabled = *recalc > 0
	handler.Scheduler = scheduler

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler.Start()

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("db", *dbPath).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
