/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the hajj treasury analytics server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Initialize logger, SQLite store and cache
  3. Build agents and the orchestrator
  4. Create API handler and the daily scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  APP_NAME, APP_VERSION, DEBUG, PORT, DB_PATH, REDIS_ADDR, CACHE_TTL,
  DAILY_ANALYSIS_INTERVAL. A .env file in the working directory is read
  first. REDIS_ADDR switches the cache from memory to Redis.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the daily scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close cache and database connections

EXAMPLES:
  ./server -config=./astha.yaml
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration layers
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

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/agents"
	"github.com/astha/treasury-engine/api"
	"github.com/astha/treasury-engine/cache"
	"github.com/astha/treasury-engine/config"
	"github.com/astha/treasury-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	// Initialize cache
	var c cache.Cache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, "astha:")
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rc.Close()
		c = rc
		logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
	} else {
		c = cache.NewMemory()
		logger.Info("using in-memory cache")
	}

	// Agents
	orch := agents.NewOrchestrator(
		agents.NewDataCollector(c, cfg.CacheTTL, store, logger),
		agents.NewLiabilityAnalyst(cfg.Defaults, cfg.Sweep, store, logger),
		agents.NewInvestmentSimulation(cfg.Fund.Assets, cfg.MonteCarlo.Seed, store, logger),
		logger,
	)

	// Initialize handler
	handler := api.NewHandler(cfg, store, c, orch, logger)

	// Start daily analysis
	scheduler := api.NewDailyScheduler(orch, logger)
	scheduler.Interval = cfg.DailyAnalysisInterval
	handler.Scheduler = scheduler
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("app", cfg.AppName),
			zap.String("version", cfg.AppVersion),
			zap.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Port)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
