/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the AlphaRise coin engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and config file
  2. Initialize SQLite store
  3. Create domain managers and API handler
  4. Start the allocation scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config file path (optional, defaults apply)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/coins.db"

  # Run with a config file
  ./server -config=./coin-engine.toml

SEE ALSO:
  - config/config.go: File format and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alpharise/coin-engine/api"
	"github.com/alpharise/coin-engine/coach"
	"github.com/alpharise/coin-engine/config"
	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/qa"
	"github.com/alpharise/coin-engine/recommend"
	"github.com/alpharise/coin-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Domain managers
	eco := economy.NewManager(store)
	forum := qa.NewManager(eco)

	// Coach is optional: without an API key the endpoint returns 503.
	var coachClient *coach.Client
	if cfg.Coach.APIKey != "" {
		coachClient = coach.New(coach.Config{
			APIURL:    cfg.Coach.APIURL,
			APIKey:    cfg.Coach.APIKey,
			Model:     cfg.Coach.Model,
			MaxTokens: cfg.Coach.MaxTokens,
		})
	} else {
		log.Println("[Main] No coach API key configured, coach endpoint disabled")
	}

	handler := api.NewHandler(eco, forum, recommend.NewEngine(), coachClient)
	router := api.NewRouter(handler, cfg.API.AllowedOrigins)

	// Allocation scheduler
	interval, err := cfg.Scheduler.Interval()
	if err != nil {
		log.Fatalf("Invalid scheduler config: %v", err)
	}
	scheduler := api.NewAllocationScheduler(store, eco)
	scheduler.CheckInterval = interval
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://%s:%d", cfg.API.Host, cfg.API.Port)
		log.Printf("API available at http://%s:%d/api", cfg.API.Host, cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
