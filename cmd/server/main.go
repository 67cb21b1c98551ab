/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fleet asset server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the duplicate reconciliation scheduler
  5. Configure HTTP router
  6. Start server with graceful shutdown

DEGRADED MODE:
  If the database cannot be opened the server still starts. /api/health and
  every storage-backed route answer 503 until it is restarted with a
  working database.

COMMAND-LINE FLAGS (override environment, see config/config.go):
  -port                HTTP server port (PORT, default: 8080)
  -db                  SQLite database path (DB_PATH, default: fleet.db)
                       Use ":memory:" for in-memory database
  -reconcile           Run the background reconciler (RECONCILE_ENABLED)
  -reconcile-interval  Reconciler period (RECONCILE_INTERVAL, default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/fleet-assets/api"
	"github.com/warp/fleet-assets/config"
	"github.com/warp/fleet-assets/store/sqlite"
)

func main() {
	cfg := config.Load()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Printf("Warning: Failed to initialize database, serving 503: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	// Initialize handler
	handler := api.NewHandler(store)
	handler.ExpiryWindow = cfg.ExpiryWindow()

	// Start reconciliation scheduler
	var scheduler *api.ReconciliationScheduler
	if store != nil {
		scheduler = api.NewReconciliationScheduler(store, handler.Reconciler)
		scheduler.CheckInterval = cfg.ReconcileInterval
		scheduler.Enabled = cfg.ReconcileEnabled
		scheduler.Start()
	}

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
