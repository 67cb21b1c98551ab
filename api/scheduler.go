/*
scheduler.go - Automated duplicate reconciliation

PURPOSE:
  Record creation is not locked per machine, so concurrent creates can leave
  two depreciation records for one asset. The scheduler periodically runs the
  depreciation Reconciler so that at most one record per asset survives.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Records every run (running -> completed/failed) for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour, RECONCILE_INTERVAL)
  - Enabled: Whether scheduler is active (default: true, RECONCILE_ENABLED)

USAGE:
  scheduler := NewReconciliationScheduler(store, reconciler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReconciliation endpoint (manual run)
  - depreciation/reconciler.go: Reconciler
  - cmd/maintenance: out-of-band run
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/store/sqlite"
)

// ReconciliationScheduler runs the duplicate reconciler on a ticker.
type ReconciliationScheduler struct {
	Store         *sqlite.Store
	Reconciler    *depreciation.Reconciler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(store *sqlite.Store, reconciler *depreciation.Reconciler) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Store:         store,
		Reconciler:    reconciler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan bool)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight run.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) checkAndProcess() {
	run, err := RunReconciliation(context.Background(), rs.Store, rs.Reconciler)
	if err != nil {
		log.Printf("[Scheduler] Reconciliation %s failed: %v", run.ID, err)
		return
	}
	if run.Removed > 0 {
		log.Printf("[Scheduler] Completed: %d duplicates removed across %d assets", run.Removed, run.Groups)
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (rs *ReconciliationScheduler) RunNow() (sqlite.ReconciliationRun, error) {
	return RunReconciliation(context.Background(), rs.Store, rs.Reconciler)
}

// GetNextRunTime returns when the next scheduled run will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}

// RunReconciliation executes one reconciler pass and records it as a
// ReconciliationRun. The returned run reflects the final stored state.
func RunReconciliation(ctx context.Context, store *sqlite.Store, reconciler *depreciation.Reconciler) (sqlite.ReconciliationRun, error) {
	run := sqlite.ReconciliationRun{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	if err := store.SaveReconciliationRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	report, err := reconciler.Reconcile(ctx)
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Scanned = report.Scanned
	run.Groups = report.Groups
	run.Removed = report.Removed

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		if saveErr := store.SaveReconciliationRun(ctx, run); saveErr != nil {
			log.Printf("[Scheduler] Failed to record failed run %s: %v", run.ID, saveErr)
		}
		return run, err
	}

	run.Status = "completed"
	if err := store.SaveReconciliationRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to update run record: %w", err)
	}
	return run, nil
}
