/*
main.go - Out-of-band maintenance for depreciation records

PURPOSE:
  Batch entry point run from cron or by hand against the server's database.

COMMAND-LINE FLAGS:
  -db         SQLite database path (DB_PATH, default: fleet.db)
  -backfill   Generate the initial schedule for every machine without one
  -reconcile  Remove duplicate records, keeping the newest per machine

  With neither -backfill nor -reconcile, both run (backfill first).

OUTPUT:
  One summary line per task; the reconcile line ends with the removed count.
  Exit status is 1 on any storage failure.

EXAMPLES:
  ./maintenance -db=./data/fleet.db -reconcile
  ./maintenance -backfill
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/warp/fleet-assets/api"
	"github.com/warp/fleet-assets/config"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/store/sqlite"
)

func main() {
	cfg := config.Load()
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	backfill := flag.Bool("backfill", false, "generate missing depreciation schedules")
	reconcile := flag.Bool("reconcile", false, "remove duplicate depreciation records")
	flag.Parse()

	if !*backfill && !*reconcile {
		*backfill, *reconcile = true, true
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := run(context.Background(), store, *backfill, *reconcile); err != nil {
		log.Printf("Maintenance failed: %v", err)
		store.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, store *sqlite.Store, backfill, reconcile bool) error {
	if backfill {
		report, err := depreciation.NewManager(store, store).Backfill(ctx)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		fmt.Printf("backfill: %d machines, %d created, %d already present, %d failed\n",
			report.Assets, report.Created, report.Skipped, report.Failed)
	}

	if reconcile {
		result, err := api.RunReconciliation(ctx, store, depreciation.NewReconciler(store))
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		fmt.Printf("reconcile: %d records scanned, %d machines with duplicates, removed %d\n",
			result.Scanned, result.Groups, result.Removed)
	}
	return nil
}
