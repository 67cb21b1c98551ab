/*
reconciler.go - Batch cleanup of duplicate depreciation records

ALGORITHM:
  1. Scan every record once.
  2. Group by AssetID.
  3. In each group with more than one member keep the latest CreatedAt
     (largest ID on ties) and delete the others by ID.

CONCURRENCY:
  Deletions target the IDs captured by the scan, so a record inserted after
  the scan is never considered. No lock is taken; the job is advisory
  maintenance run out-of-band (see api/scheduler.go and cmd/maintenance).
*/
package depreciation

import (
	"context"
	"log"
	"sort"
)

// ReconcileReport summarizes one Reconcile run.
type ReconcileReport struct {
	Scanned int // records read
	Groups  int // assets with duplicates
	Removed int // records deleted
}

// Reconciler enforces one record per asset.
type Reconciler struct {
	Records RecordStore
}

func NewReconciler(records RecordStore) *Reconciler {
	return &Reconciler{Records: records}
}

// Reconcile deletes every record that is not the newest of its asset.
func (rc *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	records, err := rc.Records.ListRecords(ctx)
	if err != nil {
		return report, storageErr("list records", err)
	}
	report.Scanned = len(records)

	doomed, groups := selectDuplicates(records)
	report.Groups = groups
	if len(doomed) == 0 {
		return report, nil
	}

	removed, err := rc.Records.DeleteRecords(ctx, doomed)
	if err != nil {
		return report, storageErr("delete records", err)
	}
	report.Removed = removed

	log.Printf("[Reconciler] Removed %d duplicate records across %d assets", removed, groups)
	return report, nil
}

// SelectDuplicates returns the IDs Reconcile would delete for records.
func SelectDuplicates(records []Record) []RecordID {
	ids, _ := selectDuplicates(records)
	return ids
}

func selectDuplicates(records []Record) ([]RecordID, int) {
	byAsset := make(map[AssetID][]Record)
	for _, r := range records {
		byAsset[r.AssetID] = append(byAsset[r.AssetID], r)
	}

	var doomed []RecordID
	groups := 0
	for _, group := range byAsset {
		if len(group) < 2 {
			continue
		}
		groups++
		sort.Slice(group, func(i, j int) bool { return newer(group[i], group[j]) })
		for _, r := range group[1:] {
			doomed = append(doomed, r.ID)
		}
	}

	sort.Slice(doomed, func(i, j int) bool { return doomed[i] < doomed[j] })
	return doomed, groups
}

// newer orders records by CreatedAt, then ID, both descending.
func newer(a, b Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Newest returns the record FindByAsset implementations should treat as
// active, or nil for an empty slice.
func Newest(records []Record) *Record {
	if len(records) == 0 {
		return nil
	}
	best := records[0]
	for _, r := range records[1:] {
		if newer(r, best) {
			best = r
		}
	}
	return &best
}
