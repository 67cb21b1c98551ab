package depreciation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/depreciation/store"
)

func at(hour int) time.Time {
	return time.Date(2026, time.January, 5, hour, 0, 0, 0, time.UTC)
}

func recordFor(asset depreciation.AssetID, id string, created time.Time) depreciation.Record {
	return depreciation.Record{
		ID:              depreciation.RecordID(id),
		AssetID:         asset,
		AcquisitionCost: dec("1000"),
		Method:          depreciation.MethodStraightLine,
		UsefulLifeYears: 1,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func seed(t *testing.T, mem *store.Memory, records ...depreciation.Record) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, mem.InsertRecord(context.Background(), r))
	}
}

func TestReconcile_KeepsLatestOfThree(t *testing.T) {
	// GIVEN: three records for one asset created at T1 < T2 < T3
	// WHEN: the reconciler runs
	// THEN: two are removed and the T3 record survives

	mem := store.NewMemory()
	seed(t, mem,
		recordFor("asset-a", "r1", at(1)),
		recordFor("asset-a", "r2", at(2)),
		recordFor("asset-a", "r3", at(3)),
	)

	report, err := depreciation.NewReconciler(mem).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, depreciation.ReconcileReport{Scanned: 3, Groups: 1, Removed: 2}, report)

	active, err := mem.FindByAsset(context.Background(), "asset-a")
	require.NoError(t, err)
	assert.Equal(t, depreciation.RecordID("r3"), active.ID)
	assert.Equal(t, 1, mem.Len())
}

func TestReconcile_SingleRecordUntouched(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, recordFor("asset-a", "r1", at(1)))

	report, err := depreciation.NewReconciler(mem).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, 1, mem.Len())
}

func TestReconcile_MultipleAssets(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem,
		recordFor("asset-a", "a1", at(1)),
		recordFor("asset-a", "a2", at(4)),
		recordFor("asset-b", "b1", at(2)),
		recordFor("asset-c", "c1", at(6)),
		recordFor("asset-c", "c2", at(5)),
	)

	report, err := depreciation.NewReconciler(mem).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 2, report.Removed)

	ctx := context.Background()
	for asset, want := range map[depreciation.AssetID]depreciation.RecordID{
		"asset-a": "a2", "asset-b": "b1", "asset-c": "c1",
	} {
		rec, err := mem.FindByAsset(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, want, rec.ID, string(asset))
	}
}

func TestSelectDuplicates_TieBreaksOnLargestID(t *testing.T) {
	ids := depreciation.SelectDuplicates([]depreciation.Record{
		recordFor("asset-a", "r-b", at(3)),
		recordFor("asset-a", "r-c", at(3)),
		recordFor("asset-a", "r-a", at(3)),
	})
	assert.Equal(t, []depreciation.RecordID{"r-a", "r-b"}, ids)

	assert.Empty(t, depreciation.SelectDuplicates(nil))
}

// racingStore inserts a newer duplicate right after the scan, the way a
// concurrent EnsureInitial would.
type racingStore struct {
	*store.Memory
	late depreciation.Record
}

func (s *racingStore) ListRecords(ctx context.Context) ([]depreciation.Record, error) {
	records, err := s.Memory.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	return records, s.Memory.InsertRecord(ctx, s.late)
}

func TestReconcile_IgnoresRecordsWrittenAfterScan(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem,
		recordFor("asset-a", "r1", at(1)),
		recordFor("asset-a", "r2", at(2)),
	)
	racing := &racingStore{Memory: mem, late: recordFor("asset-a", "r3", at(3))}

	report, err := depreciation.NewReconciler(racing).Reconcile(context.Background())
	require.NoError(t, err)

	// Only r1 was a duplicate at scan time; r2 and the late r3 both remain.
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 2, mem.Len())

	// The next run converges.
	_, err = depreciation.NewReconciler(mem).Reconcile(context.Background())
	require.NoError(t, err)
	active, _ := mem.FindByAsset(context.Background(), "asset-a")
	assert.Equal(t, depreciation.RecordID("r3"), active.ID)
	assert.Equal(t, 1, mem.Len())
}

func TestReconcile_StoreFault(t *testing.T) {
	records := new(MockRecordStore)
	records.On("ListRecords", mock.Anything).Return(nil, errDiskGone)

	_, err := depreciation.NewReconciler(records).Reconcile(context.Background())
	assert.True(t, depreciation.IsUnavailable(err))
	records.AssertNotCalled(t, "DeleteRecords", mock.Anything, mock.Anything)
}
