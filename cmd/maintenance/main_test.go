package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/fleet"
	"github.com/warp/fleet-assets/store/sqlite"
)

func TestRun_BackfillThenReconcile(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	// GIVEN: Two machines without schedules and one machine with duplicates
	for _, code := range []string{"VOL-01", "CAM-01"} {
		require.NoError(t, store.SaveMachinery(ctx, fleet.Machinery{
			ID:           uuid.NewString(),
			Code:         code,
			Type:         "Volqueta",
			Cost:         decimal.NewFromInt(50000),
			PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}))
	}
	dupAsset := depreciation.AssetID(uuid.NewString())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, store.InsertRecord(ctx, depreciation.Record{
			ID:              depreciation.NewRecordID(),
			AssetID:         dupAsset,
			AcquisitionCost: decimal.NewFromInt(100),
			Method:          depreciation.MethodStraightLine,
			UsageClass:      depreciation.DefaultUsageClass,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:       base,
		}))
	}

	// WHEN: Both tasks run
	require.NoError(t, run(ctx, store, true, true))

	// THEN: Each machine has one record and the duplicate is gone
	records, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	runs, err := store.ListReconciliationRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Removed)

	// Running again changes nothing.
	require.NoError(t, run(ctx, store, true, true))
	records, err = store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
