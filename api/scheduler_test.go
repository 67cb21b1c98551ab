package api

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-assets/depreciation"
)

func insertDuplicate(t *testing.T, h *Handler, assetID depreciation.AssetID, createdAt time.Time) {
	t.Helper()
	require.NoError(t, h.Store.InsertRecord(context.Background(), depreciation.Record{
		ID:              depreciation.NewRecordID(),
		AssetID:         assetID,
		AcquisitionCost: decimal.NewFromInt(10000),
		Method:          depreciation.MethodStraightLine,
		UsageClass:      depreciation.DefaultUsageClass,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}))
}

func TestScheduler_RunsOnceOnStart(t *testing.T) {
	h, _ := newTestServer(t)
	m := saveBareMachine(t, h)
	insertDuplicate(t, h, depreciation.AssetID(m.ID), testNow)
	insertDuplicate(t, h, depreciation.AssetID(m.ID), testNow.Add(time.Minute))

	// GIVEN: A scheduler with an interval far longer than the test
	s := NewReconciliationScheduler(h.Store, h.Reconciler)
	s.CheckInterval = time.Hour

	// WHEN: It starts and stops
	s.Start()
	s.Stop()

	// THEN: The immediate run removed the older record and was recorded
	runs, err := h.Store.ListReconciliationRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 1, runs[0].Removed)
	assert.NotNil(t, runs[0].CompletedAt)

	records, err := h.Store.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CreatedAt.Equal(testNow.Add(time.Minute)))
}

func TestScheduler_Disabled(t *testing.T) {
	h, _ := newTestServer(t)

	s := NewReconciliationScheduler(h.Store, h.Reconciler)
	s.Enabled = false
	s.Start()
	s.Stop()

	runs, err := h.Store.ListReconciliationRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestScheduler_Restart(t *testing.T) {
	h, _ := newTestServer(t)

	s := NewReconciliationScheduler(h.Store, h.Reconciler)
	s.CheckInterval = time.Hour
	s.Start()
	s.Start() // already running
	s.Stop()
	s.Start()
	s.Stop()

	runs, err := h.Store.ListReconciliationRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestScheduler_RunNow(t *testing.T) {
	h, _ := newTestServer(t)

	s := NewReconciliationScheduler(h.Store, h.Reconciler)
	run, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Zero(t, run.Removed)
	assert.True(t, s.GetNextRunTime().After(time.Now()))
}
