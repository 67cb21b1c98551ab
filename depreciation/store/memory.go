// Package store provides in-memory implementations of the depreciation
// persistence interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/fleet-assets/depreciation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements depreciation.RecordStore and depreciation.AssetProvider.
// Like the SQLite store it does not enforce one record per asset.
type Memory struct {
	mu      sync.RWMutex
	records map[depreciation.RecordID]depreciation.Record
	assets  map[depreciation.AssetID]depreciation.Asset
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[depreciation.RecordID]depreciation.Record),
		assets:  make(map[depreciation.AssetID]depreciation.Asset),
	}
}

// SaveAsset inserts or replaces an asset.
func (m *Memory) SaveAsset(a depreciation.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.ID] = a
}

func (m *Memory) GetAsset(_ context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// ListAssets returns assets ordered by ID.
func (m *Memory) ListAssets(_ context.Context) ([]depreciation.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]depreciation.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) FindByAsset(_ context.Context, assetID depreciation.AssetID) (*depreciation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []depreciation.Record
	for _, r := range m.records {
		if r.AssetID == assetID {
			matches = append(matches, r)
		}
	}
	newest := depreciation.Newest(matches)
	if newest != nil {
		newest.Schedule = cloneSchedule(newest.Schedule)
	}
	return newest, nil
}

// ListRecords returns all records ordered by CreatedAt, then ID.
func (m *Memory) ListRecords(_ context.Context) ([]depreciation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]depreciation.Record, 0, len(m.records))
	for _, r := range m.records {
		r.Schedule = cloneSchedule(r.Schedule)
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) InsertRecord(_ context.Context, rec depreciation.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Schedule = cloneSchedule(rec.Schedule)
	m.records[rec.ID] = rec
	return nil
}

// UpdateRecord replaces an existing record. Updating a missing ID is a no-op.
func (m *Memory) UpdateRecord(_ context.Context, rec depreciation.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; !ok {
		return nil
	}
	rec.Schedule = cloneSchedule(rec.Schedule)
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) DeleteRecords(_ context.Context, ids []depreciation.RecordID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored records, duplicates included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cloneSchedule(s []depreciation.AmortizationEntry) []depreciation.AmortizationEntry {
	if s == nil {
		return nil
	}
	out := make([]depreciation.AmortizationEntry, len(s))
	copy(out, s)
	return out
}
