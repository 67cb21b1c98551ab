/*
store.go - Persistence interfaces consumed by the depreciation engine

KEY INTERFACES:
  RecordStore:   depreciation record persistence (find, list, insert, update, delete)
  AssetProvider: read access to machinery attributes

UNIQUENESS:
  The store is not required to enforce one record per asset. Two concurrent
  EnsureInitial calls for the same asset may both insert; the Reconciler
  collapses the duplicate later. FindByAsset must therefore tolerate
  duplicates and return the most recently created one.

NOT FOUND:
  Lookups return (nil, nil) when nothing matches. Any non-nil error is a
  store fault and is surfaced as StorageUnavailableError.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - depreciation/store/memory.go: in-memory, for tests
*/
package depreciation

import "context"

// RecordStore persists depreciation records.
type RecordStore interface {
	// FindByAsset returns the active record for an asset: the one with the
	// latest CreatedAt (largest ID on ties), or nil.
	FindByAsset(ctx context.Context, assetID AssetID) (*Record, error)

	// ListRecords returns every record, duplicates included.
	ListRecords(ctx context.Context) ([]Record, error)

	// InsertRecord persists a new record.
	InsertRecord(ctx context.Context, rec Record) error

	// UpdateRecord overwrites the record with rec.ID in place.
	UpdateRecord(ctx context.Context, rec Record) error

	// DeleteRecords removes the given records and reports how many existed.
	DeleteRecords(ctx context.Context, ids []RecordID) (int, error)
}

// AssetProvider gives read access to asset attributes.
type AssetProvider interface {
	// GetAsset returns the asset or nil when it does not exist.
	GetAsset(ctx context.Context, id AssetID) (*Asset, error)

	ListAssets(ctx context.Context) ([]Asset, error)
}
