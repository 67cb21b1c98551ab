/*
lifecycle.go - Creation, backfill and recomputation of depreciation records

OPERATIONS:
  EnsureInitial: idempotent init/backfill. No-op when a record exists.
  Create:        user-driven creation with explicit cost/date/method/life.
  Recompute:     regenerate the schedule of an existing record in place.
  Get:           active record for an asset.
  Backfill:      EnsureInitial over every asset.

CREATE vs RECOMPUTE:
  The two are distinct on purpose. Recompute never creates and EnsureInitial
  never overwrites; callers pick one so the audit trail shows which happened.

CONCURRENCY:
  No in-process locking. Concurrent EnsureInitial calls for the same asset
  may both insert; the Reconciler removes the extra record. Concurrent
  Recompute calls are last-writer-wins, which is safe because the schedule is
  derived only from the asset's current attributes.
*/
package depreciation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for purchase dates.
const DateLayout = "2006-01-02"

// Manager orchestrates record lifecycle against a RecordStore.
type Manager struct {
	Records RecordStore
	Assets  AssetProvider

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() RecordID
}

// NewManager creates a Manager with the wall clock and uuid identifiers.
func NewManager(records RecordStore, assets AssetProvider) *Manager {
	return &Manager{
		Records: records,
		Assets:  assets,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   NewRecordID,
	}
}

// CreateInput is the user-driven creation request.
type CreateInput struct {
	AssetID         string
	Cost            decimal.Decimal
	PurchaseDate    string // YYYY-MM-DD, empty to use the asset's date
	Method          string
	UsefulLifeYears int // 0 to use the asset override or the classifier
}

// BackfillReport summarizes a Backfill run.
type BackfillReport struct {
	Assets  int
	Created int
	Skipped int
	Failed  int
}

// =============================================================================
// OPERATIONS
// =============================================================================

// EnsureInitial creates the asset's first record if it has none. When a
// record already exists it is returned unchanged with created=false.
// New records carry AutoGeneratedNote.
func (m *Manager) EnsureInitial(ctx context.Context, asset Asset) (rec *Record, created bool, err error) {
	if err := validateAsset(asset); err != nil {
		return nil, false, err
	}

	existing, err := m.Records.FindByAsset(ctx, asset.ID)
	if err != nil {
		return nil, false, storageErr("find record", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	r, err := m.build(asset, asset.Cost, asset.PurchaseDate, asset.Method, asset.UsefulLifeYears)
	if err != nil {
		return nil, false, err
	}
	r.Note = AutoGeneratedNote

	if err := m.Records.InsertRecord(ctx, r); err != nil {
		return nil, false, storageErr("insert record", err)
	}

	log.Printf("[Depreciation] Generated schedule for asset %s: %s, %s, %d years",
		asset.ID, r.UsageClass, r.Method, r.UsefulLifeYears)
	return &r, true, nil
}

// Create persists a record from explicit user input. It fails with
// ErrRecordExists when the asset already has one.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Record, error) {
	assetID, err := ParseAssetID(in.AssetID)
	if err != nil {
		return nil, err
	}
	if !in.Cost.IsPositive() {
		return nil, &ValidationError{Field: "costo_activo", Message: "must be greater than zero"}
	}
	if in.UsefulLifeYears < 0 {
		return nil, &ValidationError{Field: "vida_util", Message: "must not be negative"}
	}

	var purchase time.Time
	if in.PurchaseDate != "" {
		purchase, err = time.Parse(DateLayout, in.PurchaseDate)
		if err != nil {
			return nil, &ValidationError{Field: "fecha_compra", Message: "expected YYYY-MM-DD, got " + quote(in.PurchaseDate)}
		}
	}

	asset, err := m.Assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, storageErr("get asset", err)
	}
	if asset == nil {
		return nil, &NotFoundError{Kind: "asset", ID: string(assetID)}
	}

	existing, err := m.Records.FindByAsset(ctx, assetID)
	if err != nil {
		return nil, storageErr("find record", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: asset %s (record %s)", ErrRecordExists, assetID, existing.ID)
	}

	if purchase.IsZero() {
		purchase = asset.PurchaseDate
	}
	life := in.UsefulLifeYears
	if life == 0 {
		life = asset.UsefulLifeYears
	}

	r, err := m.build(*asset, in.Cost, purchase, in.Method, life)
	if err != nil {
		return nil, err
	}
	if err := m.Records.InsertRecord(ctx, r); err != nil {
		return nil, storageErr("insert record", err)
	}
	return &r, nil
}

// Recompute regenerates the schedule of the asset's existing record from the
// asset's current attributes. The schedule is replaced, never appended to.
func (m *Manager) Recompute(ctx context.Context, asset Asset) (*Record, error) {
	if err := validateAsset(asset); err != nil {
		return nil, err
	}

	existing, err := m.Records.FindByAsset(ctx, asset.ID)
	if err != nil {
		return nil, storageErr("find record", err)
	}
	if existing == nil {
		return nil, &NotFoundError{Kind: "record", ID: string(asset.ID)}
	}

	r, err := m.build(asset, asset.Cost, asset.PurchaseDate, asset.Method, asset.UsefulLifeYears)
	if err != nil {
		return nil, err
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	r.Note = existing.Note

	if err := m.Records.UpdateRecord(ctx, r); err != nil {
		return nil, storageErr("update record", err)
	}

	log.Printf("[Depreciation] Recomputed schedule %s for asset %s", r.ID, asset.ID)
	return &r, nil
}

// Get returns the active record for the asset with the given id.
func (m *Manager) Get(ctx context.Context, assetID string) (*Record, error) {
	id, err := ParseAssetID(assetID)
	if err != nil {
		return nil, err
	}

	rec, err := m.Records.FindByAsset(ctx, id)
	if err != nil {
		return nil, storageErr("find record", err)
	}
	if rec == nil {
		return nil, &NotFoundError{Kind: "record", ID: assetID}
	}
	return rec, nil
}

// Backfill runs EnsureInitial for every asset. Assets with invalid data are
// counted as failed and skipped; a store fault aborts the run.
func (m *Manager) Backfill(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport

	assets, err := m.Assets.ListAssets(ctx)
	if err != nil {
		return report, storageErr("list assets", err)
	}
	report.Assets = len(assets)

	for _, a := range assets {
		_, created, err := m.EnsureInitial(ctx, a)
		switch {
		case IsUnavailable(err):
			return report, err
		case err != nil:
			report.Failed++
			log.Printf("[Depreciation] Skipping asset %s: %v", a.ID, err)
		case created:
			report.Created++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateAsset(a Asset) error {
	if a.ID == "" {
		return &ValidationError{Field: "maquinaria", Message: "asset id is required"}
	}
	if !a.Cost.IsPositive() {
		return &ValidationError{Field: "costo_activo", Message: "must be greater than zero"}
	}
	return nil
}

// build classifies the asset and computes a fresh record. lifeOverride wins
// over the classifier when positive; a zero purchase date anchors the
// schedule at the current year.
func (m *Manager) build(asset Asset, cost decimal.Decimal, purchase time.Time, method string, lifeOverride int) (Record, error) {
	if asset.ResidualValue.IsNegative() || asset.ResidualValue.GreaterThan(cost) {
		return Record{}, &ValidationError{Field: "valor_residual", Message: "must be between zero and the acquisition cost"}
	}

	cls := Classify(asset.Category, asset.Detail)
	life := cls.UsefulLifeYears
	if lifeOverride > 0 {
		life = lifeOverride
	}

	now := m.Now()
	startYear := now.Year()
	if !purchase.IsZero() {
		startYear = purchase.Year()
	}

	strategy := StrategyFor(ResolveMethod(method))
	schedule, err := strategy.Schedule(cost, asset.ResidualValue, life, startYear)
	if errors.Is(err, ErrMethodNotImplemented) {
		return Record{}, &ValidationError{Field: "metodo", Message: fmt.Sprintf("%s is not supported", strategy.Method())}
	}
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:              m.NewID(),
		AssetID:         asset.ID,
		AcquisitionCost: cost.Round(hundredths),
		ResidualValue:   asset.ResidualValue.Round(hundredths),
		PurchaseDate:    purchase,
		Method:          strategy.Method(),
		UsefulLifeYears: life,
		UsageClass:      cls.UsageClass,
		Schedule:        schedule,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
