/*
Package depreciation provides the depreciation engine for fleet assets.

PURPOSE:
  Computes and maintains a per-machine amortization schedule. The engine
  classifies an asset into a statutory usage class, picks a depreciation
  method, generates a year-by-year table and keeps exactly one active
  record per asset in the store.

KEY CONCEPTS IN THIS FILE (types.go):
  - Asset: read-only view of a machinery record (owned by the fleet package)
  - AmortizationEntry: one year of the schedule
  - Record: the persisted depreciation record with its schedule
  - AssetID/RecordID: opaque store identifiers

PIPELINE:
  Asset -> Classify -> (usage class, useful life) -> Strategy -> schedule
        -> Manager persists/updates the Record -> Reconciler enforces uniqueness

PRECISION:
  All money is decimal.Decimal. Amounts are rounded to 2 places when a
  schedule is emitted and are never re-rounded on read.

SEE ALSO:
  - classifier.go: usage class table
  - method.go: depreciation strategies
  - lifecycle.go: Manager (create, backfill, recompute)
  - reconciler.go: duplicate cleanup
*/
package depreciation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AssetID string
type RecordID string

// ParseAssetID validates the string form of an asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", &ValidationError{Field: "maquinaria", Message: "invalid asset id " + quote(s)}
	}
	return AssetID(s), nil
}

// NewRecordID generates a fresh record identifier.
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}

// =============================================================================
// ASSET - What the engine reads from a machinery record
// =============================================================================

// Asset is the subset of a machinery record the engine depends on.
type Asset struct {
	ID            AssetID
	Category      string
	Detail        string
	Cost          decimal.Decimal
	ResidualValue decimal.Decimal
	Method        string

	// UsefulLifeYears overrides the classifier when positive.
	UsefulLifeYears int

	// PurchaseDate is zero when the asset has no valid registration date.
	PurchaseDate time.Time
}

// =============================================================================
// SCHEDULE
// =============================================================================

// AmortizationEntry is one year of an amortization table.
type AmortizationEntry struct {
	Year                    int             `json:"year"`
	AnnualDepreciation      decimal.Decimal `json:"annual_depreciation_amount"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal `json:"book_value"`
}

// =============================================================================
// RECORD - Persisted depreciation record
// =============================================================================

// AutoGeneratedNote tags records created by backfill rather than by a user.
const AutoGeneratedNote = "schedule generated automatically"

// Record is the depreciation record for one asset.
// Invariant: len(Schedule) == UsefulLifeYears, and at most one active
// record per AssetID once the Reconciler has run.
type Record struct {
	ID              RecordID
	AssetID         AssetID
	AcquisitionCost decimal.Decimal
	ResidualValue   decimal.Decimal
	PurchaseDate    time.Time
	Method          Method
	UsefulLifeYears int
	UsageClass      string
	Schedule        []AmortizationEntry
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AnnualDepreciation returns the first year's amount, zero for an empty schedule.
func (r Record) AnnualDepreciation() decimal.Decimal {
	if len(r.Schedule) == 0 {
		return decimal.Zero
	}
	return r.Schedule[0].AnnualDepreciation
}

// BookValueAt returns the book value at the end of the given year.
// Years before the schedule return the acquisition cost; years after it
// return the final book value.
func (r Record) BookValueAt(year int) decimal.Decimal {
	value := r.AcquisitionCost
	for _, e := range r.Schedule {
		if e.Year > year {
			break
		}
		value = e.BookValue
	}
	return value
}

func quote(s string) string {
	return `"` + s + `"`
}
