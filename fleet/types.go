/*
Package fleet holds the machinery records and their sub-records.

PURPOSE:
  Machinery is the asset of record. Its sub-records (control history,
  assignment acts, maintenance, insurance, vehicle inspection, tax) are plain
  dated documents kept per machine. The depreciation engine reads machinery
  through Machinery.Asset().

RECORD KINDS:
  RecordKind is a closed set. Each kind maps to exactly one collection name;
  unknown kinds are rejected at the edge by ParseRecordKind.

SEE ALSO:
  - forecast.go: maintenance forecast and expiry reminders
  - store/sqlite/sqlite.go: persistence
*/
package fleet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-assets/depreciation"
)

var (
	ErrUnknownKind = errors.New("unknown record kind")
	ErrInvalid     = errors.New("invalid fleet record")
)

// =============================================================================
// MACHINERY
// =============================================================================

type Machinery struct {
	ID              string
	Code            string
	Type            string // free-text category, e.g. "Volqueta"
	Detail          string
	Brand           string
	Model           string
	Plate           string
	Year            int
	Cost            decimal.Decimal
	ResidualValue   decimal.Decimal
	Method          string
	UsefulLifeYears int
	PurchaseDate    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields every machinery record needs.
func (m Machinery) Validate() error {
	switch {
	case strings.TrimSpace(m.Type) == "":
		return fmt.Errorf("%w: tipo is required", ErrInvalid)
	case m.Cost.IsNegative():
		return fmt.Errorf("%w: costo_activo must not be negative", ErrInvalid)
	case m.ResidualValue.IsNegative():
		return fmt.Errorf("%w: valor_residual must not be negative", ErrInvalid)
	case m.UsefulLifeYears < 0:
		return fmt.Errorf("%w: vida_util must not be negative", ErrInvalid)
	}
	return nil
}

// Asset projects the machinery onto the view the depreciation engine reads.
func (m Machinery) Asset() depreciation.Asset {
	return depreciation.Asset{
		ID:              depreciation.AssetID(m.ID),
		Category:        m.Type,
		Detail:          m.Detail,
		Cost:            m.Cost,
		ResidualValue:   m.ResidualValue,
		Method:          m.Method,
		UsefulLifeYears: m.UsefulLifeYears,
		PurchaseDate:    m.PurchaseDate,
	}
}

// DepreciationInputsChanged reports whether an edit from m to next affects
// the depreciation schedule.
func (m Machinery) DepreciationInputsChanged(next Machinery) bool {
	return m.Type != next.Type ||
		m.Detail != next.Detail ||
		!m.Cost.Equal(next.Cost) ||
		!m.ResidualValue.Equal(next.ResidualValue) ||
		m.Method != next.Method ||
		m.UsefulLifeYears != next.UsefulLifeYears ||
		!m.PurchaseDate.Equal(next.PurchaseDate)
}

// =============================================================================
// RECORD KINDS
// =============================================================================

type RecordKind string

const (
	KindControl     RecordKind = "control"
	KindAssignment  RecordKind = "asignacion"
	KindMaintenance RecordKind = "mantenimiento"
	KindInsurance   RecordKind = "seguro"
	KindInspection  RecordKind = "itv"
	KindTax         RecordKind = "impuesto"
)

var collections = map[RecordKind]string{
	KindControl:     "control",
	KindAssignment:  "actas_asignacion",
	KindMaintenance: "mantenimientos",
	KindInsurance:   "seguros",
	KindInspection:  "itv",
	KindTax:         "impuestos",
}

// Kinds returns every record kind in a stable order.
func Kinds() []RecordKind {
	return []RecordKind{KindControl, KindAssignment, KindMaintenance, KindInsurance, KindInspection, KindTax}
}

// Collection is the storage collection for the kind.
func (k RecordKind) Collection() string {
	return collections[k]
}

// HasExpiry is true for kinds whose documents lapse (policies, inspections, tax).
func (k RecordKind) HasExpiry() bool {
	return k == KindInsurance || k == KindInspection || k == KindTax
}

// ParseRecordKind accepts a kind or its collection name.
func ParseRecordKind(s string) (RecordKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, c := range collections {
		if s == string(k) || s == c {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// =============================================================================
// SUB-RECORDS
// =============================================================================

// SubRecord is a dated document attached to one machine.
type SubRecord struct {
	ID          string
	Kind        RecordKind
	MachineryID string
	Date        time.Time
	ExpiresAt   *time.Time
	Description string
	Amount      decimal.Decimal
	Responsible string
	Fields      map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r SubRecord) Validate() error {
	if _, ok := collections[r.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if r.MachineryID == "" {
		return fmt.Errorf("%w: maquinaria is required", ErrInvalid)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: fecha is required", ErrInvalid)
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(r.Date) {
		return fmt.Errorf("%w: vencimiento is before fecha", ErrInvalid)
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("%w: monto must not be negative", ErrInvalid)
	}
	return nil
}
