/*
scenarios.go - Demo fleet loaders for testing and demonstrations

PURPOSE:

	Provides pre-built fleets that populate the database with realistic
	data for demos. Each scenario creates machinery, sub-records and
	depreciation records that exercise one feature.

AVAILABLE SCENARIOS:

	mixed-fleet:         One machine per usage class, all three methods
	maintenance-history: Service history for the forecast plus expiring documents
	duplicate-records:   Machines with duplicate depreciation records for the reconciler

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save machinery
 3. Generate depreciation records through the Manager (or insert
    duplicates directly for the reconciler demo)
 4. Add sub-records dated relative to today

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed-fleet"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: machinery and sub-record handlers
  - scheduler.go: RunReconciliation
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-assets/depreciation"
	memstore "github.com/warp/fleet-assets/depreciation/store"
	"github.com/warp/fleet-assets/fleet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "mixed-fleet",
		Name:        "Mixed Fleet",
		Description: "Trucks, pickups, excavator, generator and tools across every usage class",
	},
	{
		ID:          "maintenance-history",
		Name:        "Maintenance History",
		Description: "Quarterly services for the forecast, plus insurance, inspection and tax about to lapse",
	},
	{
		ID:          "duplicate-records",
		Name:        "Duplicate Records",
		Description: "Concurrent-create leftovers: several depreciation records per machine",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined fleet.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "mixed-fleet":
		load = h.loadMixedFleetScenario
	case "maintenance-history":
		load = h.loadMaintenanceHistoryScenario
	case "duplicate-records":
		load = h.loadDuplicateRecordsScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadMixedFleetScenario(ctx context.Context) error {
	machines := []fleet.Machinery{
		demoMachine("VOL-01", "Volqueta", "Volvo FMX 6x4", "185000", "18500", "lineal", date(2022, 3, 15)),
		demoMachine("CAM-01", "Camioneta", "Toyota Hilux 4x4", "42000", "6000", "saldo decreciente", date(2023, 6, 1)),
		demoMachine("EXC-01", "Maquinaria pesada", "Excavadora CAT 320", "350000", "35000", "suma de digitos", date(2021, 9, 20)),
		demoMachine("GEN-01", "Equipo", "Generador electrógeno 150 kVA", "28000", "2800", "", date(2020, 1, 10)),
		demoMachine("HER-01", "Herramientas", "Martillo neumático", "3500", "0", "lineal", date(2024, 2, 5)),
		demoMachine("OFI-01", "Mobiliario", "Escritorios de obrador", "4800", "480", "lineal", time.Time{}),
	}

	for _, m := range machines {
		if err := h.saveDemoMachine(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMaintenanceHistoryScenario(ctx context.Context) error {
	today := h.Now().Truncate(24 * time.Hour)
	days := func(n int) time.Time { return today.AddDate(0, 0, n) }

	exc := demoMachine("EXC-02", "Maquinaria pesada", "Retroexcavadora JCB 3CX", "120000", "12000", "lineal", days(-720))
	truck := demoMachine("VOL-02", "Volqueta", "Mercedes-Benz Actros", "160000", "16000", "lineal", days(-400))
	for _, m := range []fleet.Machinery{exc, truck} {
		if err := h.saveDemoMachine(ctx, m); err != nil {
			return err
		}
	}

	// Services roughly every 90 days on the excavator, one old service on the truck.
	records := []fleet.SubRecord{
		demoRecord(fleet.KindMaintenance, exc.ID, days(-300), nil, "Service 250 h", "850"),
		demoRecord(fleet.KindMaintenance, exc.ID, days(-210), nil, "Service 500 h", "1200"),
		demoRecord(fleet.KindMaintenance, exc.ID, days(-120), nil, "Service 750 h", "900"),
		demoRecord(fleet.KindMaintenance, exc.ID, days(-30), nil, "Service 1000 h, cambio de filtros", "1500"),
		demoRecord(fleet.KindMaintenance, truck.ID, days(-250), nil, "Cambio de aceite y frenos", "640"),
		demoRecord(fleet.KindInsurance, exc.ID, days(-355), ptr(days(10)), "Póliza todo riesgo", "2400"),
		demoRecord(fleet.KindInspection, truck.ID, days(-370), ptr(days(-5)), "Revisión técnica anual", "180"),
		demoRecord(fleet.KindTax, truck.ID, days(-300), ptr(days(60)), "Patente anual", "950"),
		demoRecord(fleet.KindAssignment, exc.ID, days(-90), nil, "Asignada a obra Ruta 5", "0"),
		demoRecord(fleet.KindControl, truck.ID, days(-7), nil, "Control de neumáticos", "0"),
	}
	records[8].Responsible = "J. Pérez"
	records[9].Fields = map[string]string{"kilometraje": "182400"}

	for _, rec := range records {
		if err := h.Store.SaveSubRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to save %s record: %w", rec.Kind, err)
		}
	}
	return nil
}

func (h *Handler) loadDuplicateRecordsScenario(ctx context.Context) error {
	machines := []fleet.Machinery{
		demoMachine("VOL-03", "Volqueta", "Scania P410", "175000", "17500", "lineal", date(2023, 1, 10)),
		demoMachine("CAM-03", "Camioneta", "Ford Ranger", "38000", "5000", "lineal", date(2024, 4, 22)),
	}

	for i, m := range machines {
		if err := h.Store.SaveMachinery(ctx, m); err != nil {
			return fmt.Errorf("failed to save machinery %s: %w", m.Code, err)
		}

		// Build one record, then store copies a few milliseconds apart as
		// racing EnsureInitial calls would.
		rec, err := h.demoRecordFor(m)
		if err != nil {
			return err
		}
		for n := 0; n < 2+i; n++ {
			dup := rec
			dup.ID = depreciation.NewRecordID()
			dup.CreatedAt = rec.CreatedAt.Add(time.Duration(n) * time.Millisecond)
			dup.UpdatedAt = dup.CreatedAt
			if err := h.Store.InsertRecord(ctx, dup); err != nil {
				return fmt.Errorf("failed to insert record for %s: %w", m.Code, err)
			}
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveDemoMachine(ctx context.Context, m fleet.Machinery) error {
	if err := h.Store.SaveMachinery(ctx, m); err != nil {
		return fmt.Errorf("failed to save machinery %s: %w", m.Code, err)
	}
	if _, _, err := h.Depreciation.EnsureInitial(ctx, m.Asset()); err != nil {
		return fmt.Errorf("failed to depreciate %s: %w", m.Code, err)
	}
	return nil
}

// demoRecordFor computes a record without persisting it, using a scratch
// in-memory Manager against the same clock.
func (h *Handler) demoRecordFor(m fleet.Machinery) (depreciation.Record, error) {
	mem := memstore.NewMemory()
	scratch := depreciation.NewManager(mem, mem)
	scratch.Now = h.Now
	rec, _, err := scratch.EnsureInitial(context.Background(), m.Asset())
	if err != nil {
		return depreciation.Record{}, fmt.Errorf("failed to build record for %s: %w", m.Code, err)
	}
	return *rec, nil
}

func demoMachine(code, kind, detail, cost, residual, method string, purchased time.Time) fleet.Machinery {
	return fleet.Machinery{
		ID:            uuid.NewString(),
		Code:          code,
		Type:          kind,
		Detail:        detail,
		Cost:          decimal.RequireFromString(cost),
		ResidualValue: decimal.RequireFromString(residual),
		Method:        method,
		PurchaseDate:  purchased,
	}
}

func demoRecord(kind fleet.RecordKind, machineryID string, at time.Time, expires *time.Time, desc, amount string) fleet.SubRecord {
	return fleet.SubRecord{
		ID:          uuid.NewString(),
		Kind:        kind,
		MachineryID: machineryID,
		Date:        at,
		ExpiresAt:   expires,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}
