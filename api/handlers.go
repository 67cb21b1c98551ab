/*
handlers.go - HTTP API handlers for the fleet asset backend

PURPOSE:
  Exposes machinery CRUD, sub-record CRUD, the depreciation engine and the
  maintenance forecast via REST API. Handles HTTP request/response and JSON
  serialization, and delegates to the depreciation and fleet packages.

ENDPOINTS:
  Depreciation:
    POST   /api/depreciaciones                      Create record (explicit inputs)
    GET    /api/depreciaciones/{asset_id}           Active record for a machine
    POST   /api/depreciaciones/{asset_id}/recompute Regenerate schedule in place

  Machinery:
    GET    /api/maquinarias                 List machinery
    POST   /api/maquinarias                 Create (generates initial schedule)
    GET    /api/maquinarias/{id}            Machine with its depreciation record
    PUT    /api/maquinarias/{id}            Replace (recomputes schedule)
    DELETE /api/maquinarias/{id}            Delete machine and sub-records
    GET    /api/maquinarias/{id}/pronostico Maintenance forecast

  Sub-records ({kind} is a kind or collection name, e.g. seguro / seguros):
    GET    /api/maquinarias/{id}/{kind}
    POST   /api/maquinarias/{id}/{kind}
    GET    /api/maquinarias/{id}/{kind}/{record_id}
    PUT    /api/maquinarias/{id}/{kind}/{record_id}
    DELETE /api/maquinarias/{id}/{kind}/{record_id}

  Reminders:
    GET    /api/vencimientos?dias=N         Documents expiring within N days

  Admin:
    GET    /api/admin/reconciliation/runs   Reconciler history
    POST   /api/admin/reconciliation/run    Run the reconciler now

ERROR HANDLING:
  mapError translates the domain error taxonomy to a stable status:
  - 400: ValidationError (with field), unknown record kind, invalid fleet data
  - 404: NotFoundError
  - 409: ErrRecordExists
  - 503: StorageUnavailableError
  - 500: anything else

MACHINERY WRITES AND DEPRECIATION:
  A machinery write always succeeds on its own. The depreciation side effect
  (EnsureInitial on create, Recompute on update) is reported in the response;
  a machine that cannot be depreciated (e.g. cost zero) carries
  depreciacion_error instead of a schedule.

SECURITY NOTE:
  No authentication. Authentication is provided upstream.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background reconciler
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/fleet"
	"github.com/warp/fleet-assets/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Depreciation *depreciation.Manager
	Reconciler   *depreciation.Reconciler

	// ExpiryWindow is the default reminder window for /vencimientos.
	ExpiryWindow time.Duration
	Now          func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store. A nil store is
// allowed: the router then answers every storage-backed route with 503.
func NewHandler(store *sqlite.Store) *Handler {
	h := &Handler{
		Store:        store,
		ExpiryWindow: 30 * 24 * time.Hour,
		Now:          func() time.Time { return time.Now().UTC() },
	}
	if store != nil {
		h.Depreciation = depreciation.NewManager(store, store)
		h.Reconciler = depreciation.NewReconciler(store)
	}
	return h
}

// Health reports whether the store is reachable.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable", nil)
		return
	}
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// DEPRECIATION HANDLERS
// =============================================================================

// CreateDepreciacion creates a record from explicit user input.
// POST /api/depreciaciones
func (h *Handler) CreateDepreciacion(w http.ResponseWriter, r *http.Request) {
	var req DepreciacionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Depreciation.Create(r.Context(), depreciation.CreateInput{
		AssetID:         req.Maquinaria,
		Cost:            req.CostoActivo,
		PurchaseDate:    req.FechaCompra,
		Method:          req.Metodo,
		UsefulLifeYears: req.VidaUtil,
	})
	if err != nil {
		mapError(w, "Failed to create depreciation record", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDepreciacionDTO(*rec))
}

// GetDepreciacion returns the active record for a machine.
// GET /api/depreciaciones/{asset_id}
func (h *Handler) GetDepreciacion(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Depreciation.Get(r.Context(), chi.URLParam(r, "asset_id"))
	if err != nil {
		mapError(w, "Failed to get depreciation record", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepreciacionDTO(*rec))
}

// RecomputeDepreciacion regenerates the schedule from the machine's current data.
// POST /api/depreciaciones/{asset_id}/recompute
func (h *Handler) RecomputeDepreciacion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := depreciation.ParseAssetID(chi.URLParam(r, "asset_id"))
	if err != nil {
		mapError(w, "Invalid machinery id", err)
		return
	}

	asset, err := h.Store.GetAsset(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get machinery", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Machinery not found", nil)
		return
	}

	rec, err := h.Depreciation.Recompute(ctx, *asset)
	if err != nil {
		mapError(w, "Failed to recompute depreciation record", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepreciacionDTO(*rec))
}

// =============================================================================
// MACHINERY HANDLERS
// =============================================================================

// ListMaquinarias returns all machinery.
// GET /api/maquinarias
func (h *Handler) ListMaquinarias(w http.ResponseWriter, r *http.Request) {
	machines, err := h.Store.ListMachinery(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list machinery", err)
		return
	}

	dtos := make([]MaquinariaDTO, len(machines))
	for i, m := range machines {
		dtos[i] = toMaquinariaDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMaquinaria returns one machine with its depreciation record.
// GET /api/maquinarias/{id}
func (h *Handler) GetMaquinaria(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, ok := h.loadMachinery(w, r)
	if !ok {
		return
	}

	dto := toMaquinariaDTO(*m)
	rec, err := h.Store.FindByAsset(ctx, depreciation.AssetID(m.ID))
	if err != nil {
		log.Printf("[API] Failed to load depreciation for %s: %v", m.ID, err)
	} else if rec != nil {
		d := toDepreciacionDTO(*rec)
		dto.Depreciacion = &d
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateMaquinaria creates a machine and its initial depreciation schedule.
// POST /api/maquinarias
func (h *Handler) CreateMaquinaria(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MaquinariaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := req.toMachinery(uuid.NewString())
	if err != nil {
		mapError(w, "Invalid machinery", err)
		return
	}
	now := h.Now()
	m.CreatedAt, m.UpdatedAt = now, now

	if err := h.Store.SaveMachinery(ctx, m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create machinery", err)
		return
	}

	dto := toMaquinariaDTO(m)
	h.syncDepreciation(ctx, nil, m, &dto)
	writeJSON(w, http.StatusCreated, dto)
}

// UpdateMaquinaria replaces a machine and recomputes its schedule when the
// depreciation inputs changed.
// PUT /api/maquinarias/{id}
func (h *Handler) UpdateMaquinaria(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prev, ok := h.loadMachinery(w, r)
	if !ok {
		return
	}

	var req MaquinariaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := req.toMachinery(prev.ID)
	if err != nil {
		mapError(w, "Invalid machinery", err)
		return
	}
	m.CreatedAt = prev.CreatedAt
	m.UpdatedAt = h.Now()

	if err := h.Store.SaveMachinery(ctx, m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update machinery", err)
		return
	}

	dto := toMaquinariaDTO(m)
	h.syncDepreciation(ctx, prev, m, &dto)
	writeJSON(w, http.StatusOK, dto)
}

// DeleteMaquinaria removes a machine and its sub-records.
// DELETE /api/maquinarias/{id}
func (h *Handler) DeleteMaquinaria(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.Store.DeleteMachinery(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete machinery", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Machinery not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPronostico returns the maintenance forecast for a machine.
// GET /api/maquinarias/{id}/pronostico
func (h *Handler) GetPronostico(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadMachinery(w, r)
	if !ok {
		return
	}

	services, err := h.Store.ListSubRecords(r.Context(), sqlite.SubRecordFilter{
		Kind:        fleet.KindMaintenance,
		MachineryID: m.ID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list maintenance", err)
		return
	}

	writeJSON(w, http.StatusOK, toPronosticoDTO(fleet.Forecast(*m, services, h.Now())))
}

// syncDepreciation keeps the machine's depreciation record in step with a
// write. prev is nil on create. Failures are logged and reported on dto.
func (h *Handler) syncDepreciation(ctx context.Context, prev *fleet.Machinery, m fleet.Machinery, dto *MaquinariaDTO) {
	var (
		rec *depreciation.Record
		err error
	)
	if prev != nil && prev.DepreciationInputsChanged(m) {
		rec, err = h.Depreciation.Recompute(ctx, m.Asset())
		if depreciation.IsNotFound(err) {
			rec, _, err = h.Depreciation.EnsureInitial(ctx, m.Asset())
		}
	} else {
		rec, _, err = h.Depreciation.EnsureInitial(ctx, m.Asset())
	}

	if err != nil {
		log.Printf("[API] Depreciation not updated for machinery %s: %v", m.ID, err)
		dto.DepreciacionError = err.Error()
		return
	}
	d := toDepreciacionDTO(*rec)
	dto.Depreciacion = &d
}

// loadMachinery resolves {id} or writes 404.
func (h *Handler) loadMachinery(w http.ResponseWriter, r *http.Request) (*fleet.Machinery, bool) {
	id := chi.URLParam(r, "id")
	m, err := h.Store.GetMachinery(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get machinery", err)
		return nil, false
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Machinery not found", nil)
		return nil, false
	}
	return m, true
}

func (req MaquinariaRequest) toMachinery(id string) (fleet.Machinery, error) {
	m := fleet.Machinery{
		ID:              id,
		Code:            strings.TrimSpace(req.Codigo),
		Type:            strings.TrimSpace(req.Tipo),
		Detail:          strings.TrimSpace(req.Detalle),
		Brand:           req.Marca,
		Model:           req.Modelo,
		Plate:           req.Placa,
		Year:            req.Anio,
		Cost:            req.CostoActivo,
		ResidualValue:   req.ValorResidual,
		Method:          req.Metodo,
		UsefulLifeYears: req.VidaUtil,
	}
	if req.FechaCompra != "" {
		d, err := parseDate("fecha_compra", req.FechaCompra)
		if err != nil {
			return m, err
		}
		m.PurchaseDate = d
	}
	return m, m.Validate()
}

// =============================================================================
// SUB-RECORD HANDLERS
// =============================================================================

// ListRegistros returns the sub-records of one kind for a machine.
// GET /api/maquinarias/{id}/{kind}
func (h *Handler) ListRegistros(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	m, ok := h.loadMachinery(w, r)
	if !ok {
		return
	}

	records, err := h.Store.ListSubRecords(r.Context(), sqlite.SubRecordFilter{Kind: kind, MachineryID: m.ID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	dtos := make([]RegistroDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRegistroDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRegistro adds a sub-record to a machine.
// POST /api/maquinarias/{id}/{kind}
func (h *Handler) CreateRegistro(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	m, ok := h.loadMachinery(w, r)
	if !ok {
		return
	}

	var req RegistroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := req.toSubRecord(uuid.NewString(), kind, m.ID)
	if err != nil {
		mapError(w, "Invalid record", err)
		return
	}
	now := h.Now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	if err := h.Store.SaveSubRecord(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRegistroDTO(rec))
}

// GetRegistro returns one sub-record.
// GET /api/maquinarias/{id}/{kind}/{record_id}
func (h *Handler) GetRegistro(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSubRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRegistroDTO(*rec))
}

// UpdateRegistro replaces one sub-record.
// PUT /api/maquinarias/{id}/{kind}/{record_id}
func (h *Handler) UpdateRegistro(w http.ResponseWriter, r *http.Request) {
	prev, ok := h.loadSubRecord(w, r)
	if !ok {
		return
	}

	var req RegistroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := req.toSubRecord(prev.ID, prev.Kind, prev.MachineryID)
	if err != nil {
		mapError(w, "Invalid record", err)
		return
	}
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = h.Now()

	if err := h.Store.SaveSubRecord(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistroDTO(rec))
}

// DeleteRegistro removes one sub-record.
// DELETE /api/maquinarias/{id}/{kind}/{record_id}
func (h *Handler) DeleteRegistro(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSubRecord(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.DeleteSubRecord(r.Context(), rec.Kind, rec.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSubRecord resolves {kind}/{record_id} under {id} or writes the error.
func (h *Handler) loadSubRecord(w http.ResponseWriter, r *http.Request) (*fleet.SubRecord, bool) {
	kind, ok := parseKind(w, r)
	if !ok {
		return nil, false
	}

	rec, err := h.Store.GetSubRecord(r.Context(), kind, chi.URLParam(r, "record_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get record", err)
		return nil, false
	}
	if rec == nil || rec.MachineryID != chi.URLParam(r, "id") {
		writeError(w, http.StatusNotFound, "Record not found", nil)
		return nil, false
	}
	return rec, true
}

func parseKind(w http.ResponseWriter, r *http.Request) (fleet.RecordKind, bool) {
	kind, err := fleet.ParseRecordKind(chi.URLParam(r, "kind"))
	if err != nil {
		mapError(w, "Unknown record kind", err)
		return "", false
	}
	return kind, true
}

func (req RegistroRequest) toSubRecord(id string, kind fleet.RecordKind, machineryID string) (fleet.SubRecord, error) {
	rec := fleet.SubRecord{
		ID:          id,
		Kind:        kind,
		MachineryID: machineryID,
		Description: req.Descripcion,
		Amount:      req.Monto,
		Responsible: req.Responsable,
		Fields:      req.Campos,
	}

	d, err := parseDate("fecha", req.Fecha)
	if err != nil {
		return rec, err
	}
	rec.Date = d

	if req.Vencimiento != "" {
		exp, err := parseDate("vencimiento", req.Vencimiento)
		if err != nil {
			return rec, err
		}
		rec.ExpiresAt = &exp
	}
	return rec, rec.Validate()
}

// =============================================================================
// REMINDER HANDLERS
// =============================================================================

// ListVencimientos returns insurance, inspection and tax documents that
// expire within the window, lapsed ones included.
// GET /api/vencimientos?dias=N
func (h *Handler) ListVencimientos(w http.ResponseWriter, r *http.Request) {
	window := h.ExpiryWindow
	if v := r.URL.Query().Get("dias"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid window", Field: "dias"})
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	now := h.Now()
	records, err := h.Store.ListSubRecords(r.Context(), sqlite.SubRecordFilter{ExpiringBefore: now.Add(window)})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	expiring := fleet.Expiring(records, now, window)
	dtos := make([]VencimientoDTO, len(expiring))
	for i, e := range expiring {
		dtos[i] = VencimientoDTO{
			Registro:      toRegistroDTO(e.Record),
			DiasRestantes: e.DaysLeft,
			Vencido:       e.DaysLeft < 0,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vencimientos": dtos})
}

// =============================================================================
// RECONCILIATION ENDPOINTS
// =============================================================================

// ListReconciliationRuns returns reconciler history, newest first.
// GET /api/admin/reconciliation/runs?limit=N
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Store.ListReconciliationRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get reconciliation runs", err)
		return
	}

	dtos := make([]ReconciliationRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toReconciliationRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// TriggerReconciliation runs the duplicate reconciler immediately.
// POST /api/admin/reconciliation/run
func (h *Handler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	run, err := RunReconciliation(r.Context(), h.Store, h.Reconciler)
	if err != nil {
		mapError(w, "Reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationRunDTO(run))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// mapError writes err with the status its kind maps to.
func mapError(w http.ResponseWriter, message string, err error) {
	var verr *depreciation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Field: verr.Field, Details: verr.Error()})
	case depreciation.IsClientError(err),
		errors.Is(err, fleet.ErrInvalid),
		errors.Is(err, fleet.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, depreciation.ErrRecordExists):
		writeError(w, http.StatusConflict, message, err)
	case depreciation.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case depreciation.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(depreciation.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &depreciation.ValidationError{Field: field, Message: "expected YYYY-MM-DD"}
	}
	return d, nil
}
