/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow the
  Spanish wire contract the fleet frontend already speaks; money travels as
  decimal strings (shopspring/decimal marshals quoted).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Depreciation:
    DepreciacionRequest, DepreciacionDTO

  Machinery:
    MaquinariaRequest, MaquinariaDTO

  Sub-records:
    RegistroRequest, RegistroDTO

  Forecast / reminders:
    PronosticoDTO, VencimientoDTO

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - depreciation/types.go: AmortizationEntry wire names
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/fleet"
	"github.com/warp/fleet-assets/store/sqlite"
)

// =============================================================================
// DEPRECIATION
// =============================================================================

// DepreciacionRequest creates a depreciation record for a machine.
// costo_activo accepts a JSON number or a decimal string.
type DepreciacionRequest struct {
	Maquinaria  string          `json:"maquinaria"`
	CostoActivo decimal.Decimal `json:"costo_activo"`
	FechaCompra string          `json:"fecha_compra"`
	Metodo      string          `json:"metodo"`
	VidaUtil    int             `json:"vida_util"`
}

// DepreciacionDTO represents a depreciation record in API responses.
type DepreciacionDTO struct {
	ID                string                           `json:"id"`
	Maquinaria        string                           `json:"maquinaria"`
	CostoActivo       decimal.Decimal                  `json:"costo_activo"`
	ValorResidual     decimal.Decimal                  `json:"valor_residual"`
	FechaCompra       string                           `json:"fecha_compra,omitempty"`
	Metodo            string                           `json:"metodo"`
	VidaUtil          int                              `json:"vida_util"`
	ClaseUso          string                           `json:"clase_uso"`
	DepreciacionAnual decimal.Decimal                  `json:"depreciacion_anual"`
	TablaAmortizacion []depreciation.AmortizationEntry `json:"tabla_amortizacion"`
	Nota              string                           `json:"nota,omitempty"`
	CreatedAt         string                           `json:"created_at"`
	UpdatedAt         string                           `json:"updated_at"`
}

func toDepreciacionDTO(r depreciation.Record) DepreciacionDTO {
	dto := DepreciacionDTO{
		ID:                string(r.ID),
		Maquinaria:        string(r.AssetID),
		CostoActivo:       r.AcquisitionCost,
		ValorResidual:     r.ResidualValue,
		Metodo:            string(r.Method),
		VidaUtil:          r.UsefulLifeYears,
		ClaseUso:          r.UsageClass,
		DepreciacionAnual: r.AnnualDepreciation(),
		TablaAmortizacion: r.Schedule,
		Nota:              r.Note,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.Format(time.RFC3339),
	}
	if !r.PurchaseDate.IsZero() {
		dto.FechaCompra = r.PurchaseDate.Format(depreciation.DateLayout)
	}
	if dto.TablaAmortizacion == nil {
		dto.TablaAmortizacion = []depreciation.AmortizationEntry{}
	}
	return dto
}

// =============================================================================
// MACHINERY
// =============================================================================

// MaquinariaRequest creates or replaces a machinery record.
type MaquinariaRequest struct {
	Codigo        string          `json:"codigo"`
	Tipo          string          `json:"tipo"`
	Detalle       string          `json:"detalle"`
	Marca         string          `json:"marca"`
	Modelo        string          `json:"modelo"`
	Placa         string          `json:"placa"`
	Anio          int             `json:"anio"`
	CostoActivo   decimal.Decimal `json:"costo_activo"`
	ValorResidual decimal.Decimal `json:"valor_residual"`
	Metodo        string          `json:"metodo"`
	VidaUtil      int             `json:"vida_util"`
	FechaCompra   string          `json:"fecha_compra"`
}

// MaquinariaDTO represents a machine in API responses. The depreciation
// record is attached on single-item reads and writes.
type MaquinariaDTO struct {
	ID            string           `json:"id"`
	Codigo        string           `json:"codigo"`
	Tipo          string           `json:"tipo"`
	Detalle       string           `json:"detalle"`
	Marca         string           `json:"marca,omitempty"`
	Modelo        string           `json:"modelo,omitempty"`
	Placa         string           `json:"placa,omitempty"`
	Anio          int              `json:"anio,omitempty"`
	CostoActivo   decimal.Decimal  `json:"costo_activo"`
	ValorResidual decimal.Decimal  `json:"valor_residual"`
	Metodo        string           `json:"metodo,omitempty"`
	VidaUtil      int              `json:"vida_util,omitempty"`
	FechaCompra   string           `json:"fecha_compra,omitempty"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
	Depreciacion  *DepreciacionDTO `json:"depreciacion,omitempty"`

	// DepreciacionError explains why no schedule could be generated.
	DepreciacionError string `json:"depreciacion_error,omitempty"`
}

func toMaquinariaDTO(m fleet.Machinery) MaquinariaDTO {
	dto := MaquinariaDTO{
		ID:            m.ID,
		Codigo:        m.Code,
		Tipo:          m.Type,
		Detalle:       m.Detail,
		Marca:         m.Brand,
		Modelo:        m.Model,
		Placa:         m.Plate,
		Anio:          m.Year,
		CostoActivo:   m.Cost,
		ValorResidual: m.ResidualValue,
		Metodo:        m.Method,
		VidaUtil:      m.UsefulLifeYears,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     m.UpdatedAt.Format(time.RFC3339),
	}
	if !m.PurchaseDate.IsZero() {
		dto.FechaCompra = m.PurchaseDate.Format(depreciation.DateLayout)
	}
	return dto
}

// =============================================================================
// SUB-RECORDS
// =============================================================================

// RegistroRequest creates or replaces a sub-record. Campos carries the
// kind-specific fields (policy number, inspection station, ...).
type RegistroRequest struct {
	Fecha       string            `json:"fecha"`
	Vencimiento string            `json:"vencimiento"`
	Descripcion string            `json:"descripcion"`
	Monto       decimal.Decimal   `json:"monto"`
	Responsable string            `json:"responsable"`
	Campos      map[string]string `json:"campos"`
}

// RegistroDTO represents a sub-record in API responses.
type RegistroDTO struct {
	ID          string            `json:"id"`
	Tipo        string            `json:"tipo"`
	Coleccion   string            `json:"coleccion"`
	Maquinaria  string            `json:"maquinaria"`
	Fecha       string            `json:"fecha"`
	Vencimiento string            `json:"vencimiento,omitempty"`
	Descripcion string            `json:"descripcion,omitempty"`
	Monto       decimal.Decimal   `json:"monto"`
	Responsable string            `json:"responsable,omitempty"`
	Campos      map[string]string `json:"campos,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func toRegistroDTO(r fleet.SubRecord) RegistroDTO {
	dto := RegistroDTO{
		ID:          r.ID,
		Tipo:        string(r.Kind),
		Coleccion:   r.Kind.Collection(),
		Maquinaria:  r.MachineryID,
		Fecha:       r.Date.Format(depreciation.DateLayout),
		Descripcion: r.Description,
		Monto:       r.Amount,
		Responsable: r.Responsible,
		Campos:      r.Fields,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ExpiresAt != nil {
		dto.Vencimiento = r.ExpiresAt.Format(depreciation.DateLayout)
	}
	return dto
}

// =============================================================================
// FORECAST / REMINDERS
// =============================================================================

// PronosticoDTO is the maintenance forecast for one machine.
type PronosticoDTO struct {
	Maquinaria        string `json:"maquinaria"`
	Servicios         int    `json:"servicios"`
	UltimoServicio    string `json:"ultimo_servicio,omitempty"`
	IntervaloPromedio int    `json:"intervalo_promedio_dias"`
	ProximoServicio   string `json:"proximo_servicio"`
	DiasRestantes     int    `json:"dias_restantes"`
	Vencido           bool   `json:"vencido"`
}

func toPronosticoDTO(f fleet.MaintenanceForecast) PronosticoDTO {
	dto := PronosticoDTO{
		Maquinaria:        f.MachineryID,
		Servicios:         f.Services,
		IntervaloPromedio: int(f.AverageInterval / (24 * time.Hour)),
		ProximoServicio:   f.NextDue.Format(depreciation.DateLayout),
		DiasRestantes:     f.DaysUntilDue,
		Vencido:           f.Overdue,
	}
	if !f.LastService.IsZero() {
		dto.UltimoServicio = f.LastService.Format(depreciation.DateLayout)
	}
	return dto
}

// VencimientoDTO is a document expiring inside the reminder window.
type VencimientoDTO struct {
	Registro      RegistroDTO `json:"registro"`
	DiasRestantes int         `json:"dias_restantes"`
	Vencido       bool        `json:"vencido"`
}

// =============================================================================
// ADMIN
// =============================================================================

// ReconciliationRunDTO is one entry of the reconciler history.
type ReconciliationRunDTO struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Scanned     int    `json:"scanned"`
	Groups      int    `json:"groups"`
	Removed     int    `json:"removed"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toReconciliationRunDTO(run sqlite.ReconciliationRun) ReconciliationRunDTO {
	dto := ReconciliationRunDTO{
		ID:        run.ID,
		Status:    run.Status,
		Scanned:   run.Scanned,
		Groups:    run.Groups,
		Removed:   run.Removed,
		Error:     run.Error,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// ScenarioDTO represents a demo fleet.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}
