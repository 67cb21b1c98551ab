/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists machinery, their sub-records, depreciation records and the
  history of reconciliation runs. The depreciation engine consumes it
  through depreciation.RecordStore and depreciation.AssetProvider.

INTERFACES IMPLEMENTED:
  depreciation.RecordStore:   depreciation record persistence
  depreciation.AssetProvider: machinery as depreciation assets

KEY TABLES:
  machinery:             asset of record
  records:               sub-records of every kind, keyed by collection
  depreciation_records:  one active schedule per machine (schedule as JSON)
  reconciliation_runs:   history of duplicate cleanups

UNIQUENESS:
  depreciation_records.asset_id is indexed but NOT unique. Duplicates are
  tolerated and collapsed by depreciation.Reconciler; FindByAsset always
  answers with the newest one.

LIFECYCLE:
  New opens, pings and migrates. Close releases the handle. The store is
  created once in main and injected; there is no package-level connection.

CONCURRENCY:
  Uses sync.RWMutex and a single pooled connection, which also keeps
  ":memory:" databases on one connection.

USAGE:
  store, err := sqlite.New("./data/fleet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - depreciation/store.go: interface definitions
  - depreciation/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/fleet"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Machinery (assets of record)
	CREATE TABLE IF NOT EXISTS machinery (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		plate TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		cost TEXT NOT NULL,
		residual_value TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		useful_life_years INTEGER NOT NULL DEFAULT 0,
		purchase_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_machinery_code
		ON machinery(code);

	-- Sub-records (control, asignacion, mantenimiento, seguro, itv, impuesto)
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		machinery_id TEXT NOT NULL,
		date TEXT NOT NULL,
		expires_at TEXT,
		description TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0',
		responsible TEXT NOT NULL DEFAULT '',
		fields_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_machinery_collection
		ON records(machinery_id, collection, date);
	CREATE INDEX IF NOT EXISTS idx_records_expires
		ON records(expires_at) WHERE expires_at IS NOT NULL;

	-- Depreciation records (duplicates tolerated, see Reconciler)
	CREATE TABLE IF NOT EXISTS depreciation_records (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		acquisition_cost TEXT NOT NULL,
		residual_value TEXT NOT NULL,
		purchase_date TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		useful_life_years INTEGER NOT NULL,
		usage_class TEXT NOT NULL,
		schedule_json TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_depreciation_asset
		ON depreciation_records(asset_id);

	-- Reconciliation Runs
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		scanned INTEGER NOT NULL DEFAULT 0,
		groups_found INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_started
		ON reconciliation_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MACHINERY STORE
// =============================================================================

const machineryColumns = `id, code, type, detail, brand, model, plate, year, cost, residual_value,
	method, useful_life_years, purchase_date, created_at, updated_at`

// SaveMachinery inserts or updates a machinery record. CreatedAt is kept on update.
func (s *Store) SaveMachinery(ctx context.Context, m fleet.Machinery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO machinery (` + machineryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			type = excluded.type,
			detail = excluded.detail,
			brand = excluded.brand,
			model = excluded.model,
			plate = excluded.plate,
			year = excluded.year,
			cost = excluded.cost,
			residual_value = excluded.residual_value,
			method = excluded.method,
			useful_life_years = excluded.useful_life_years,
			purchase_date = excluded.purchase_date,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Code, m.Type, m.Detail, m.Brand, m.Model, m.Plate, m.Year,
		m.Cost.String(), m.ResidualValue.String(),
		m.Method, m.UsefulLifeYears, formatDate(m.PurchaseDate),
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save machinery: %w", err)
	}
	return nil
}

// GetMachinery retrieves a machinery record by ID. Returns nil if missing.
func (s *Store) GetMachinery(ctx context.Context, id string) (*fleet.Machinery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+machineryColumns+" FROM machinery WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get machinery: %w", err)
	}
	list, err := collect(rows, scanMachinery)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListMachinery returns all machinery ordered by code, then ID.
func (s *Store) ListMachinery(ctx context.Context) ([]fleet.Machinery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+machineryColumns+" FROM machinery ORDER BY code, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list machinery: %w", err)
	}
	return collect(rows, scanMachinery)
}

// DeleteMachinery removes a machine and its sub-records. Depreciation
// records are left in place; removing them is an administrative action.
func (s *Store) DeleteMachinery(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM machinery WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete machinery: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE machinery_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to delete sub-records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanMachinery(rows *sql.Rows) (fleet.Machinery, error) {
	var (
		m                          fleet.Machinery
		cost, residual             string
		purchase, created, updated string
	)
	err := rows.Scan(
		&m.ID, &m.Code, &m.Type, &m.Detail, &m.Brand, &m.Model, &m.Plate, &m.Year,
		&cost, &residual, &m.Method, &m.UsefulLifeYears, &purchase, &created, &updated,
	)
	if err != nil {
		return m, fmt.Errorf("failed to scan machinery: %w", err)
	}

	if m.Cost, err = decimal.NewFromString(cost); err != nil {
		return m, fmt.Errorf("failed to parse cost: %w", err)
	}
	if m.ResidualValue, err = decimal.NewFromString(residual); err != nil {
		return m, fmt.Errorf("failed to parse residual_value: %w", err)
	}
	m.PurchaseDate = parseDate(purchase)
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return m, nil
}

// =============================================================================
// ASSET PROVIDER (depreciation.AssetProvider interface)
// =============================================================================

func (s *Store) GetAsset(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	m, err := s.GetMachinery(ctx, string(id))
	if err != nil || m == nil {
		return nil, err
	}
	a := m.Asset()
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]depreciation.Asset, error) {
	machines, err := s.ListMachinery(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]depreciation.Asset, len(machines))
	for i, m := range machines {
		assets[i] = m.Asset()
	}
	return assets, nil
}

// =============================================================================
// SUB-RECORD STORE
// =============================================================================

const subRecordColumns = `id, collection, machinery_id, date, expires_at, description, amount,
	responsible, fields_json, created_at, updated_at`

// SubRecordFilter narrows ListSubRecords. Empty fields match everything.
type SubRecordFilter struct {
	Kind        fleet.RecordKind
	MachineryID string

	// ExpiringBefore keeps records whose expires_at is on or before it.
	ExpiringBefore time.Time
}

// SaveSubRecord inserts or updates a sub-record.
func (s *Store) SaveSubRecord(ctx context.Context, r fleet.SubRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	query := `
		INSERT INTO records (` + subRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			expires_at = excluded.expires_at,
			description = excluded.description,
			amount = excluded.amount,
			responsible = excluded.responsible,
			fields_json = excluded.fields_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var expires any
	if r.ExpiresAt != nil {
		expires = formatDate(*r.ExpiresAt)
	}

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Kind.Collection(), r.MachineryID, formatDate(r.Date), expires,
		r.Description, r.Amount.String(), r.Responsible, string(fieldsJSON),
		formatTime(createdAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s record: %w", r.Kind, err)
	}
	return nil
}

// GetSubRecord retrieves a sub-record of the given kind. Returns nil if missing.
func (s *Store) GetSubRecord(ctx context.Context, kind fleet.RecordKind, id string) (*fleet.SubRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subRecordColumns+" FROM records WHERE id = ? AND collection = ?",
		id, kind.Collection())
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	list, err := collect(rows, scanSubRecord)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListSubRecords returns matching sub-records ordered by date.
func (s *Store) ListSubRecords(ctx context.Context, f SubRecordFilter) ([]fleet.SubRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "collection = ?")
		args = append(args, f.Kind.Collection())
	}
	if f.MachineryID != "" {
		where = append(where, "machinery_id = ?")
		args = append(args, f.MachineryID)
	}
	if !f.ExpiringBefore.IsZero() {
		where = append(where, "expires_at IS NOT NULL AND expires_at <= ?")
		args = append(args, formatDate(f.ExpiringBefore))
	}

	query := "SELECT " + subRecordColumns + " FROM records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return collect(rows, scanSubRecord)
}

// DeleteSubRecord removes a sub-record. Returns false if it did not exist.
func (s *Store) DeleteSubRecord(ctx context.Context, kind fleet.RecordKind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE id = ? AND collection = ?", id, kind.Collection())
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanSubRecord(rows *sql.Rows) (fleet.SubRecord, error) {
	var (
		r                   fleet.SubRecord
		collection, date    string
		expires, fieldsJSON sql.NullString
		amount              string
		created, updated    string
	)
	err := rows.Scan(
		&r.ID, &collection, &r.MachineryID, &date, &expires, &r.Description,
		&amount, &r.Responsible, &fieldsJSON, &created, &updated,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	if r.Kind, err = fleet.ParseRecordKind(collection); err != nil {
		return r, err
	}
	r.Date = parseDate(date)
	if expires.Valid && expires.String != "" {
		t := parseDate(expires.String)
		r.ExpiresAt = &t
	}
	r.Amount = parseDecimal(amount)
	if fieldsJSON.Valid && fieldsJSON.String != "" && fieldsJSON.String != "null" {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &r.Fields); err != nil {
			return r, fmt.Errorf("failed to decode fields: %w", err)
		}
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

// =============================================================================
// DEPRECIATION RECORD STORE (depreciation.RecordStore interface)
// =============================================================================

const depreciationColumns = `id, asset_id, acquisition_cost, residual_value, purchase_date, method,
	useful_life_years, usage_class, schedule_json, note, created_at, updated_at`

// FindByAsset returns the newest record for the asset, or nil.
func (s *Store) FindByAsset(ctx context.Context, assetID depreciation.AssetID) (*depreciation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+depreciationColumns+" FROM depreciation_records WHERE asset_id = ?",
		string(assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to find depreciation record: %w", err)
	}
	records, err := collect(rows, scanDepreciation)
	if err != nil {
		return nil, err
	}
	return depreciation.Newest(records), nil
}

// ListRecords returns every depreciation record, duplicates included.
func (s *Store) ListRecords(ctx context.Context) ([]depreciation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+depreciationColumns+" FROM depreciation_records ORDER BY asset_id, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list depreciation records: %w", err)
	}
	return collect(rows, scanDepreciation)
}

func (s *Store) InsertRecord(ctx context.Context, rec depreciation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO depreciation_records (`+depreciationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.AssetID),
		rec.AcquisitionCost.String(), rec.ResidualValue.String(),
		formatDate(rec.PurchaseDate), string(rec.Method),
		rec.UsefulLifeYears, rec.UsageClass, string(scheduleJSON), rec.Note,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert depreciation record: %w", err)
	}
	return nil
}

// UpdateRecord overwrites the schedule and its inputs for rec.ID.
func (s *Store) UpdateRecord(ctx context.Context, rec depreciation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE depreciation_records SET
			acquisition_cost = ?,
			residual_value = ?,
			purchase_date = ?,
			method = ?,
			useful_life_years = ?,
			usage_class = ?,
			schedule_json = ?,
			note = ?,
			updated_at = ?
		WHERE id = ?`,
		rec.AcquisitionCost.String(), rec.ResidualValue.String(),
		formatDate(rec.PurchaseDate), string(rec.Method),
		rec.UsefulLifeYears, rec.UsageClass, string(scheduleJSON), rec.Note,
		formatTime(rec.UpdatedAt), string(rec.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update depreciation record: %w", err)
	}
	return nil
}

// DeleteRecords removes the given records in one transaction.
func (s *Store) DeleteRecords(ctx context.Context, ids []depreciation.RecordID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, "DELETE FROM depreciation_records WHERE id = ?", string(id))
		if err != nil {
			return 0, fmt.Errorf("failed to delete depreciation record %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}
	return removed, nil
}

func scanDepreciation(rows *sql.Rows) (depreciation.Record, error) {
	var (
		r                        depreciation.Record
		id, assetID, method      string
		cost, residual, purchase string
		scheduleJSON             string
		created, updated         string
	)
	err := rows.Scan(
		&id, &assetID, &cost, &residual, &purchase, &method,
		&r.UsefulLifeYears, &r.UsageClass, &scheduleJSON, &r.Note, &created, &updated,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan depreciation record: %w", err)
	}

	r.ID = depreciation.RecordID(id)
	r.AssetID = depreciation.AssetID(assetID)
	r.Method = depreciation.Method(method)
	r.AcquisitionCost = parseDecimal(cost)
	r.ResidualValue = parseDecimal(residual)
	r.PurchaseDate = parseDate(purchase)
	if err := json.Unmarshal([]byte(scheduleJSON), &r.Schedule); err != nil {
		return r, fmt.Errorf("failed to decode schedule: %w", err)
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

// ReconciliationRun records one execution of the duplicate reconciler.
type ReconciliationRun struct {
	ID          string
	Status      string // running, completed, failed
	Scanned     int
	Groups      int
	Removed     int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveReconciliationRun inserts or updates a run.
func (s *Store) SaveReconciliationRun(ctx context.Context, run ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = formatTime(*run.CompletedAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, status, scanned, groups_found, removed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			scanned = excluded.scanned,
			groups_found = excluded.groups_found,
			removed = excluded.removed,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		run.ID, run.Status, run.Scanned, run.Groups, run.Removed,
		nullString(run.Error), formatTime(run.StartedAt), completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation run: %w", err)
	}
	return nil
}

// ListReconciliationRuns returns the most recent runs first.
func (s *Store) ListReconciliationRuns(ctx context.Context, limit int) ([]ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, scanned, groups_found, removed, error, started_at, completed_at
		FROM reconciliation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	return collect(rows, func(rows *sql.Rows) (ReconciliationRun, error) {
		var (
			run       ReconciliationRun
			errText   sql.NullString
			started   string
			completed sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Status, &run.Scanned, &run.Groups, &run.Removed,
			&errText, &started, &completed); err != nil {
			return run, fmt.Errorf("failed to scan reconciliation run: %w", err)
		}
		run.Error = errText.String
		run.StartedAt = parseTime(started)
		if completed.Valid {
			t := parseTime(completed.String)
			run.CompletedAt = &t
		}
		return run, nil
	})
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"records", "depreciation_records", "machinery", "reconciliation_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// collect scans every row and closes rows.
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
