package depreciation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-assets/depreciation"
	"github.com/warp/fleet-assets/depreciation/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// clock returns a controllable Now function.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T) (*depreciation.Manager, *store.Memory, *clock) {
	t.Helper()
	mem := store.NewMemory()
	c := &clock{t: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	m := depreciation.NewManager(mem, mem)
	m.Now = c.Now
	return m, mem, c
}

func volqueta() depreciation.Asset {
	return depreciation.Asset{
		ID:            depreciation.AssetID(uuid.NewString()),
		Category:      "Volqueta",
		Detail:        "Volvo FMX",
		Cost:          dec("10000"),
		ResidualValue: dec("1000"),
		PurchaseDate:  time.Date(2023, time.May, 10, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// ENSURE INITIAL
// =============================================================================

func TestEnsureInitial_CreatesClassifiedSchedule(t *testing.T) {
	m, mem, c := newTestManager(t)
	ctx := context.Background()
	asset := volqueta()

	rec, created, err := m.EnsureInitial(ctx, asset)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, asset.ID, rec.AssetID)
	assert.Equal(t, "Vehiculos automotores pesados", rec.UsageClass)
	assert.Equal(t, 5, rec.UsefulLifeYears)
	assert.Equal(t, depreciation.MethodStraightLine, rec.Method)
	assert.Equal(t, depreciation.AutoGeneratedNote, rec.Note)
	assert.Equal(t, c.Now(), rec.CreatedAt)
	require.Len(t, rec.Schedule, 5)
	assert.Equal(t, 2023, rec.Schedule[0].Year)
	assert.Equal(t, "1800.00", rec.AnnualDepreciation().StringFixed(2))
	assert.Equal(t, 1, mem.Len())
}

func TestEnsureInitial_IsIdempotent(t *testing.T) {
	// GIVEN: an asset that already went through EnsureInitial
	// WHEN: EnsureInitial runs again
	// THEN: nothing new is persisted and the existing record is returned

	m, mem, _ := newTestManager(t)
	ctx := context.Background()
	asset := volqueta()

	first, created, err := m.EnsureInitial(ctx, asset)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := m.EnsureInitial(ctx, asset)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, mem.Len())
}

func TestEnsureInitial_MissingPurchaseDateAnchorsAtToday(t *testing.T) {
	m, _, _ := newTestManager(t)
	asset := volqueta()
	asset.PurchaseDate = time.Time{}

	rec, _, err := m.EnsureInitial(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, 2026, rec.Schedule[0].Year)
}

func TestEnsureInitial_UnknownCategoryUsesDefaultLife(t *testing.T) {
	m, _, _ := newTestManager(t)
	asset := volqueta()
	asset.Category, asset.Detail = "unknown_type", ""

	rec, _, err := m.EnsureInitial(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, depreciation.DefaultUsageClass, rec.UsageClass)
	assert.Len(t, rec.Schedule, depreciation.DefaultUsefulLifeYears)
}

func TestEnsureInitial_RejectsNonPositiveCost(t *testing.T) {
	m, mem, _ := newTestManager(t)
	for _, cost := range []string{"0", "-10"} {
		asset := volqueta()
		asset.Cost = dec(cost)

		_, _, err := m.EnsureInitial(context.Background(), asset)

		var vErr *depreciation.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "costo_activo", vErr.Field)
		assert.True(t, depreciation.IsClientError(err))
	}
	assert.Equal(t, 0, mem.Len())
}

func TestEnsureInitial_UnsupportedMethod(t *testing.T) {
	m, _, _ := newTestManager(t)
	asset := volqueta()
	asset.Method = "units_of_production"

	_, _, err := m.EnsureInitial(context.Background(), asset)

	var vErr *depreciation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "metodo", vErr.Field)
}

func TestEnsureInitial_UnknownMethodFallsBack(t *testing.T) {
	m, _, _ := newTestManager(t)
	asset := volqueta()
	asset.Method = "revaluation"

	rec, _, err := m.EnsureInitial(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, depreciation.MethodStraightLine, rec.Method)
}

// =============================================================================
// RECOMPUTE
// =============================================================================

func TestRecompute_ReplacesScheduleInPlace(t *testing.T) {
	m, mem, c := newTestManager(t)
	ctx := context.Background()
	asset := volqueta()

	original, _, err := m.EnsureInitial(ctx, asset)
	require.NoError(t, err)

	// WHEN: the asset's cost, method and life change
	c.Advance(48 * time.Hour)
	asset.Cost = dec("20000")
	asset.UsefulLifeYears = 8
	asset.Method = "saldo decreciente"

	rec, err := m.Recompute(ctx, asset)
	require.NoError(t, err)

	// THEN: same record, new schedule, bumped UpdatedAt
	assert.Equal(t, original.ID, rec.ID)
	assert.Equal(t, original.CreatedAt, rec.CreatedAt)
	assert.True(t, rec.UpdatedAt.After(original.UpdatedAt))
	assert.Equal(t, depreciation.MethodDecliningBalance, rec.Method)
	assert.Len(t, rec.Schedule, 8)
	assert.Equal(t, 1, mem.Len())

	stored, err := m.Get(ctx, string(asset.ID))
	require.NoError(t, err)
	assert.Len(t, stored.Schedule, 8, "schedule must be replaced, not appended")
	assert.Equal(t, "20000.00", stored.AcquisitionCost.StringFixed(2))
}

func TestRecompute_WithoutRecordIsNotFound(t *testing.T) {
	m, mem, _ := newTestManager(t)

	_, err := m.Recompute(context.Background(), volqueta())

	var nfErr *depreciation.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "record", nfErr.Kind)
	assert.Equal(t, 0, mem.Len(), "recompute must not fall back to creation")
}

// =============================================================================
// CREATE (user-driven)
// =============================================================================

func TestCreate_UsesExplicitInput(t *testing.T) {
	m, mem, _ := newTestManager(t)
	asset := volqueta()
	mem.SaveAsset(asset)

	rec, err := m.Create(context.Background(), depreciation.CreateInput{
		AssetID:         string(asset.ID),
		Cost:            dec("12000"),
		PurchaseDate:    "2024-02-01",
		Method:          "lineal",
		UsefulLifeYears: 4,
	})
	require.NoError(t, err)

	assert.Empty(t, rec.Note)
	assert.Equal(t, 4, rec.UsefulLifeYears)
	assert.Equal(t, 2024, rec.Schedule[0].Year)
	assert.Equal(t, "2750.00", rec.AnnualDepreciation().StringFixed(2))
}

func TestCreate_Validation(t *testing.T) {
	m, mem, _ := newTestManager(t)
	asset := volqueta()
	mem.SaveAsset(asset)

	cases := []struct {
		name  string
		in    depreciation.CreateInput
		field string
	}{
		{"bad id", depreciation.CreateInput{AssetID: "not-an-id", Cost: dec("1")}, "maquinaria"},
		{"zero cost", depreciation.CreateInput{AssetID: string(asset.ID), Cost: dec("0")}, "costo_activo"},
		{"bad date", depreciation.CreateInput{AssetID: string(asset.ID), Cost: dec("10"), PurchaseDate: "01/02/2024"}, "fecha_compra"},
		{"negative life", depreciation.CreateInput{AssetID: string(asset.ID), Cost: dec("10"), UsefulLifeYears: -1}, "vida_util"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tc.in)
			var vErr *depreciation.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
	assert.Equal(t, 0, mem.Len())
}

func TestCreate_UnknownAsset(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Create(context.Background(), depreciation.CreateInput{
		AssetID: uuid.NewString(),
		Cost:    dec("100"),
	})
	assert.True(t, depreciation.IsNotFound(err))
}

func TestCreate_ExistingRecordConflicts(t *testing.T) {
	m, mem, _ := newTestManager(t)
	ctx := context.Background()
	asset := volqueta()
	mem.SaveAsset(asset)

	_, _, err := m.EnsureInitial(ctx, asset)
	require.NoError(t, err)

	_, err = m.Create(ctx, depreciation.CreateInput{AssetID: string(asset.ID), Cost: dec("100")})
	assert.ErrorIs(t, err, depreciation.ErrRecordExists)
	assert.Equal(t, 1, mem.Len())
}

// =============================================================================
// GET / BACKFILL
// =============================================================================

func TestGet_Errors(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Get(context.Background(), "xyz")
	assert.True(t, depreciation.IsClientError(err))

	_, err = m.Get(context.Background(), uuid.NewString())
	assert.True(t, depreciation.IsNotFound(err))
}

func TestBackfill(t *testing.T) {
	m, mem, _ := newTestManager(t)
	ctx := context.Background()

	done := volqueta()
	fresh := volqueta()
	broken := volqueta()
	broken.Cost = dec("0")
	for _, a := range []depreciation.Asset{done, fresh, broken} {
		mem.SaveAsset(a)
	}
	_, _, err := m.EnsureInitial(ctx, done)
	require.NoError(t, err)

	report, err := m.Backfill(ctx)
	require.NoError(t, err)

	assert.Equal(t, depreciation.BackfillReport{Assets: 3, Created: 1, Skipped: 1, Failed: 1}, report)
	assert.Equal(t, 2, mem.Len())

	// Second run is a no-op.
	report, err = m.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, mem.Len())
}

// =============================================================================
// STORAGE FAULTS
// =============================================================================

// MockRecordStore is a testify mock of depreciation.RecordStore.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) FindByAsset(ctx context.Context, id depreciation.AssetID) (*depreciation.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*depreciation.Record), args.Error(1)
}

func (m *MockRecordStore) ListRecords(ctx context.Context) ([]depreciation.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]depreciation.Record), args.Error(1)
}

func (m *MockRecordStore) InsertRecord(ctx context.Context, rec depreciation.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordStore) UpdateRecord(ctx context.Context, rec depreciation.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordStore) DeleteRecords(ctx context.Context, ids []depreciation.RecordID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

var errDiskGone = errors.New("disk I/O error")

func TestManager_StoreFaultsBecomeUnavailable(t *testing.T) {
	ctx := context.Background()
	asset := volqueta()

	t.Run("find fails", func(t *testing.T) {
		records := new(MockRecordStore)
		records.On("FindByAsset", ctx, asset.ID).Return(nil, errDiskGone)
		m := depreciation.NewManager(records, store.NewMemory())

		_, _, err := m.EnsureInitial(ctx, asset)

		var sErr *depreciation.StorageUnavailableError
		require.ErrorAs(t, err, &sErr)
		assert.True(t, depreciation.IsUnavailable(err))
		assert.ErrorIs(t, err, errDiskGone)
		records.AssertExpectations(t)
	})

	t.Run("insert fails", func(t *testing.T) {
		records := new(MockRecordStore)
		records.On("FindByAsset", ctx, asset.ID).Return(nil, nil)
		records.On("InsertRecord", ctx, mock.AnythingOfType("depreciation.Record")).Return(errDiskGone)
		m := depreciation.NewManager(records, store.NewMemory())

		_, _, err := m.EnsureInitial(ctx, asset)
		assert.True(t, depreciation.IsUnavailable(err))
		records.AssertExpectations(t)
	})

	t.Run("update fails", func(t *testing.T) {
		records := new(MockRecordStore)
		existing := &depreciation.Record{ID: "rec-1", AssetID: asset.ID}
		records.On("FindByAsset", ctx, asset.ID).Return(existing, nil)
		records.On("UpdateRecord", ctx, mock.MatchedBy(func(r depreciation.Record) bool {
			return r.ID == "rec-1"
		})).Return(errDiskGone)
		m := depreciation.NewManager(records, store.NewMemory())

		_, err := m.Recompute(ctx, asset)
		assert.True(t, depreciation.IsUnavailable(err))
		records.AssertExpectations(t)
	})
}
