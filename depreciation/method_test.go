package depreciation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-assets/depreciation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type row struct {
	year                       int
	annual, accumulated, value string
}

func assertSchedule(t *testing.T, want []row, got []depreciation.AmortizationEntry) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.year, got[i].Year, "year of entry %d", i)
		assert.Equal(t, w.annual, got[i].AnnualDepreciation.StringFixed(2), "annual of entry %d", i)
		assert.Equal(t, w.accumulated, got[i].AccumulatedDepreciation.StringFixed(2), "accumulated of entry %d", i)
		assert.Equal(t, w.value, got[i].BookValue.StringFixed(2), "book value of entry %d", i)
	}
}

// assertInvariants checks the properties every strategy must satisfy.
func assertInvariants(t *testing.T, cost decimal.Decimal, life, startYear int, got []depreciation.AmortizationEntry) {
	t.Helper()
	require.Len(t, got, life)
	for i, e := range got {
		assert.Equal(t, startYear+i, e.Year)
		assert.False(t, e.BookValue.IsNegative(), "book value must never be negative")
		assert.True(t, e.AccumulatedDepreciation.Add(e.BookValue).Round(2).Equal(cost.Round(2)),
			"accumulated + book must equal cost at year %d", e.Year)
		if i > 0 {
			assert.True(t, e.BookValue.LessThanOrEqual(got[i-1].BookValue),
				"book value must not increase at year %d", e.Year)
		}
	}
}

// =============================================================================
// STRAIGHT LINE
// =============================================================================

func TestStraightLine_ReferenceSchedule(t *testing.T) {
	// GIVEN: cost 10000, salvage 1000, 5 years from 2023
	// THEN: 1800 per year, book value ends at salvage

	got, err := depreciation.StraightLine{}.Schedule(dec("10000"), dec("1000"), 5, 2023)
	require.NoError(t, err)

	assertSchedule(t, []row{
		{2023, "1800.00", "1800.00", "8200.00"},
		{2024, "1800.00", "3600.00", "6400.00"},
		{2025, "1800.00", "5400.00", "4600.00"},
		{2026, "1800.00", "7200.00", "2800.00"},
		{2027, "1800.00", "9000.00", "1000.00"},
	}, got)
}

func TestStraightLine_Invariants(t *testing.T) {
	cases := []struct {
		cost, salvage string
		life          int
	}{
		{"10000", "1000", 5},
		{"10000", "0", 3},
		{"999.99", "0.01", 7},
		{"125430.57", "12543.06", 8},
		{"0.01", "0", 2},
		{"350000", "35000", 10},
	}

	for _, tc := range cases {
		t.Run(tc.cost+"/"+tc.salvage, func(t *testing.T) {
			got, err := depreciation.StraightLine{}.Schedule(dec(tc.cost), dec(tc.salvage), tc.life, 2020)
			require.NoError(t, err)
			assertInvariants(t, dec(tc.cost), tc.life, 2020, got)

			for _, e := range got {
				assert.True(t, e.AnnualDepreciation.Equal(got[0].AnnualDepreciation), "annual amount must be constant")
			}
		})
	}
}

func TestStraightLine_RoundingNeverLeavesNegativeBook(t *testing.T) {
	// 10000 / 3 does not divide evenly; the last year must land on 0.00.
	got, err := depreciation.StraightLine{}.Schedule(dec("10000"), decimal.Zero, 3, 2024)
	require.NoError(t, err)

	last := got[len(got)-1]
	assert.Equal(t, "3333.33", last.AnnualDepreciation.StringFixed(2))
	assert.Equal(t, "10000.00", last.AccumulatedDepreciation.StringFixed(2))
	assert.Equal(t, "0.00", last.BookValue.StringFixed(2))
}

func TestStraightLine_DegenerateLife(t *testing.T) {
	for _, life := range []int{0, -3} {
		got, err := depreciation.StraightLine{}.Schedule(dec("5000"), dec("500"), life, 2025)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 2025, got[0].Year)
		assert.True(t, got[0].AnnualDepreciation.IsZero())
		assert.True(t, got[0].AccumulatedDepreciation.IsZero())
		assert.Equal(t, "5000.00", got[0].BookValue.StringFixed(2))
	}
}

// =============================================================================
// OTHER METHODS
// =============================================================================

func TestDecliningBalance_ClosesToSalvage(t *testing.T) {
	got, err := depreciation.DecliningBalance{}.Schedule(dec("10000"), dec("1000"), 5, 2023)
	require.NoError(t, err)

	assertSchedule(t, []row{
		{2023, "4000.00", "4000.00", "6000.00"},
		{2024, "2400.00", "6400.00", "3600.00"},
		{2025, "1440.00", "7840.00", "2160.00"},
		{2026, "864.00", "8704.00", "1296.00"},
		{2027, "296.00", "9000.00", "1000.00"},
	}, got)
	assertInvariants(t, dec("10000"), 5, 2023, got)
}

func TestDecliningBalance_StopsAtSalvage(t *testing.T) {
	// With a high salvage the double rate reaches it early; later years are zero.
	got, err := depreciation.DecliningBalance{}.Schedule(dec("10000"), dec("5000"), 4, 2023)
	require.NoError(t, err)
	assertInvariants(t, dec("10000"), 4, 2023, got)

	assert.Equal(t, "5000.00", got[0].AnnualDepreciation.StringFixed(2))
	for _, e := range got[1:] {
		assert.True(t, e.AnnualDepreciation.IsZero())
		assert.Equal(t, "5000.00", e.BookValue.StringFixed(2))
	}
}

func TestSumOfYearsDigits(t *testing.T) {
	got, err := depreciation.SumOfYearsDigits{}.Schedule(dec("10000"), dec("1000"), 4, 2022)
	require.NoError(t, err)

	assertSchedule(t, []row{
		{2022, "3600.00", "3600.00", "6400.00"},
		{2023, "2700.00", "6300.00", "3700.00"},
		{2024, "1800.00", "8100.00", "1900.00"},
		{2025, "900.00", "9000.00", "1000.00"},
	}, got)
}

func TestUnitsOfProduction_NotImplemented(t *testing.T) {
	_, err := depreciation.UnitsOfProduction{}.Schedule(dec("10000"), dec("1000"), 5, 2023)
	assert.ErrorIs(t, err, depreciation.ErrMethodNotImplemented)
}

// =============================================================================
// METHOD SELECTION
// =============================================================================

func TestParseMethod(t *testing.T) {
	cases := map[string]depreciation.Method{
		"straight_line":          depreciation.MethodStraightLine,
		"Línea Recta":            depreciation.MethodStraightLine,
		"LINEAL":                 depreciation.MethodStraightLine,
		"saldo_decreciente":      depreciation.MethodDecliningBalance,
		"declining-balance":      depreciation.MethodDecliningBalance,
		"Suma de Dígitos":        depreciation.MethodSumOfYearsDigits,
		"units_of_production":    depreciation.MethodUnitsOfProduction,
		"Unidades de Producción": depreciation.MethodUnitsOfProduction,
	}
	for in, want := range cases {
		got, ok := depreciation.ParseMethod(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := depreciation.ParseMethod("revaluation")
	assert.False(t, ok)
}

func TestResolveMethod_FallsBackToStraightLine(t *testing.T) {
	assert.Equal(t, depreciation.MethodStraightLine, depreciation.ResolveMethod(""))
	assert.Equal(t, depreciation.MethodStraightLine, depreciation.ResolveMethod("revaluation"))
	assert.Equal(t, depreciation.MethodDecliningBalance, depreciation.ResolveMethod("declining_balance"))

	assert.Equal(t, depreciation.MethodStraightLine, depreciation.StrategyFor("bogus").Method())
}
