package depreciation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METHOD - Closed set of depreciation methods
// =============================================================================

type Method string

const (
	MethodStraightLine      Method = "straight_line"
	MethodDecliningBalance  Method = "declining_balance"
	MethodSumOfYearsDigits  Method = "sum_of_years_digits"
	MethodUnitsOfProduction Method = "units_of_production"
)

// methodAliases is keyed by folded text with separators collapsed to spaces.
var methodAliases = map[string]Method{
	"straight line":           MethodStraightLine,
	"lineal":                  MethodStraightLine,
	"linea recta":             MethodStraightLine,
	"declining balance":       MethodDecliningBalance,
	"double declining":        MethodDecliningBalance,
	"saldo decreciente":       MethodDecliningBalance,
	"sum of years digits":     MethodSumOfYearsDigits,
	"suma de digitos":         MethodSumOfYearsDigits,
	"suma de digitos anuales": MethodSumOfYearsDigits,
	"units of production":     MethodUnitsOfProduction,
	"unidades de produccion":  MethodUnitsOfProduction,
}

// ParseMethod recognizes a method identifier or one of its aliases.
func ParseMethod(s string) (Method, bool) {
	key := fold(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	m, ok := methodAliases[key]
	return m, ok
}

// ResolveMethod is ParseMethod with the documented fallback: empty or
// unrecognized input selects straight-line.
func ResolveMethod(s string) Method {
	if m, ok := ParseMethod(s); ok {
		return m
	}
	return MethodStraightLine
}

// =============================================================================
// STRATEGY - One calculator per method
// =============================================================================

// Strategy produces a year-by-year amortization table.
// Implementations return exactly usefulLifeYears entries in ascending year
// order, or a single zero entry when usefulLifeYears <= 0.
type Strategy interface {
	Method() Method
	Schedule(cost, salvage decimal.Decimal, usefulLifeYears, startYear int) ([]AmortizationEntry, error)
}

// StrategyFor returns the calculator for m. Unknown values get straight-line.
func StrategyFor(m Method) Strategy {
	switch m {
	case MethodDecliningBalance:
		return DecliningBalance{}
	case MethodSumOfYearsDigits:
		return SumOfYearsDigits{}
	case MethodUnitsOfProduction:
		return UnitsOfProduction{}
	default:
		return StraightLine{}
	}
}

// =============================================================================
// STRAIGHT LINE
// =============================================================================

type StraightLine struct{}

func (StraightLine) Method() Method { return MethodStraightLine }

// Schedule spreads (cost - salvage) evenly over the useful life. The annual
// amount is accumulated unrounded; rounding happens at emission only.
func (StraightLine) Schedule(cost, salvage decimal.Decimal, usefulLifeYears, startYear int) ([]AmortizationEntry, error) {
	if usefulLifeYears <= 0 {
		return degenerate(cost, startYear), nil
	}

	annual := cost.Sub(salvage).Div(decimal.NewFromInt(int64(usefulLifeYears)))
	accumulated := decimal.Zero

	entries := make([]AmortizationEntry, 0, usefulLifeYears)
	for i := 0; i < usefulLifeYears; i++ {
		accumulated = accumulated.Add(annual)
		entries = append(entries, emit(startYear+i, annual, accumulated, cost))
	}
	return entries, nil
}

// =============================================================================
// DECLINING BALANCE (double rate)
// =============================================================================

type DecliningBalance struct{}

func (DecliningBalance) Method() Method { return MethodDecliningBalance }

// Schedule applies 2/N to the opening book value each year. The book value
// never drops below salvage and the final year closes the remainder.
func (DecliningBalance) Schedule(cost, salvage decimal.Decimal, usefulLifeYears, startYear int) ([]AmortizationEntry, error) {
	if usefulLifeYears <= 0 {
		return degenerate(cost, startYear), nil
	}

	rate := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(usefulLifeYears)))
	book := cost
	accumulated := decimal.Zero

	entries := make([]AmortizationEntry, 0, usefulLifeYears)
	for i := 0; i < usefulLifeYears; i++ {
		remaining := decimal.Max(book.Sub(salvage), decimal.Zero)
		dep := decimal.Min(book.Mul(rate), remaining)
		if i == usefulLifeYears-1 {
			dep = remaining
		}
		accumulated = accumulated.Add(dep)
		book = book.Sub(dep)
		entries = append(entries, emit(startYear+i, dep, accumulated, cost))
	}
	return entries, nil
}

// =============================================================================
// SUM OF YEARS' DIGITS
// =============================================================================

type SumOfYearsDigits struct{}

func (SumOfYearsDigits) Method() Method { return MethodSumOfYearsDigits }

// Schedule weights year i (0-based) by (N-i) / (N(N+1)/2).
func (SumOfYearsDigits) Schedule(cost, salvage decimal.Decimal, usefulLifeYears, startYear int) ([]AmortizationEntry, error) {
	if usefulLifeYears <= 0 {
		return degenerate(cost, startYear), nil
	}

	n := int64(usefulLifeYears)
	digits := decimal.NewFromInt(n * (n + 1) / 2)
	base := cost.Sub(salvage)
	accumulated := decimal.Zero

	entries := make([]AmortizationEntry, 0, usefulLifeYears)
	for i := int64(0); i < n; i++ {
		dep := base.Mul(decimal.NewFromInt(n - i)).Div(digits)
		accumulated = accumulated.Add(dep)
		entries = append(entries, emit(startYear+int(i), dep, accumulated, cost))
	}
	return entries, nil
}

// =============================================================================
// UNITS OF PRODUCTION
// =============================================================================

// UnitsOfProduction needs usage meter readings, which machinery records do
// not carry. It always returns ErrMethodNotImplemented.
type UnitsOfProduction struct{}

func (UnitsOfProduction) Method() Method { return MethodUnitsOfProduction }

func (UnitsOfProduction) Schedule(_, _ decimal.Decimal, _, _ int) ([]AmortizationEntry, error) {
	return nil, ErrMethodNotImplemented
}

// =============================================================================
// HELPERS
// =============================================================================

const hundredths = 2

// emit rounds one entry. Book value is derived from the rounded cost and
// accumulated amounts so that accumulated + book == cost holds exactly,
// floored at zero.
func emit(year int, annual, accumulated, cost decimal.Decimal) AmortizationEntry {
	acc := accumulated.Round(hundredths)
	book := decimal.Max(cost.Round(hundredths).Sub(acc), decimal.Zero)
	return AmortizationEntry{
		Year:                    year,
		AnnualDepreciation:      annual.Round(hundredths),
		AccumulatedDepreciation: acc,
		BookValue:               book,
	}
}

func degenerate(cost decimal.Decimal, startYear int) []AmortizationEntry {
	return []AmortizationEntry{{
		Year:                    startYear,
		AnnualDepreciation:      decimal.Zero,
		AccumulatedDepreciation: decimal.Zero,
		BookValue:               decimal.Max(cost.Round(hundredths), decimal.Zero),
	}}
}
