/*
Package generic provides the time and number primitives shared by the
forecast and overtime engines.

PURPOSE:
  Every calculation in this repository is a function of calendar days and
  decimal quantities (hours, rates, money). This package holds those
  primitives so the domain packages agree on one representation.

KEY CONCEPTS:
  - TimePoint: a calendar day (time.go)
  - Period / YearMonth: closed date ranges and forecast months (period.go)
  - WorkingDaysInRange / EffectiveWorkingDays: weekday counting (workdays.go)
  - Decimal helpers: rounding and saturating arithmetic (this file)
  - Sentinel errors shared by services and the API (errors.go)

DESIGN PRINCIPLES:
  1. Precision: hours and money are decimal.Decimal, never float64
  2. Totality: helpers saturate (max 0, divide-by-zero -> 0) instead of failing
  3. No hidden "today": reference dates are always parameters

SEE ALSO:
  - rates/: effective-dated rate resolution
  - forecast/: monthly forecast aggregation
  - overtime/: overtime allocation
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// EntityID identifies any subject the engine computes for (person, task, row).
type EntityID string

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	Hundred         = decimal.NewFromInt(100)
	WorkdaysPerWeek = decimal.NewFromInt(5)
)

func DecInt(value int) decimal.Decimal { return decimal.NewFromInt(int64(value)) }

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SafeDiv returns zero when the divisor is zero.
func SafeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// DailyHours converts weekly contracted hours to hours per working day.
func DailyHours(hoursPerWeek decimal.Decimal) decimal.Decimal {
	return hoursPerWeek.Div(WorkdaysPerWeek)
}
