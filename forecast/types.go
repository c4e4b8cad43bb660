/*
Package forecast computes the monthly staffing forecast.

PURPOSE:
  For a target month, every person on the roster gets a row of projected
  hours, revenue and cost, and the rows roll up into portfolio totals.
  Each field of a row is the user's override when one is stored, else the
  computed default.

KEY CONCEPTS:
  - Compute: pure function from an Input snapshot to a Result
  - Row: one person's projection; Totals: the roll-up
  - Combine: adds several months' totals
  - Snapshot: a saved Result, kept for later comparison
  - Service: loads the inputs through narrow interfaces, then calls Compute

FORECAST HOURS:
  employee:    max(0, billable - holidays - leave)
  contractor:  max(0, billable - holidays)
  potential:   pro-rated by calendar days from the start date, see potentialHours

NUMERIC POLICY:
  Hours are rounded to Options.Precision places. Money is computed from the
  rounded hours and rounded again. Margin is derived from the rounded
  amounts, so Revenue - Cost - Bonus == Margin holds exactly in every Row
  and Revenue - Cost == Margin in Totals, where Cost includes bonuses.

SEE ALSO:
  - overlay/: stored overrides
  - rates/: rate resolution
*/
package forecast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/staffing"
)

// =============================================================================
// OPTIONS
// =============================================================================

// RateReference selects the date rates are resolved against.
type RateReference string

const (
	// RateReferenceToday resolves rates on Input.ReferenceDate.
	RateReferenceToday RateReference = "today"
	// RateReferenceMonthStart resolves rates on the first day of the month.
	RateReferenceMonthStart RateReference = "month_start"
)

// SellRateScope selects where a person's default sell rate comes from.
type SellRateScope string

const (
	// SellRateScopeTask averages the sell rates of the person's billable tasks.
	SellRateScopeTask SellRateScope = "task"
	// SellRateScopePerson uses the person's own sell rate history.
	SellRateScopePerson SellRateScope = "person"
)

type Options struct {
	RateReference   RateReference
	SellRateScope   SellRateScope
	HoursPerHoliday decimal.Decimal
	Precision       int32
}

func DefaultOptions() Options {
	return Options{
		RateReference:   RateReferenceToday,
		SellRateScope:   SellRateScopeTask,
		HoursPerHoliday: decimal.NewFromInt(8),
		Precision:       2,
	}
}

// withDefaults treats the zero Options as DefaultOptions and fills empty
// enum fields. Zero holiday hours and zero precision are kept when set
// alongside other fields.
func (o Options) withDefaults() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	if o.RateReference == "" {
		o.RateReference = RateReferenceToday
	}
	if o.SellRateScope == "" {
		o.SellRateScope = SellRateScopeTask
	}
	return o
}

func (o Options) Validate() error {
	if o.RateReference != RateReferenceToday && o.RateReference != RateReferenceMonthStart {
		return fmt.Errorf("%w: unknown rate reference %q", generic.ErrInvalidInput, o.RateReference)
	}
	if o.SellRateScope != SellRateScopeTask && o.SellRateScope != SellRateScopePerson {
		return fmt.Errorf("%w: unknown sell rate scope %q", generic.ErrInvalidInput, o.SellRateScope)
	}
	if o.HoursPerHoliday.IsNegative() || o.Precision < 0 {
		return fmt.Errorf("%w: negative holiday hours or precision", generic.ErrInvalidInput)
	}
	return nil
}

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

type Input struct {
	Roster   []staffing.Person
	Projects []staffing.Project
	Leave    []leave.Record

	// HolidayCount is the number of public holidays on weekdays of Month.
	HolidayCount int

	Bonuses staffing.Bonuses
	Overlay overlay.Snapshot
	Month   generic.YearMonth

	// ReferenceDate is "today" for RateReferenceToday. Ignored otherwise.
	ReferenceDate generic.TimePoint

	Options Options
}

type Row struct {
	PersonID  generic.EntityID        `json:"personId"`
	Name      string                  `json:"name"`
	Type      staffing.EmploymentType `json:"type"`
	Potential bool                    `json:"potential"`

	HoursPerWeek       decimal.Decimal `json:"hoursPerWeek"`
	BillablePercentage decimal.Decimal `json:"billablePercentage"`
	SellRate           decimal.Decimal `json:"sellRate"`
	CostRate           decimal.Decimal `json:"costRate"`
	PlannedBonus       decimal.Decimal `json:"plannedBonus"`

	WorkingDays   int             `json:"workingDays"`
	EffectiveDays int             `json:"effectiveDays"`
	BaseHours     decimal.Decimal `json:"baseHours"`
	BillableHours decimal.Decimal `json:"billableHours"`
	HolidayHours  decimal.Decimal `json:"holidayHours"`
	LeaveHours    decimal.Decimal `json:"leaveHours"`
	ForecastHours decimal.Decimal `json:"forecastHours"`

	Revenue decimal.Decimal `json:"revenue"`
	// Cost excludes the bonus; Totals.Cost includes it.
	Cost   decimal.Decimal `json:"cost"`
	Bonus  decimal.Decimal `json:"bonus"`
	Margin decimal.Decimal `json:"margin"`

	// Overridden lists the fields whose value came from the overlay.
	Overridden []overlay.Field `json:"overridden,omitempty"`
}

// Totals aggregates the rows of a month. Every row counts once in either
// EmployeeCount or ContractorCount by type; PotentialCount additionally
// counts the planned hires among them.
type Totals struct {
	Revenue         decimal.Decimal `json:"revenue"`
	Cost            decimal.Decimal `json:"cost"`
	Bonus           decimal.Decimal `json:"bonus"`
	Margin          decimal.Decimal `json:"margin"`
	MarginPercent   decimal.Decimal `json:"marginPercent"`
	EmployeeCount   int             `json:"employeeCount"`
	ContractorCount int             `json:"contractorCount"`
	PotentialCount  int             `json:"potentialCount"`
	LeaveHours      decimal.Decimal `json:"leaveHours"`
	ForecastHours   decimal.Decimal `json:"forecastHours"`
}

type Result struct {
	Month         generic.YearMonth `json:"month"`
	ReferenceDate generic.TimePoint `json:"referenceDate"`
	WorkingDays   int               `json:"workingDays"`
	HolidayCount  int               `json:"holidayCount"`
	Rows          []Row             `json:"rows"`
	Totals        Totals            `json:"totals"`
}

// =============================================================================
// SAVED SNAPSHOTS
// =============================================================================

// Snapshot is a saved forecast. Names are unique; the scheduler relies on
// that to save each closed month once.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Month     string    `json:"month"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}
