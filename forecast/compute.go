package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/rates"
	"github.com/warp/staffing-engine/staffing"
)

// =============================================================================
// COMPUTE - pure, no I/O
// =============================================================================

// Compute builds the forecast for in.Month. Staff whose employment window
// misses the month entirely get no row; potential staff always get one.
func Compute(in Input) Result {
	opts := in.Options.withDefaults()

	period := in.Month.Period()
	ref := in.ReferenceDate
	if opts.RateReference == RateReferenceMonthStart || ref.IsZero() {
		ref = period.Start
	}

	c := calculator{
		opts:         opts,
		period:       period,
		daysInMonth:  in.Month.DaysInMonth(),
		workingDays:  period.WorkingDays(),
		holidayHours: generic.DecInt(in.HolidayCount).Mul(opts.HoursPerHoliday),
		ref:          ref,
		projects:     in.Projects,
		leave:        leave.ByPerson(in.Leave, period),
		bonuses:      in.Bonuses,
		overlay:      in.Overlay,
	}

	result := Result{
		Month:         in.Month,
		ReferenceDate: ref,
		WorkingDays:   c.workingDays,
		HolidayCount:  in.HolidayCount,
		Rows:          make([]Row, 0, len(in.Roster)),
	}
	for _, person := range in.Roster {
		if !person.Potential && !c.employedInMonth(person) {
			continue
		}
		result.Rows = append(result.Rows, c.row(person))
	}
	result.Totals = Summarize(result.Rows)
	return result
}

type calculator struct {
	opts         Options
	period       generic.Period
	daysInMonth  int
	workingDays  int
	holidayHours decimal.Decimal
	ref          generic.TimePoint
	projects     []staffing.Project
	leave        map[generic.EntityID]decimal.Decimal
	bonuses      staffing.Bonuses
	overlay      overlay.Snapshot
}

func (c calculator) employedInMonth(p staffing.Person) bool {
	_, ok := c.period.Clip(p.StartDate, p.EndDate)
	return ok
}

// field resolves overlay ?? default and records overridden fields on row.
func (c calculator) field(row *Row, field overlay.Field, def func() decimal.Decimal) decimal.Decimal {
	key := overlay.SubjectOf(row.PersonID, row.Potential).Key(field)
	if v, ok := c.overlay.Lookup(key); ok {
		row.Overridden = append(row.Overridden, field)
		return v
	}
	return def()
}

func (c calculator) row(p staffing.Person) Row {
	precision := c.opts.Precision
	row := Row{
		PersonID:    p.ID,
		Name:        p.Name,
		Type:        p.Type,
		Potential:   p.Potential,
		WorkingDays: c.workingDays,
	}

	row.HoursPerWeek = c.field(&row, overlay.FieldHoursPerWeek, func() decimal.Decimal { return p.HoursPerWeek })
	row.BillablePercentage = c.field(&row, overlay.FieldBillablePercentage, func() decimal.Decimal { return p.BillablePercentage })
	row.SellRate = c.field(&row, overlay.FieldSellRate, func() decimal.Decimal {
		if c.opts.SellRateScope == SellRateScopePerson {
			return rates.Resolve(p.SellRates, c.ref)
		}
		return staffing.AverageSellRate(c.projects, p.ID, c.ref)
	}).Round(precision)
	row.CostRate = c.field(&row, overlay.FieldCostRate, func() decimal.Decimal {
		return rates.Resolve(p.CostRates, c.ref)
	}).Round(precision)
	row.PlannedBonus = c.field(&row, overlay.FieldPlannedBonus, func() decimal.Decimal {
		return c.bonuses.For(p.ID)
	}).Round(precision)

	daily := generic.DailyHours(row.HoursPerWeek)
	row.EffectiveDays = generic.EffectiveWorkingDays(c.period.Start, c.period.End, p.StartDate, p.EndDate)
	base := daily.Mul(generic.DecInt(row.EffectiveDays))
	billable := base.Mul(row.BillablePercentage).Div(generic.Hundred)

	row.BaseHours = base.Round(precision)
	row.BillableHours = billable.Round(precision)
	row.HolidayHours = c.holidayHours.Round(precision)
	if p.IsEmployee() {
		row.LeaveHours = c.leave[p.ID].Round(precision)
	} else {
		row.LeaveHours = decimal.Zero
	}

	row.ForecastHours = c.field(&row, overlay.FieldForecastHours, func() decimal.Decimal {
		return c.defaultForecastHours(p, row.HoursPerWeek, billable)
	}).Round(precision)

	row.Revenue = row.ForecastHours.Mul(row.SellRate).Round(precision)
	if p.IsContractor() {
		row.Cost = row.ForecastHours.Mul(row.CostRate).Round(precision)
	} else {
		row.Cost = row.BaseHours.Mul(row.CostRate).Round(precision)
	}
	row.Bonus = row.PlannedBonus
	row.Margin = row.Revenue.Sub(row.Cost).Sub(row.Bonus)
	return row
}

func (c calculator) defaultForecastHours(p staffing.Person, hoursPerWeek, billable decimal.Decimal) decimal.Decimal {
	if p.Potential {
		return c.potentialHours(p, hoursPerWeek)
	}
	hours := billable.Sub(c.holidayHours)
	if p.IsEmployee() {
		hours = hours.Sub(c.leave[p.ID])
	}
	return generic.NonNegative(hours)
}

// potentialHours pro-rates a planned hire by the calendar-day fraction of the
// month from the start date on, applied to the working days of the whole
// month. Holidays, leave and billable percentage are not applied.
func (c calculator) potentialHours(p staffing.Person, hoursPerWeek decimal.Decimal) decimal.Decimal {
	daily := generic.DailyHours(hoursPerWeek)
	full := daily.Mul(generic.DecInt(c.workingDays))
	if p.StartDate == nil || p.StartDate.BeforeOrEqual(c.period.Start) {
		return full
	}
	if p.StartDate.After(c.period.End) {
		return decimal.Zero
	}
	remainingDays := generic.DecInt(c.daysInMonth - p.StartDate.Day() + 1)
	remainingWorkingDays := generic.DecInt(c.workingDays).Mul(remainingDays).Div(generic.DecInt(c.daysInMonth))
	return daily.Mul(remainingWorkingDays)
}

// =============================================================================
// TOTALS
// =============================================================================

// Summarize rolls rows up into totals. Cost includes bonuses.
func Summarize(rows []Row) Totals {
	t := Totals{
		Revenue:       decimal.Zero,
		Cost:          decimal.Zero,
		Bonus:         decimal.Zero,
		LeaveHours:    decimal.Zero,
		ForecastHours: decimal.Zero,
	}
	for _, r := range rows {
		t.Revenue = t.Revenue.Add(r.Revenue)
		t.Cost = t.Cost.Add(r.Cost).Add(r.Bonus)
		t.Bonus = t.Bonus.Add(r.Bonus)
		t.LeaveHours = t.LeaveHours.Add(r.LeaveHours)
		t.ForecastHours = t.ForecastHours.Add(r.ForecastHours)
		if r.Type == staffing.Contractor {
			t.ContractorCount++
		} else {
			t.EmployeeCount++
		}
		if r.Potential {
			t.PotentialCount++
		}
	}
	t.Margin = t.Revenue.Sub(t.Cost)
	t.MarginPercent = marginPercent(t.Revenue, t.Margin)
	return t
}

// Combine adds several months' totals field by field. The margin percentage
// is recomputed from the summed revenue and margin, never averaged.
func Combine(totals ...Totals) Totals {
	out := Totals{
		Revenue:       decimal.Zero,
		Cost:          decimal.Zero,
		Bonus:         decimal.Zero,
		Margin:        decimal.Zero,
		LeaveHours:    decimal.Zero,
		ForecastHours: decimal.Zero,
	}
	for _, t := range totals {
		out.Revenue = out.Revenue.Add(t.Revenue)
		out.Cost = out.Cost.Add(t.Cost)
		out.Bonus = out.Bonus.Add(t.Bonus)
		out.Margin = out.Margin.Add(t.Margin)
		out.LeaveHours = out.LeaveHours.Add(t.LeaveHours)
		out.ForecastHours = out.ForecastHours.Add(t.ForecastHours)
		out.EmployeeCount += t.EmployeeCount
		out.ContractorCount += t.ContractorCount
		out.PotentialCount += t.PotentialCount
	}
	out.MarginPercent = marginPercent(out.Revenue, out.Margin)
	return out
}

func marginPercent(revenue, margin decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return margin.Div(revenue).Mul(generic.Hundred).Round(2)
}
