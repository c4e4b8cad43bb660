package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Closed date range [Start, End]
// =============================================================================

// Period is an inclusive date range. Forecast months and overtime pay periods
// are both Periods.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// IsEmpty reports whether the period contains no day at all.
func (p Period) IsEmpty() bool {
	return p.End.Before(p.Start)
}

// Clip narrows the period to [from, to]. Nil bounds are open. The returned
// flag is false when the intersection is empty.
func (p Period) Clip(from, to *TimePoint) (Period, bool) {
	clipped := p
	if from != nil && from.After(clipped.Start) {
		clipped.Start = *from
	}
	if to != nil && to.Before(clipped.End) {
		clipped.End = *to
	}
	if clipped.IsEmpty() {
		return Period{}, false
	}
	return clipped, true
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.End.Before(other.Start) && !other.End.Before(p.Start)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// WorkingDays counts Monday-Friday days in the period.
func (p Period) WorkingDays() int {
	return WorkingDaysInRange(p.Start, p.End)
}

// Key is a stable textual identity used for idempotency keys.
func (p Period) Key() string {
	return p.Start.String() + ".." + p.End.String()
}

// ParsePeriodKey reverses Key.
func ParsePeriodKey(key string) (Period, error) {
	start, end, ok := strings.Cut(key, "..")
	if !ok {
		return Period{}, fmt.Errorf("%w: period key %q", ErrInvalidInput, key)
	}
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(s, e)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// YEAR MONTH - Target month of a forecast
// =============================================================================

type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return YearMonth{}, fmt.Errorf("invalid month format %q (use YYYY-MM)", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year: %w", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, fmt.Errorf("invalid month %q", parts[1])
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

func (ym YearMonth) Start() TimePoint { return NewTimePoint(ym.Year, ym.Month, 1) }
func (ym YearMonth) End() TimePoint   { return ym.Start().AddMonths(1).AddDays(-1) }
func (ym YearMonth) Period() Period   { return Period{Start: ym.Start(), End: ym.End()} }
func (ym YearMonth) DaysInMonth() int { return ym.End().Day() }
func (ym YearMonth) Next() YearMonth  { return ym.Start().AddMonths(1).YearMonth() }
func (ym YearMonth) Prev() YearMonth  { return ym.Start().AddMonths(-1).YearMonth() }

// Before reports whether ym is an earlier month than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ym.String() + `"`), nil
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	parsed, err := ParseYearMonth(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
