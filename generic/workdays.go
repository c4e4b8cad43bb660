package generic

// WorkingDaysInRange counts the days in [start, end] whose weekday is Monday
// through Friday. Public holidays are not known here; callers subtract them
// separately. An inverted range has no working days.
func WorkingDaysInRange(start, end TimePoint) int {
	if end.Before(start) {
		return 0
	}
	count := 0
	for day := start; day.BeforeOrEqual(end); day = day.AddDays(1) {
		if day.IsWorkday() {
			count++
		}
	}
	return count
}

// EffectiveWorkingDays counts the working days of [monthStart, monthEnd] during
// which a person is employed. A nil start or end means the employment window is
// open on that side. The window is clipped first and weekdays counted after,
// so a start or end date on a weekend needs no special handling.
func EffectiveWorkingDays(monthStart, monthEnd TimePoint, personStart, personEnd *TimePoint) int {
	if personStart != nil && personStart.After(monthEnd) {
		return 0
	}
	if personEnd != nil && personEnd.Before(monthStart) {
		return 0
	}
	clipped, ok := Period{Start: monthStart, End: monthEnd}.Clip(personStart, personEnd)
	if !ok {
		return 0
	}
	return WorkingDaysInRange(clipped.Start, clipped.End)
}
