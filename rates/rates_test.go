package rates_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/rates"
)

func entry(amount int64, date string) rates.Entry {
	d, err := generic.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return rates.Entry{Amount: decimal.NewFromInt(amount), EffectiveDate: d}
}

func day(s string) generic.TimePoint {
	d, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolve_PicksLatestNotAfterReference(t *testing.T) {
	history := rates.History{entry(50, "2024-01-01"), entry(60, "2024-06-01")}

	assert.True(t, rates.Resolve(history, day("2024-03-15")).Equal(decimal.NewFromInt(50)))
	assert.True(t, rates.Resolve(history, day("2024-07-01")).Equal(decimal.NewFromInt(60)))
	assert.True(t, rates.Resolve(history, day("2024-06-01")).Equal(decimal.NewFromInt(60)), "effective date is inclusive")
}

func TestResolve_OrderOfInsertionDoesNotMatterForDistinctDates(t *testing.T) {
	history := rates.History{entry(60, "2024-06-01"), entry(50, "2024-01-01")}

	assert.True(t, rates.Resolve(history, day("2024-03-15")).Equal(decimal.NewFromInt(50)))
	assert.True(t, rates.Resolve(history, day("2024-07-01")).Equal(decimal.NewFromInt(60)))
}

func TestResolve_NothingQualifies(t *testing.T) {
	assert.True(t, rates.Resolve(nil, day("2024-03-15")).IsZero())
	assert.True(t, rates.Resolve(rates.History{}, day("2024-03-15")).IsZero())

	future := rates.History{entry(80, "2025-01-01")}
	assert.True(t, rates.Resolve(future, day("2024-03-15")).IsZero())
}

func TestResolve_IgnoresZeroDates(t *testing.T) {
	history := rates.History{
		entry(50, "2024-01-01"),
		{Amount: decimal.NewFromInt(999)},
	}
	assert.True(t, rates.Resolve(history, day("2024-03-15")).Equal(decimal.NewFromInt(50)))

	onlyUndated := rates.History{{Amount: decimal.NewFromInt(999)}}
	assert.True(t, rates.Resolve(onlyUndated, day("2024-03-15")).IsZero())
}

func TestResolve_SameDateLaterInsertionWins(t *testing.T) {
	history := rates.History{
		entry(50, "2024-01-01"),
		entry(55, "2024-01-01"),
	}
	assert.True(t, rates.Resolve(history, day("2024-02-01")).Equal(decimal.NewFromInt(55)))

	history = history.Append(entry(57, "2024-01-01"))
	assert.True(t, rates.Resolve(history, day("2024-02-01")).Equal(decimal.NewFromInt(57)))
}

func TestResolveEntry_IsMonotonicInReferenceDate(t *testing.T) {
	history := rates.History{
		entry(40, "2023-07-01"),
		entry(60, "2024-06-01"),
		entry(50, "2024-01-01"),
		entry(70, "2025-02-15"),
	}

	start := day("2023-01-01")
	var previous *generic.TimePoint
	for ref := start; ref.Before(day("2026-01-01")); ref = ref.AddDays(7) {
		chosen, ok := rates.ResolveEntry(history, ref)
		if !ok {
			require.Nil(t, previous, "once an entry qualifies, one always qualifies for later dates")
			continue
		}
		assert.True(t, chosen.EffectiveDate.BeforeOrEqual(ref))
		if previous != nil {
			assert.True(t, chosen.EffectiveDate.AfterOrEqual(*previous), "chosen date went backwards at %s", ref)
		}
		d := chosen.EffectiveDate
		previous = &d
	}
}

func TestHistory_AppendDoesNotMutateReceiver(t *testing.T) {
	original := make(rates.History, 1, 4)
	original[0] = entry(50, "2024-01-01")

	a := original.Append(entry(60, "2024-06-01"))
	b := original.Append(entry(70, "2024-06-01"))

	assert.Len(t, original, 1)
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.True(t, a[1].Amount.Equal(decimal.NewFromInt(60)))
	assert.True(t, b[1].Amount.Equal(decimal.NewFromInt(70)))
}
