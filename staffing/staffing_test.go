package staffing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/rates"
)

func d(y int, m time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(y, m, day)
}

func tp(y int, m time.Month, day int) *generic.TimePoint {
	t := d(y, m, day)
	return &t
}

func sellRate(amount int64) rates.History {
	return rates.History{{Amount: decimal.NewFromInt(amount), EffectiveDate: d(2024, time.January, 1)}}
}

func TestAssignment_IsActiveOn(t *testing.T) {
	ref := d(2025, time.March, 15)

	tests := []struct {
		name     string
		a        Assignment
		expected bool
	}{
		{"active open ended", Assignment{Active: true}, true},
		{"inactive flag", Assignment{Active: false}, false},
		{"starts later", Assignment{Active: true, From: tp(2025, time.March, 16)}, false},
		{"starts on ref", Assignment{Active: true, From: tp(2025, time.March, 15)}, true},
		{"ended before", Assignment{Active: true, To: tp(2025, time.March, 14)}, false},
		{"ends on ref", Assignment{Active: true, To: tp(2025, time.March, 15)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.IsActiveOn(ref))
		})
	}
}

func TestAverageSellRate(t *testing.T) {
	ref := d(2025, time.March, 15)
	alice := generic.EntityID("alice")

	projects := []Project{
		{
			ID: "p1",
			Tasks: []Task{
				{ID: "t1", Billable: true, Active: true, SellRates: sellRate(100),
					Assignments: []Assignment{{PersonID: alice, Active: true}}},
				{ID: "t2", Billable: false, Active: true, SellRates: sellRate(500),
					Assignments: []Assignment{{PersonID: alice, Active: true}}},
			},
		},
		{
			ID: "p2",
			Tasks: []Task{
				{ID: "t3", Billable: true, Active: true, SellRates: sellRate(150),
					Assignments: []Assignment{{PersonID: alice, Active: true}}},
				{ID: "t4", Billable: true, Active: true, SellRates: sellRate(900),
					Assignments: []Assignment{{PersonID: alice, Active: true, To: tp(2025, time.February, 28)}}},
				{ID: "t5", Billable: true, Active: false, SellRates: sellRate(900),
					Assignments: []Assignment{{PersonID: alice, Active: true}}},
				{ID: "t6", Billable: true, Active: true, SellRates: sellRate(900),
					Assignments: []Assignment{{PersonID: "bob", Active: true}}},
			},
		},
	}

	// (100 + 150) / 2; t2 non-billable, t4 expired, t5 inactive, t6 someone else
	assert.True(t, AverageSellRate(projects, alice, ref).Equal(decimal.NewFromInt(125)))
	assert.True(t, AverageSellRate(projects, "carol", ref).IsZero())
	assert.True(t, AverageSellRate(nil, alice, ref).IsZero())
}

func TestBonuses_For(t *testing.T) {
	bonuses := Bonuses{"alice": decimal.NewFromInt(500)}

	assert.True(t, bonuses.For("alice").Equal(decimal.NewFromInt(500)))
	assert.True(t, bonuses.For("bob").IsZero())

	var none Bonuses
	assert.True(t, none.For("alice").IsZero())
}

func TestCountWorkdayHolidays(t *testing.T) {
	march := generic.YearMonth{Year: 2025, Month: time.March}.Period()
	holidays := []Holiday{
		{Date: d(2025, time.March, 3)},  // Monday
		{Date: d(2025, time.March, 3)},  // duplicate day
		{Date: d(2025, time.March, 8)},  // Saturday
		{Date: d(2025, time.April, 1)},  // outside
		{Date: d(2025, time.March, 17)}, // Monday
	}
	assert.Equal(t, 2, CountWorkdayHolidays(holidays, march))
}

func TestPerson_Validate(t *testing.T) {
	valid := Person{ID: "p", Type: Employee, OvertimeMode: OvertimeNone, HoursPerWeek: decimal.NewFromInt(40)}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Type = "intern"
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidInput)

	bad = valid
	bad.StartDate, bad.EndDate = tp(2025, time.March, 10), tp(2025, time.March, 1)
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidPeriod)
}
