package factory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/staffing"
)

func TestParsePerson_Defaults(t *testing.T) {
	f := NewRosterFactory()

	p, err := f.ParsePerson([]byte(`{"id": "alice", "name": "Alice"}`))
	require.NoError(t, err)
	assert.Equal(t, staffing.Employee, p.Type)
	assert.Equal(t, staffing.OvertimeNone, p.OvertimeMode)
	assert.True(t, p.HoursPerWeek.Equal(decimal.NewFromInt(40)))
	assert.True(t, p.BillablePercentage.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, p.StartDate)
}

func TestParsePerson_Full(t *testing.T) {
	f := NewRosterFactory()

	p, err := f.ParsePerson([]byte(`{
		"id": "carl", "type": "contractor", "hours_per_week": 32, "billable_percentage": "80",
		"start_date": "2025-03-17", "overtime_mode": "all", "potential": true,
		"cost_rates": [{"amount": 50, "effective_date": "2024-01-01"}, {"amount": 60, "effective_date": "2024-06-01"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, staffing.Contractor, p.Type)
	assert.True(t, p.HoursPerWeek.Equal(decimal.NewFromInt(32)))
	assert.True(t, p.BillablePercentage.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, p.StartDate)
	assert.Equal(t, 17, p.StartDate.Day())
	assert.True(t, p.Potential)
	assert.Len(t, p.CostRates, 2)
}

func TestParsePerson_Invalid(t *testing.T) {
	f := NewRosterFactory()

	tests := map[string]string{
		"bad json":      `{`,
		"bad type":      `{"id": "x", "type": "intern"}`,
		"bad mode":      `{"id": "x", "overtime_mode": "sometimes"}`,
		"bad date":      `{"id": "x", "start_date": "17/03/2025"}`,
		"negative rate": `{"id": "x", "cost_rates": [{"amount": -1, "effective_date": "2024-01-01"}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParsePerson([]byte(doc))
			assert.True(t, generic.IsClientError(err), "got %v", err)
		})
	}
}

func TestParseProject_TaskDefaults(t *testing.T) {
	f := NewRosterFactory()

	p, err := f.ParseProject([]byte(`{
		"id": "acme", "name": "Acme", "overtime_inclusive": true,
		"tasks": [
			{"id": "build", "sell_rates": [{"amount": 100, "effective_date": "2024-01-01"}],
			 "assignments": [{"person_id": "alice", "to": "2025-12-31"}]},
			{"id": "admin", "billable": false, "active": false}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, p.Tasks, 2)
	build := p.Tasks[0]
	assert.Equal(t, generic.EntityID("acme"), build.ProjectID)
	assert.True(t, build.Billable)
	assert.True(t, build.Active)
	require.Len(t, build.Assignments, 1)
	assert.True(t, build.Assignments[0].Active)
	assert.True(t, build.AssignedOn("alice", generic.NewTimePoint(2025, time.March, 1)))
	assert.False(t, p.Tasks[1].Billable)
	assert.False(t, p.Tasks[1].Active)
}

func TestParseDocument(t *testing.T) {
	f := NewRosterFactory()

	doc, err := f.ParseDocument([]byte(`{
		"people": [{"id": "alice"}],
		"projects": [{"id": "acme"}],
		"leave": [{"person_id": "alice", "days": [{"date": "2025-03-03"}, {"date": "2025-03-04", "hours": 4}]}],
		"time_entries": [{"person_id": "alice", "project_id": "acme", "date": "2025-03-03", "hours": 9.5}],
		"approvals": [{"person_id": "alice", "project_id": "acme", "period_start": "2025-03-01", "period_end": "2025-03-31", "status": "approved"}],
		"holidays": [{"date": "2025-03-17", "name": "St Patrick"}],
		"bonuses": [{"person_id": "alice", "month": "2025-03", "amount": 500}]
	}`))
	require.NoError(t, err)

	assert.Len(t, doc.People, 1)
	assert.Len(t, doc.Projects, 1)
	require.Len(t, doc.Leave, 1)
	assert.Equal(t, leave.StatusScheduled, doc.Leave[0].Status)
	assert.True(t, doc.Leave[0].Days[0].Hours.Equal(decimal.NewFromInt(8)))
	assert.True(t, doc.Leave[0].Days[1].Hours.Equal(decimal.NewFromInt(4)))
	require.Len(t, doc.TimeEntries, 1)
	assert.NotEmpty(t, doc.TimeEntries[0].ID)
	assert.Len(t, doc.Approvals, 1)
	assert.Len(t, doc.Holidays, 1)
	require.Len(t, doc.Bonuses, 1)
	assert.Equal(t, "2025-03", doc.Bonuses[0].Month.String())
}

func TestParseDocument_ReportsElementIndex(t *testing.T) {
	_, err := NewRosterFactory().ParseDocument([]byte(`{"people": [{"id": "a"}, {"id": "b", "type": "robot"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "people[1]")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestParseLeave_DropsWeekendDays(t *testing.T) {
	f := NewRosterFactory()

	// 2025-03-07 is a Friday, 8th and 9th the weekend.
	r, err := f.ParseLeave([]byte(`{"person_id": "alice", "days": [
		{"date": "2025-03-07"}, {"date": "2025-03-08"}, {"date": "2025-03-09"}, {"date": "2025-03-10", "hours": 4}
	]}`))
	require.NoError(t, err)
	require.Len(t, r.Days, 2)
	assert.Equal(t, generic.NewTimePoint(2025, time.March, 7), r.Days[0].Date)
	assert.Equal(t, generic.NewTimePoint(2025, time.March, 10), r.Days[1].Date)

	march := generic.YearMonth{Year: 2025, Month: time.March}.Period()
	assert.True(t, leave.ByPerson([]leave.Record{*r}, march)["alice"].Equal(decimal.NewFromInt(12)))
}
