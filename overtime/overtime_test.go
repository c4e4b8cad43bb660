package overtime

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/staffing"
	"github.com/warp/staffing-engine/submission"
)

// November 2025 has 20 working days.
var november = generic.YearMonth{Year: 2025, Month: time.November}.Period()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	if !dec(expected).Equal(actual) {
		assert.Failf(t, "decimal mismatch", "expected %s, got %s", expected, actual.String())
	}
}

func worker(id string, mode staffing.OvertimeMode) staffing.Person {
	return staffing.Person{
		ID:           generic.EntityID(id),
		Name:         id,
		Type:         staffing.Employee,
		HoursPerWeek: dec("40"),
		OvertimeMode: mode,
	}
}

// logHours spreads total hours over the first weekdays of the period in 10h entries.
func logHours(personID, projectID string, total int) []staffing.TimeEntry {
	var out []staffing.TimeEntry
	d := november.Start
	for i := 0; total > 0; i++ {
		for d.IsWeekend() {
			d = d.AddDays(1)
		}
		h := 10
		if total < h {
			h = total
		}
		out = append(out, staffing.TimeEntry{
			ID:        fmt.Sprintf("%s-%s-%d", personID, projectID, i),
			PersonID:  generic.EntityID(personID),
			ProjectID: generic.EntityID(projectID),
			Date:      d,
			Hours:     decimal.NewFromInt(int64(h)),
		})
		total -= h
		d = d.AddDays(1)
	}
	return out
}

var (
	inclusiveA = staffing.Project{ID: "a", Name: "Alpha", OvertimeInclusive: true}
	inclusiveB = staffing.Project{ID: "b", Name: "Beta", OvertimeInclusive: true}
	exclusive  = staffing.Project{ID: "x", Name: "Internal"}
)

func TestCompute_ProportionalSplit(t *testing.T) {
	entries := append(logHours("alice", "a", 120), logHours("alice", "b", 60)...)

	report := Compute(Input{
		Employees:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		TimeEntries: entries,
		Projects:    []staffing.Project{inclusiveA, inclusiveB},
		Period:      november,
	})

	require.Len(t, report.Entries, 1)
	e := report.Entries[0]
	assertDec(t, "160", e.StandardHours)
	assertDec(t, "180", e.TotalHours)
	assertDec(t, "20", e.OvertimeHours)
	require.Len(t, e.Projects, 2)
	assert.Equal(t, generic.EntityID("a"), e.Projects[0].ProjectID)
	assertDec(t, "13.33", e.Projects[0].OvertimeHours)
	assertDec(t, "6.67", e.Projects[1].OvertimeHours)
	assert.Equal(t, "Alpha", e.Projects[0].ProjectName)

	assert.Equal(t, 1, report.Summary.TotalUsers)
	assert.Equal(t, 20, report.Summary.WorkingDays)
	assertDec(t, "20", report.Summary.TotalOvertimeHours)
}

func TestCompute_Eligibility(t *testing.T) {
	contractor := worker("carl", staffing.OvertimeAll)
	contractor.Type = staffing.Contractor

	tests := []struct {
		name     string
		person   staffing.Person
		project  string
		expected string // overtime; "" means omitted
	}{
		{"eligible on inclusive project", worker("p", staffing.OvertimeEligible), "a", "10"},
		{"eligible on exclusive project", worker("p", staffing.OvertimeEligible), "x", ""},
		{"all on exclusive project", worker("p", staffing.OvertimeAll), "x", "10"},
		{"all on unknown project", worker("p", staffing.OvertimeAll), "ghost", "10"},
		{"none on inclusive project", worker("p", staffing.OvertimeNone), "a", ""},
		{"contractor never", contractor, "a", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Compute(Input{
				Employees:   []staffing.Person{tt.person},
				TimeEntries: logHours(string(tt.person.ID), tt.project, 170),
				Projects:    []staffing.Project{inclusiveA, exclusive},
				Period:      november,
			})
			if tt.expected == "" {
				assert.Empty(t, report.Entries)
				return
			}
			require.Len(t, report.Entries, 1)
			assertDec(t, tt.expected, report.Entries[0].OvertimeHours)
		})
	}
}

func TestCompute_MixedProjectsOnlyEligibleHoursCount(t *testing.T) {
	entries := append(logHours("alice", "a", 150), logHours("alice", "x", 40)...)

	report := Compute(Input{
		Employees:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		TimeEntries: entries,
		Projects:    []staffing.Project{inclusiveA, exclusive},
		Period:      november,
	})
	assert.Empty(t, report.Entries, "150 eligible hours is below 160 standard")
}

func TestCompute_EntriesOutsidePeriodIgnored(t *testing.T) {
	entries := logHours("alice", "a", 170)
	entries = append(entries, staffing.TimeEntry{
		PersonID: "alice", ProjectID: "a", Date: november.End.AddDays(1), Hours: dec("50"),
	})

	report := Compute(Input{
		Employees:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		TimeEntries: entries,
		Projects:    []staffing.Project{inclusiveA},
		Period:      november,
	})
	require.Len(t, report.Entries, 1)
	assertDec(t, "10", report.Entries[0].OvertimeHours)
}

func TestCompute_NoOvertimeOmitted(t *testing.T) {
	report := Compute(Input{
		Employees:   []staffing.Person{worker("alice", staffing.OvertimeAll), worker("bob", staffing.OvertimeAll)},
		TimeEntries: append(logHours("alice", "a", 160), logHours("bob", "a", 165)...),
		Projects:    []staffing.Project{inclusiveA},
		Period:      november,
	})
	require.Len(t, report.Entries, 1)
	assert.Equal(t, generic.EntityID("bob"), report.Entries[0].PersonID)
	assert.Equal(t, 1, report.Summary.TotalUsers)
}

func TestAllocate_ZeroBasisYieldsEmptyBreakdown(t *testing.T) {
	lines, ok := allocate(dec("5"), map[generic.EntityID]decimal.Decimal{})
	assert.False(t, ok)
	assert.Empty(t, lines)

	lines, ok = allocate(dec("5"), map[generic.EntityID]decimal.Decimal{"a": dec("8"), "b": dec("-8")})
	assert.False(t, ok)
	assert.Empty(t, lines)
}

func TestAllocate_ThreeWaySplitSumsExactly(t *testing.T) {
	lines, ok := allocate(dec("20"), map[generic.EntityID]decimal.Decimal{"a": dec("60"), "b": dec("60"), "c": dec("60")})
	require.True(t, ok)
	require.Len(t, lines, 3)
	assertDec(t, "6.67", lines[0].OvertimeHours)
	assertDec(t, "6.67", lines[1].OvertimeHours)
	assertDec(t, "6.66", lines[2].OvertimeHours)
}

func TestCompute_ConservesOvertime(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	projects := []staffing.Project{inclusiveA, inclusiveB, {ID: "c", OvertimeInclusive: true}, {ID: "d", OvertimeInclusive: true}}

	for run := 0; run < 100; run++ {
		var entries []staffing.TimeEntry
		for _, p := range projects {
			for i := 0; i < rng.Intn(6); i++ {
				entries = append(entries, staffing.TimeEntry{
					PersonID:  "alice",
					ProjectID: p.ID,
					Date:      november.Start.AddDays(rng.Intn(30)),
					Hours:     decimal.NewFromFloat(float64(1+rng.Intn(4000)) / 100),
				})
			}
		}
		person := worker("alice", staffing.OvertimeAll)
		person.HoursPerWeek = decimal.NewFromInt(int64(rng.Intn(20)))

		report := Compute(Input{Employees: []staffing.Person{person}, TimeEntries: entries, Projects: projects, Period: november})
		for _, e := range report.Entries {
			sum := decimal.Zero
			for _, p := range e.Projects {
				assert.False(t, p.OvertimeHours.IsNegative())
				sum = sum.Add(p.OvertimeHours)
			}
			assert.True(t, sum.Equal(e.OvertimeHours), "run %d: lines %s != overtime %s", run, sum, e.OvertimeHours)
		}
	}
}

// =============================================================================
// APPROVALS
// =============================================================================

func TestCompute_ApprovalStatusJoin(t *testing.T) {
	gated := staffing.Project{ID: "g", Name: "Gated", OvertimeInclusive: true, RequiresApproval: true}
	open := staffing.Project{ID: "o", Name: "Open", OvertimeInclusive: true}
	approvals := []staffing.Approval{
		{PersonID: "alice", ProjectID: "g", PeriodStart: november.Start, PeriodEnd: november.End, Status: staffing.ApprovalPending},
		{PersonID: "bob", ProjectID: "g", PeriodStart: november.Start, PeriodEnd: november.End, Status: staffing.ApprovalApproved},
		// different period: ignored
		{PersonID: "carol", ProjectID: "g", PeriodStart: november.Start, PeriodEnd: november.Start.AddDays(14), Status: staffing.ApprovalApproved},
	}
	var entries []staffing.TimeEntry
	for _, id := range []string{"alice", "bob", "carol"} {
		entries = append(entries, logHours(id, "g", 100)...)
		entries = append(entries, logHours(id, "o", 80)...)
	}

	report := Compute(Input{
		Employees: []staffing.Person{
			worker("alice", staffing.OvertimeEligible),
			worker("bob", staffing.OvertimeEligible),
			worker("carol", staffing.OvertimeEligible),
		},
		TimeEntries: entries,
		Projects:    []staffing.Project{gated, open},
		Approvals:   approvals,
		Period:      november,
	})

	require.Len(t, report.Entries, 3)
	status := map[string]staffing.ApprovalStatus{}
	for _, e := range report.Entries {
		for _, p := range e.Projects {
			status[string(e.PersonID)+"/"+string(p.ProjectID)] = p.ApprovalStatus
		}
	}
	assert.Equal(t, staffing.ApprovalPending, status["alice/g"])
	assert.Equal(t, staffing.ApprovalApproved, status["bob/g"])
	assert.Equal(t, staffing.ApprovalUnsubmitted, status["carol/g"])
	assert.Equal(t, staffing.ApprovalNotRequired, status["alice/o"])

	pending := report.PendingApprovals()
	assert.Len(t, pending, 2)
}

// =============================================================================
// SERVICE
// =============================================================================

type stubSource struct {
	people    []staffing.Person
	projects  []staffing.Project
	entries   []staffing.TimeEntry
	approvals []staffing.Approval
}

func (s *stubSource) People(context.Context) ([]staffing.Person, error)    { return s.people, nil }
func (s *stubSource) Projects(context.Context) ([]staffing.Project, error) { return s.projects, nil }
func (s *stubSource) TimeEntries(context.Context, generic.Period) ([]staffing.TimeEntry, error) {
	return s.entries, nil
}
func (s *stubSource) Approvals(context.Context, generic.Period) ([]staffing.Approval, error) {
	return s.approvals, nil
}

func newTestService(source *stubSource, sink submission.Sink, opts Options) *Service {
	clock := &generic.MockClock{FixedNow: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}
	ledger := submission.NewLedger(submission.NewMemory(), sink, clock)
	return NewService(source, ledger, opts)
}

func TestService_SubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	deliveries := 0
	source := &stubSource{
		people:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		projects: []staffing.Project{inclusiveA, inclusiveB},
		entries:  append(logHours("alice", "a", 120), logHours("alice", "b", 60)...),
	}
	svc := newTestService(source, submission.SinkFunc(func(context.Context, submission.Submission) error {
		deliveries++
		return nil
	}), Options{})

	submitted, err := svc.IsSubmitted(ctx, november)
	require.NoError(t, err)
	assert.False(t, submitted)

	sub, err := svc.Submit(ctx, november, "admin")
	require.NoError(t, err)
	assertDec(t, "20", sub.Total)
	assert.Len(t, sub.Lines, 2)

	submitted, err = svc.IsSubmitted(ctx, november)
	require.NoError(t, err)
	assert.True(t, submitted)

	_, err = svc.Submit(ctx, november, "admin")
	assert.ErrorIs(t, err, generic.ErrAlreadySubmitted)
	assert.True(t, generic.IsConflict(err))
	assert.Equal(t, 1, deliveries)
}

func TestService_SubmitRejectsEmptyReport(t *testing.T) {
	source := &stubSource{
		people:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		projects: []staffing.Project{inclusiveA},
		entries:  logHours("alice", "a", 100),
	}
	svc := newTestService(source, submission.LogSink{}, Options{})

	_, err := svc.Submit(context.Background(), november, "admin")
	assert.ErrorIs(t, err, generic.ErrNothingToSubmit)
}

func TestService_ApprovalGate(t *testing.T) {
	ctx := context.Background()
	gated := staffing.Project{ID: "g", OvertimeInclusive: true, RequiresApproval: true}
	source := &stubSource{
		people:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		projects: []staffing.Project{gated},
		entries:  logHours("alice", "g", 170),
	}

	gatedSvc := newTestService(source, submission.LogSink{}, Options{RequireApprovals: true})
	_, err := gatedSvc.Submit(ctx, november, "admin")
	assert.ErrorIs(t, err, generic.ErrApprovalsPending)

	source.approvals = []staffing.Approval{{PersonID: "alice", ProjectID: "g", PeriodStart: november.Start, PeriodEnd: november.End, Status: staffing.ApprovalApproved}}
	_, err = gatedSvc.Submit(ctx, november, "admin")
	assert.NoError(t, err)

	source.approvals = nil
	ungated := newTestService(source, submission.LogSink{}, Options{})
	_, err = ungated.Submit(ctx, november, "admin")
	assert.NoError(t, err, "the gate is off by default")
}

func TestService_RejectsInvertedPeriod(t *testing.T) {
	svc := newTestService(&stubSource{}, submission.LogSink{}, Options{})
	_, err := svc.Report(context.Background(), generic.Period{Start: november.End, End: november.Start})
	assert.True(t, generic.IsClientError(err))
}

func TestService_SubmitRejectsOverlappingPeriod(t *testing.T) {
	ctx := context.Background()
	deliveries := 0
	source := &stubSource{
		people:   []staffing.Person{worker("alice", staffing.OvertimeEligible)},
		projects: []staffing.Project{inclusiveA},
		entries:  logHours("alice", "a", 180),
	}
	svc := newTestService(source, submission.SinkFunc(func(context.Context, submission.Submission) error {
		deliveries++
		return nil
	}), Options{})

	_, err := svc.Submit(ctx, november, "admin")
	require.NoError(t, err)

	// first week of November: 50h logged against a 40h threshold
	firstWeek, err := generic.NewPeriod(november.Start, november.Start.AddDays(6))
	require.NoError(t, err)
	report, err := svc.Report(ctx, firstWeek)
	require.NoError(t, err)
	require.False(t, report.Summary.TotalOvertimeHours.IsZero())

	_, err = svc.Submit(ctx, firstWeek, "admin")
	assert.ErrorIs(t, err, generic.ErrAlreadySubmitted)
	assert.True(t, generic.IsConflict(err))
	assert.Equal(t, 1, deliveries)

	submitted, err := svc.IsSubmitted(ctx, firstWeek)
	require.NoError(t, err)
	assert.False(t, submitted, "the overlapping period is not recorded")
}
