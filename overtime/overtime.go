/*
Package overtime computes overtime for a pay period and splits it across
the projects the hours were logged on.

PURPOSE:
  An employee's standard hours for a period are their daily hours times the
  period's working days. Eligible hours above that are overtime. Overtime is
  attributed to projects in proportion to the eligible hours logged on each.

ELIGIBILITY:
  An entry counts when its owner is an employee, the owner's overtime mode
  is not "none", the entry date lies in the period, and either the mode is
  "all" or the entry's project is overtime-inclusive.

ALLOCATION:
  overtime(project) = projectHours * overtime / sum(projectHours)
  Shares are truncated to two places and the missing hundredths go to the
  shares with the largest remainders, so lines always sum to the person's
  overtime. A zero basis yields an empty breakdown, never a division.

SEE ALSO:
  - service.go: loading inputs and idempotent payroll submission
  - submission/: the submission ledger
*/
package overtime

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/staffing"
)

const precision = 2

// =============================================================================
// TYPES
// =============================================================================

type Input struct {
	Employees   []staffing.Person
	TimeEntries []staffing.TimeEntry
	Projects    []staffing.Project
	Approvals   []staffing.Approval
	Period      generic.Period
}

type ProjectOvertime struct {
	ProjectID      generic.EntityID        `json:"projectId"`
	ProjectName    string                  `json:"projectName"`
	Hours          decimal.Decimal         `json:"hours"`
	OvertimeHours  decimal.Decimal         `json:"overtimeHours"`
	ApprovalStatus staffing.ApprovalStatus `json:"approvalStatus"`
}

type Entry struct {
	PersonID      generic.EntityID  `json:"personId"`
	Name          string            `json:"name"`
	HoursPerWeek  decimal.Decimal   `json:"hoursPerWeek"`
	StandardHours decimal.Decimal   `json:"standardHours"`
	TotalHours    decimal.Decimal   `json:"totalHours"`
	OvertimeHours decimal.Decimal   `json:"overtimeHours"`
	Projects      []ProjectOvertime `json:"projects"`

	// EmptyBasis is set when overtime exists but no project hours back it.
	EmptyBasis bool `json:"emptyBasis,omitempty"`
}

type Summary struct {
	TotalOvertimeHours decimal.Decimal `json:"totalOvertimeHours"`
	TotalUsers         int             `json:"totalUsers"`
	WorkingDays        int             `json:"workingDays"`
}

type Report struct {
	Period  generic.Period `json:"period"`
	Entries []Entry        `json:"entries"`
	Summary Summary        `json:"summary"`
}

// PendingApproval is a breakdown line whose required approval is missing.
type PendingApproval struct {
	PersonID  generic.EntityID        `json:"personId"`
	ProjectID generic.EntityID        `json:"projectId"`
	Status    staffing.ApprovalStatus `json:"status"`
}

// PendingApprovals lists lines that need an approval that is not approved.
func (r Report) PendingApprovals() []PendingApproval {
	var out []PendingApproval
	for _, e := range r.Entries {
		for _, p := range e.Projects {
			if p.ApprovalStatus == staffing.ApprovalApproved || p.ApprovalStatus == staffing.ApprovalNotRequired {
				continue
			}
			out = append(out, PendingApproval{PersonID: e.PersonID, ProjectID: p.ProjectID, Status: p.ApprovalStatus})
		}
	}
	return out
}

// =============================================================================
// COMPUTE - pure, no I/O
// =============================================================================

// Compute builds the overtime report for in.Period. People without overtime
// are omitted. Entries are ordered by person id.
func Compute(in Input) Report {
	workingDays := in.Period.WorkingDays()
	projects := staffing.ProjectIndex(in.Projects)
	byPerson := groupEntries(in.TimeEntries, in.Period)

	report := Report{
		Period: in.Period,
		Summary: Summary{
			TotalOvertimeHours: decimal.Zero,
			WorkingDays:        workingDays,
		},
	}

	for _, person := range in.Employees {
		if !person.IsEmployee() || person.OvertimeMode == staffing.OvertimeNone || person.OvertimeMode == "" {
			continue
		}

		hours := make(map[generic.EntityID]decimal.Decimal)
		total := decimal.Zero
		for _, te := range byPerson[person.ID] {
			project, known := projects[te.ProjectID]
			if person.OvertimeMode != staffing.OvertimeAll && !(known && project.OvertimeInclusive) {
				continue
			}
			hours[te.ProjectID] = hours[te.ProjectID].Add(te.Hours)
			total = total.Add(te.Hours)
		}

		standard := generic.DailyHours(person.HoursPerWeek).Mul(generic.DecInt(workingDays))
		overtime := generic.NonNegative(total.Sub(standard)).Round(precision)
		if overtime.IsZero() {
			continue
		}

		entry := Entry{
			PersonID:      person.ID,
			Name:          person.Name,
			HoursPerWeek:  person.HoursPerWeek,
			StandardHours: standard.Round(precision),
			TotalHours:    total.Round(precision),
			OvertimeHours: overtime,
		}
		allocations, ok := allocate(overtime, hours)
		entry.EmptyBasis = !ok
		for _, a := range allocations {
			project := projects[a.ProjectID]
			a.ProjectName = project.Name
			if a.ProjectName == "" {
				a.ProjectName = string(a.ProjectID)
			}
			a.ApprovalStatus = approvalStatus(project, person.ID, a.ProjectID, in.Approvals, in.Period)
			entry.Projects = append(entry.Projects, a)
		}

		report.Entries = append(report.Entries, entry)
		report.Summary.TotalOvertimeHours = report.Summary.TotalOvertimeHours.Add(overtime)
	}

	sort.Slice(report.Entries, func(i, j int) bool { return report.Entries[i].PersonID < report.Entries[j].PersonID })
	report.Summary.TotalUsers = len(report.Entries)
	return report
}

func groupEntries(entries []staffing.TimeEntry, period generic.Period) map[generic.EntityID][]staffing.TimeEntry {
	out := make(map[generic.EntityID][]staffing.TimeEntry)
	for _, te := range entries {
		if !period.Contains(te.Date) {
			continue
		}
		out[te.PersonID] = append(out[te.PersonID], te)
	}
	return out
}

// allocate splits overtime across projects proportionally to hours. Lines
// are ordered by hours descending, then project id. The flag is false when
// the basis is zero, in which case no lines are returned.
func allocate(overtime decimal.Decimal, hours map[generic.EntityID]decimal.Decimal) ([]ProjectOvertime, bool) {
	basis := decimal.Zero
	for _, h := range hours {
		basis = basis.Add(h)
	}
	if !basis.IsPositive() {
		return nil, false
	}

	lines := make([]ProjectOvertime, 0, len(hours))
	for id, h := range hours {
		if h.IsZero() {
			continue
		}
		lines = append(lines, ProjectOvertime{ProjectID: id, Hours: h.Round(precision)})
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].Hours.Equal(lines[j].Hours) {
			return lines[i].Hours.GreaterThan(lines[j].Hours)
		}
		return lines[i].ProjectID < lines[j].ProjectID
	})

	// largest remainder: truncate every share to cents, then hand the
	// missing cents to the shares that lost the most
	cent := decimal.New(1, -precision)
	type remainder struct {
		index int
		value decimal.Decimal
	}
	remainders := make([]remainder, len(lines))
	allocated := decimal.Zero
	for i := range lines {
		exact := hours[lines[i].ProjectID].Mul(overtime).Div(basis)
		floor := exact.Truncate(precision)
		lines[i].OvertimeHours = floor
		allocated = allocated.Add(floor)
		remainders[i] = remainder{index: i, value: exact.Sub(floor)}
	}
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].value.GreaterThan(remainders[j].value)
	})
	missing := overtime.Sub(allocated).Div(cent).IntPart()
	for k := int64(0); k < missing && len(lines) > 0; k++ {
		i := remainders[k%int64(len(remainders))].index
		lines[i].OvertimeHours = lines[i].OvertimeHours.Add(cent)
	}
	return lines, true
}

func approvalStatus(project staffing.Project, personID, projectID generic.EntityID, approvals []staffing.Approval, period generic.Period) staffing.ApprovalStatus {
	if !project.RequiresApproval {
		return staffing.ApprovalNotRequired
	}
	for _, a := range approvals {
		if a.PersonID == personID && a.ProjectID == projectID && a.Covers(period) {
			return a.Status
		}
	}
	return staffing.ApprovalUnsubmitted
}
