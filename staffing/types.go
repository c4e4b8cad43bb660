/*
Package staffing holds the roster and project model the engines compute over.

PURPOSE:
  The forecast and overtime engines are pure functions over already-loaded
  snapshots of people, projects, time entries and approvals. This package
  defines those shapes and the small predicates both engines share.

KEY CONCEPTS:
  - Person: an employee or contractor, optionally a "potential" hire used
    for forward planning. Carries effective-dated cost and sell rates.
  - Project / Task: billable work; tasks carry their own sell rates and the
    assignments that link people to them.
  - Assignment: a person on a task, optionally bounded by dates
  - TimeEntry: hours logged by a person against a project on a day
  - Approval: per person, project and pay period status of logged time
  - Bonuses: planned bonus per person, absent key means zero

SEE ALSO:
  - rates/: rate resolution
  - forecast/: monthly forecast
  - overtime/: overtime allocation
*/
package staffing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/rates"
)

// =============================================================================
// PERSON
// =============================================================================

type EmploymentType string

const (
	Employee   EmploymentType = "employee"
	Contractor EmploymentType = "contractor"
)

func (t EmploymentType) Valid() bool {
	return t == Employee || t == Contractor
}

// OvertimeMode controls which of a person's hours can become overtime.
type OvertimeMode string

const (
	// OvertimeNone never produces overtime.
	OvertimeNone OvertimeMode = "none"
	// OvertimeEligible counts hours on overtime-inclusive projects only.
	OvertimeEligible OvertimeMode = "eligible"
	// OvertimeAll counts hours on every project.
	OvertimeAll OvertimeMode = "all"
)

func (m OvertimeMode) Valid() bool {
	return m == OvertimeNone || m == OvertimeEligible || m == OvertimeAll
}

type Person struct {
	ID                 generic.EntityID   `json:"id"`
	Name               string             `json:"name"`
	Type               EmploymentType     `json:"type"`
	HoursPerWeek       decimal.Decimal    `json:"hoursPerWeek"`
	BillablePercentage decimal.Decimal    `json:"billablePercentage"`
	StartDate          *generic.TimePoint `json:"startDate,omitempty"`
	EndDate            *generic.TimePoint `json:"endDate,omitempty"`
	OvertimeMode       OvertimeMode       `json:"overtimeMode"`
	CostRates          rates.History      `json:"costRates"`
	SellRates          rates.History      `json:"sellRates"`

	// Potential marks a planned hire that is not yet on payroll.
	Potential bool `json:"potential"`
}

func (p Person) IsEmployee() bool   { return p.Type == Employee }
func (p Person) IsContractor() bool { return p.Type == Contractor }

// EmployedOn reports whether d lies inside the person's employment window.
func (p Person) EmployedOn(d generic.TimePoint) bool {
	if p.StartDate != nil && d.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && d.After(*p.EndDate) {
		return false
	}
	return true
}

// Validate checks the fields a caller must supply.
func (p Person) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: person id is required", generic.ErrInvalidInput)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: person %s has unknown type %q", generic.ErrInvalidInput, p.ID, p.Type)
	}
	if !p.OvertimeMode.Valid() {
		return fmt.Errorf("%w: person %s has unknown overtime mode %q", generic.ErrInvalidInput, p.ID, p.OvertimeMode)
	}
	if p.HoursPerWeek.IsNegative() || p.BillablePercentage.IsNegative() {
		return fmt.Errorf("%w: person %s has negative hours or billable percentage", generic.ErrInvalidInput, p.ID)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: person %s ends before they start", generic.ErrInvalidPeriod, p.ID)
	}
	return nil
}

// =============================================================================
// PROJECTS, TASKS, ASSIGNMENTS
// =============================================================================

type Project struct {
	ID   generic.EntityID `json:"id"`
	Name string           `json:"name"`

	// OvertimeInclusive projects accept overtime from people in eligible mode.
	OvertimeInclusive bool `json:"overtimeInclusive"`

	// RequiresApproval projects need an approved timesheet before payroll.
	RequiresApproval bool `json:"requiresApproval"`

	Tasks []Task `json:"tasks"`
}

type Task struct {
	ID          generic.EntityID `json:"id"`
	ProjectID   generic.EntityID `json:"projectId"`
	Name        string           `json:"name"`
	Billable    bool             `json:"billable"`
	Active      bool             `json:"active"`
	SellRates   rates.History    `json:"sellRates"`
	Assignments []Assignment     `json:"assignments"`
}

// Assignment links a person to a task. From and To bound it; nil is open.
type Assignment struct {
	PersonID generic.EntityID   `json:"personId"`
	Active   bool               `json:"active"`
	From     *generic.TimePoint `json:"from,omitempty"`
	To       *generic.TimePoint `json:"to,omitempty"`
}

// IsActiveOn returns true if the assignment is active at the given date.
func (a Assignment) IsActiveOn(at generic.TimePoint) bool {
	if !a.Active {
		return false
	}
	if a.From != nil && at.Before(*a.From) {
		return false
	}
	if a.To != nil && at.After(*a.To) {
		return false
	}
	return true
}

// AssignedOn reports whether the person holds an active assignment on the task.
func (t Task) AssignedOn(personID generic.EntityID, at generic.TimePoint) bool {
	for _, a := range t.Assignments {
		if a.PersonID == personID && a.IsActiveOn(at) {
			return true
		}
	}
	return false
}

// ProjectIndex maps project IDs to projects.
func ProjectIndex(projects []Project) map[generic.EntityID]Project {
	index := make(map[generic.EntityID]Project, len(projects))
	for _, p := range projects {
		index[p.ID] = p
	}
	return index
}

// =============================================================================
// TIME ENTRIES AND APPROVALS
// =============================================================================

type TimeEntry struct {
	ID        string            `json:"id"`
	PersonID  generic.EntityID  `json:"personId"`
	ProjectID generic.EntityID  `json:"projectId"`
	TaskID    generic.EntityID  `json:"taskId,omitempty"`
	Date      generic.TimePoint `json:"date"`
	Hours     decimal.Decimal   `json:"hours"`
}

type ApprovalStatus string

const (
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalRejected    ApprovalStatus = "rejected"
	ApprovalUnsubmitted ApprovalStatus = "unsubmitted"
	ApprovalNotRequired ApprovalStatus = "not_required"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalApproved, ApprovalPending, ApprovalRejected, ApprovalUnsubmitted, ApprovalNotRequired:
		return true
	}
	return false
}

// Approval is the review state of a person's time on one project for one period.
type Approval struct {
	PersonID    generic.EntityID  `json:"personId"`
	ProjectID   generic.EntityID  `json:"projectId"`
	PeriodStart generic.TimePoint `json:"periodStart"`
	PeriodEnd   generic.TimePoint `json:"periodEnd"`
	Status      ApprovalStatus    `json:"status"`
}

// Covers reports whether the approval was filed for exactly this period.
func (a Approval) Covers(period generic.Period) bool {
	return a.PeriodStart.Equal(period.Start) && a.PeriodEnd.Equal(period.End)
}

// =============================================================================
// BONUSES AND HOLIDAYS
// =============================================================================

// Bonuses holds the planned bonus per person. A person with no entry has no
// bonus; there is no distinction between "absent" and "zero".
type Bonuses map[generic.EntityID]decimal.Decimal

// For returns the planned bonus for id, zero when none is recorded.
func (b Bonuses) For(id generic.EntityID) decimal.Decimal {
	if amount, ok := b[id]; ok {
		return amount
	}
	return decimal.Zero
}

type Holiday struct {
	ID   string            `json:"id"`
	Date generic.TimePoint `json:"date"`
	Name string            `json:"name"`
}

// CountWorkdayHolidays counts holidays that fall on a weekday inside period.
// A holiday on a Saturday removes no working hours.
func CountWorkdayHolidays(holidays []Holiday, period generic.Period) int {
	seen := make(map[string]bool)
	for _, h := range holidays {
		if !period.Contains(h.Date) || h.Date.IsWeekend() {
			continue
		}
		seen[h.Date.String()] = true
	}
	return len(seen)
}
