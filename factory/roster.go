/*
Package factory converts JSON documents into staffing model values.

PURPOSE:
  People, projects, leave and the rest arrive as JSON documents, from the
  HTTP API or from an import file. The factory validates them, fills in
  defaults and returns the typed values the engines compute over.

JSON SCHEMA (person):
  {
    "id": "alice",
    "name": "Alice",
    "type": "employee",               // employee | contractor
    "hours_per_week": 40,             // default 40
    "billable_percentage": 100,       // default 100
    "start_date": "2025-01-06",       // optional
    "end_date": null,                 // optional
    "overtime_mode": "eligible",      // none | eligible | all, default none
    "potential": false,
    "cost_rates": [{"amount": 55, "effective_date": "2024-01-01"}],
    "sell_rates": []
  }

DEFAULTS:
  Omitted numbers take the defaults above. Tasks and assignments are
  active, and tasks billable, unless the document says otherwise.

USAGE:
  f := factory.NewRosterFactory()
  doc, err := f.ParseDocument(data)    // full import file
  person, err := f.ParsePerson(data)   // single person

SEE ALSO:
  - staffing/: the target types
  - api/dto.go: request bodies decoded through this package
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/rates"
	"github.com/warp/staffing-engine/staffing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type RateJSON struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"`
}

type PersonJSON struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Type               string           `json:"type"`
	HoursPerWeek       *decimal.Decimal `json:"hours_per_week,omitempty"`
	BillablePercentage *decimal.Decimal `json:"billable_percentage,omitempty"`
	StartDate          string           `json:"start_date,omitempty"`
	EndDate            string           `json:"end_date,omitempty"`
	OvertimeMode       string           `json:"overtime_mode,omitempty"`
	Potential          bool             `json:"potential,omitempty"`
	CostRates          []RateJSON       `json:"cost_rates,omitempty"`
	SellRates          []RateJSON       `json:"sell_rates,omitempty"`
}

type AssignmentJSON struct {
	PersonID string `json:"person_id"`
	Active   *bool  `json:"active,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

type TaskJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Billable    *bool            `json:"billable,omitempty"`
	Active      *bool            `json:"active,omitempty"`
	SellRates   []RateJSON       `json:"sell_rates,omitempty"`
	Assignments []AssignmentJSON `json:"assignments,omitempty"`
}

type ProjectJSON struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	OvertimeInclusive bool       `json:"overtime_inclusive,omitempty"`
	RequiresApproval  bool       `json:"requires_approval,omitempty"`
	Tasks             []TaskJSON `json:"tasks,omitempty"`
}

type LeaveDayJSON struct {
	Date  string           `json:"date"`
	Hours *decimal.Decimal `json:"hours,omitempty"`
}

type LeaveJSON struct {
	ID       string         `json:"id"`
	PersonID string         `json:"person_id"`
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Days     []LeaveDayJSON `json:"days"`
}

type TimeEntryJSON struct {
	ID        string          `json:"id"`
	PersonID  string          `json:"person_id"`
	ProjectID string          `json:"project_id"`
	TaskID    string          `json:"task_id,omitempty"`
	Date      string          `json:"date"`
	Hours     decimal.Decimal `json:"hours"`
}

type ApprovalJSON struct {
	PersonID    string `json:"person_id"`
	ProjectID   string `json:"project_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Status      string `json:"status"`
}

type HolidayJSON struct {
	ID   string `json:"id,omitempty"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type BonusJSON struct {
	PersonID string          `json:"person_id"`
	Month    string          `json:"month"`
	Amount   decimal.Decimal `json:"amount"`
}

// DocumentJSON is a full import file.
type DocumentJSON struct {
	People      []json.RawMessage `json:"people"`
	Projects    []json.RawMessage `json:"projects"`
	Leave       []json.RawMessage `json:"leave"`
	TimeEntries []json.RawMessage `json:"time_entries"`
	Approvals   []json.RawMessage `json:"approvals"`
	Holidays    []json.RawMessage `json:"holidays"`
	Bonuses     []json.RawMessage `json:"bonuses"`
}

// Bonus is a planned bonus for one person and month.
type Bonus struct {
	PersonID generic.EntityID
	Month    generic.YearMonth
	Amount   decimal.Decimal
}

// Document is a parsed import file.
type Document struct {
	People      []staffing.Person
	Projects    []staffing.Project
	Leave       []leave.Record
	TimeEntries []staffing.TimeEntry
	Approvals   []staffing.Approval
	Holidays    []staffing.Holiday
	Bonuses     []Bonus
}

// =============================================================================
// ROSTER FACTORY
// =============================================================================

type RosterFactory struct {
	DefaultHoursPerWeek       decimal.Decimal
	DefaultBillablePercentage decimal.Decimal
}

func NewRosterFactory() *RosterFactory {
	return &RosterFactory{
		DefaultHoursPerWeek:       decimal.NewFromInt(40),
		DefaultBillablePercentage: decimal.NewFromInt(100),
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", generic.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ParseDocument parses a full import file. The first invalid element aborts.
func (f *RosterFactory) ParseDocument(data []byte) (*Document, error) {
	var raw DocumentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid("document: %v", err)
	}
	doc := &Document{}
	for i, r := range raw.People {
		p, err := f.ParsePerson(r)
		if err != nil {
			return nil, fmt.Errorf("people[%d]: %w", i, err)
		}
		doc.People = append(doc.People, *p)
	}
	for i, r := range raw.Projects {
		p, err := f.ParseProject(r)
		if err != nil {
			return nil, fmt.Errorf("projects[%d]: %w", i, err)
		}
		doc.Projects = append(doc.Projects, *p)
	}
	for i, r := range raw.Leave {
		l, err := f.ParseLeave(r)
		if err != nil {
			return nil, fmt.Errorf("leave[%d]: %w", i, err)
		}
		doc.Leave = append(doc.Leave, *l)
	}
	for i, r := range raw.TimeEntries {
		te, err := f.ParseTimeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("time_entries[%d]: %w", i, err)
		}
		doc.TimeEntries = append(doc.TimeEntries, *te)
	}
	for i, r := range raw.Approvals {
		a, err := f.ParseApproval(r)
		if err != nil {
			return nil, fmt.Errorf("approvals[%d]: %w", i, err)
		}
		doc.Approvals = append(doc.Approvals, *a)
	}
	for i, r := range raw.Holidays {
		h, err := f.ParseHoliday(r)
		if err != nil {
			return nil, fmt.Errorf("holidays[%d]: %w", i, err)
		}
		doc.Holidays = append(doc.Holidays, *h)
	}
	for i, r := range raw.Bonuses {
		b, err := f.ParseBonus(r)
		if err != nil {
			return nil, fmt.Errorf("bonuses[%d]: %w", i, err)
		}
		doc.Bonuses = append(doc.Bonuses, *b)
	}
	return doc, nil
}

func (f *RosterFactory) ParsePerson(data []byte) (*staffing.Person, error) {
	var pj PersonJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, invalid("person: %v", err)
	}
	return f.BuildPerson(pj)
}

// BuildPerson converts a decoded document into a Person, applying defaults.
func (f *RosterFactory) BuildPerson(pj PersonJSON) (*staffing.Person, error) {
	p := &staffing.Person{
		ID:                 generic.EntityID(pj.ID),
		Name:               pj.Name,
		Type:               staffing.EmploymentType(pj.Type),
		OvertimeMode:       staffing.OvertimeMode(pj.OvertimeMode),
		Potential:          pj.Potential,
		HoursPerWeek:       f.DefaultHoursPerWeek,
		BillablePercentage: f.DefaultBillablePercentage,
	}
	if p.ID == "" {
		p.ID = generic.EntityID(uuid.NewString())
	}
	if p.Type == "" {
		p.Type = staffing.Employee
	}
	if p.OvertimeMode == "" {
		p.OvertimeMode = staffing.OvertimeNone
	}
	if pj.HoursPerWeek != nil {
		p.HoursPerWeek = *pj.HoursPerWeek
	}
	if pj.BillablePercentage != nil {
		p.BillablePercentage = *pj.BillablePercentage
	}

	var err error
	if p.StartDate, err = generic.ParseOptionalDate(pj.StartDate); err != nil {
		return nil, invalid("person %s start_date: %v", p.ID, err)
	}
	if p.EndDate, err = generic.ParseOptionalDate(pj.EndDate); err != nil {
		return nil, invalid("person %s end_date: %v", p.ID, err)
	}
	if p.CostRates, err = parseRates(pj.CostRates); err != nil {
		return nil, invalid("person %s cost_rates: %v", p.ID, err)
	}
	if p.SellRates, err = parseRates(pj.SellRates); err != nil {
		return nil, invalid("person %s sell_rates: %v", p.ID, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *RosterFactory) ParseProject(data []byte) (*staffing.Project, error) {
	var pj ProjectJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, invalid("project: %v", err)
	}
	return f.BuildProject(pj)
}

func (f *RosterFactory) BuildProject(pj ProjectJSON) (*staffing.Project, error) {
	if pj.ID == "" {
		pj.ID = uuid.NewString()
	}
	p := &staffing.Project{
		ID:                generic.EntityID(pj.ID),
		Name:              pj.Name,
		OvertimeInclusive: pj.OvertimeInclusive,
		RequiresApproval:  pj.RequiresApproval,
	}
	for _, tj := range pj.Tasks {
		task, err := f.BuildTask(p.ID, tj)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		p.Tasks = append(p.Tasks, *task)
	}
	return p, nil
}

func (f *RosterFactory) BuildTask(projectID generic.EntityID, tj TaskJSON) (*staffing.Task, error) {
	if tj.ID == "" {
		return nil, invalid("task id is required")
	}
	task := &staffing.Task{
		ID:        generic.EntityID(tj.ID),
		ProjectID: projectID,
		Name:      tj.Name,
		Billable:  boolOr(tj.Billable, true),
		Active:    boolOr(tj.Active, true),
	}
	var err error
	if task.SellRates, err = parseRates(tj.SellRates); err != nil {
		return nil, invalid("task %s sell_rates: %v", tj.ID, err)
	}
	for _, aj := range tj.Assignments {
		if aj.PersonID == "" {
			return nil, invalid("task %s: assignment without person_id", tj.ID)
		}
		a := staffing.Assignment{PersonID: generic.EntityID(aj.PersonID), Active: boolOr(aj.Active, true)}
		if a.From, err = generic.ParseOptionalDate(aj.From); err != nil {
			return nil, invalid("task %s assignment from: %v", tj.ID, err)
		}
		if a.To, err = generic.ParseOptionalDate(aj.To); err != nil {
			return nil, invalid("task %s assignment to: %v", tj.ID, err)
		}
		task.Assignments = append(task.Assignments, a)
	}
	return task, nil
}

func (f *RosterFactory) ParseLeave(data []byte) (*leave.Record, error) {
	var lj LeaveJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return nil, invalid("leave: %v", err)
	}
	return f.BuildLeave(lj)
}

func (f *RosterFactory) BuildLeave(lj LeaveJSON) (*leave.Record, error) {
	r := &leave.Record{
		ID:       lj.ID,
		PersonID: generic.EntityID(lj.PersonID),
		Status:   leave.Status(lj.Status),
		Reason:   lj.Reason,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = leave.StatusScheduled
	}
	for _, dj := range lj.Days {
		d, err := generic.ParseDate(dj.Date)
		if err != nil {
			return nil, invalid("leave %s: %v", r.ID, err)
		}
		hours := leave.DefaultHoursPerDay
		if dj.Hours != nil {
			hours = *dj.Hours
		}
		r.Days = append(r.Days, leave.Day{Date: d, Hours: hours})
	}
	// weekend days are not working time, so leave on them removes nothing
	r.FilterWorkdays()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (f *RosterFactory) ParseTimeEntry(data []byte) (*staffing.TimeEntry, error) {
	var tj TimeEntryJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, invalid("time entry: %v", err)
	}
	return f.BuildTimeEntry(tj)
}

func (f *RosterFactory) BuildTimeEntry(tj TimeEntryJSON) (*staffing.TimeEntry, error) {
	if tj.PersonID == "" || tj.ProjectID == "" {
		return nil, invalid("time entry needs person_id and project_id")
	}
	d, err := generic.ParseDate(tj.Date)
	if err != nil {
		return nil, invalid("time entry: %v", err)
	}
	if tj.Hours.IsNegative() {
		return nil, invalid("time entry hours must not be negative")
	}
	if tj.ID == "" {
		tj.ID = uuid.NewString()
	}
	return &staffing.TimeEntry{
		ID:        tj.ID,
		PersonID:  generic.EntityID(tj.PersonID),
		ProjectID: generic.EntityID(tj.ProjectID),
		TaskID:    generic.EntityID(tj.TaskID),
		Date:      d,
		Hours:     tj.Hours,
	}, nil
}

func (f *RosterFactory) ParseApproval(data []byte) (*staffing.Approval, error) {
	var aj ApprovalJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return nil, invalid("approval: %v", err)
	}
	return f.BuildApproval(aj)
}

func (f *RosterFactory) BuildApproval(aj ApprovalJSON) (*staffing.Approval, error) {
	start, err := generic.ParseDate(aj.PeriodStart)
	if err != nil {
		return nil, invalid("approval period_start: %v", err)
	}
	end, err := generic.ParseDate(aj.PeriodEnd)
	if err != nil {
		return nil, invalid("approval period_end: %v", err)
	}
	if _, err := generic.NewPeriod(start, end); err != nil {
		return nil, err
	}
	a := &staffing.Approval{
		PersonID:    generic.EntityID(aj.PersonID),
		ProjectID:   generic.EntityID(aj.ProjectID),
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      staffing.ApprovalStatus(aj.Status),
	}
	if a.PersonID == "" || a.ProjectID == "" {
		return nil, invalid("approval needs person_id and project_id")
	}
	if !a.Status.Valid() {
		return nil, invalid("approval status %q", aj.Status)
	}
	return a, nil
}

func (f *RosterFactory) ParseHoliday(data []byte) (*staffing.Holiday, error) {
	var hj HolidayJSON
	if err := json.Unmarshal(data, &hj); err != nil {
		return nil, invalid("holiday: %v", err)
	}
	return f.BuildHoliday(hj)
}

func (f *RosterFactory) BuildHoliday(hj HolidayJSON) (*staffing.Holiday, error) {
	d, err := generic.ParseDate(hj.Date)
	if err != nil {
		return nil, invalid("holiday: %v", err)
	}
	if hj.ID == "" {
		hj.ID = uuid.NewString()
	}
	return &staffing.Holiday{ID: hj.ID, Date: d, Name: hj.Name}, nil
}

func (f *RosterFactory) ParseBonus(data []byte) (*Bonus, error) {
	var bj BonusJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return nil, invalid("bonus: %v", err)
	}
	return f.BuildBonus(bj)
}

func (f *RosterFactory) BuildBonus(bj BonusJSON) (*Bonus, error) {
	month, err := generic.ParseYearMonth(bj.Month)
	if err != nil {
		return nil, invalid("bonus month: %v", err)
	}
	if bj.PersonID == "" {
		return nil, invalid("bonus needs person_id")
	}
	if bj.Amount.IsNegative() {
		return nil, invalid("bonus amount must not be negative")
	}
	return &Bonus{PersonID: generic.EntityID(bj.PersonID), Month: month, Amount: bj.Amount}, nil
}

// ParseRate converts one rate document.
func ParseRate(rj RateJSON) (rates.Entry, error) {
	d, err := generic.ParseDate(rj.EffectiveDate)
	if err != nil {
		return rates.Entry{}, err
	}
	if rj.Amount.IsNegative() {
		return rates.Entry{}, fmt.Errorf("negative amount %s", rj.Amount)
	}
	return rates.Entry{Amount: rj.Amount, EffectiveDate: d}, nil
}

func parseRates(in []RateJSON) (rates.History, error) {
	var h rates.History
	for _, rj := range in {
		e, err := ParseRate(rj)
		if err != nil {
			return nil, err
		}
		h = h.Append(e)
	}
	return h, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
