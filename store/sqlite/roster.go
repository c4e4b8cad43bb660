package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/rates"
	"github.com/warp/staffing-engine/staffing"
)

// Rate owners in rate_entries.
const (
	ownerPersonCost = "person_cost"
	ownerPersonSell = "person_sell"
	ownerTaskSell   = "task_sell"
)

func taskOwner(projectID, taskID generic.EntityID) string {
	return string(projectID) + "/" + string(taskID)
}

// =============================================================================
// PEOPLE
// =============================================================================

// SavePerson creates or updates a person. Rate entries not yet in the
// stored histories are appended; existing entries are never rewritten.
func (s *Store) SavePerson(ctx context.Context, p staffing.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(q querier) error {
		return s.savePerson(ctx, q, p)
	})
}

func (s *Store) savePerson(ctx context.Context, q querier, p staffing.Person) error {
	now := s.now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO people
		(id, name, employment_type, hours_per_week, billable_percentage, start_date, end_date,
		 overtime_mode, potential, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			employment_type = excluded.employment_type,
			hours_per_week = excluded.hours_per_week,
			billable_percentage = excluded.billable_percentage,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			overtime_mode = excluded.overtime_mode,
			potential = excluded.potential,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, p.Type, p.HoursPerWeek.String(), p.BillablePercentage.String(),
		nullDate(p.StartDate), nullDate(p.EndDate), p.OvertimeMode, boolInt(p.Potential), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save person %s: %w", p.ID, err)
	}
	if err := s.mergeRates(ctx, q, ownerPersonCost, string(p.ID), p.CostRates); err != nil {
		return err
	}
	return s.mergeRates(ctx, q, ownerPersonSell, string(p.ID), p.SellRates)
}

// AppendPersonRate appends one entry to a person's cost or sell history.
func (s *Store) AppendPersonRate(ctx context.Context, personID generic.EntityID, sell bool, entry rates.Entry) error {
	owner := ownerPersonCost
	if sell {
		owner = ownerPersonSell
	}
	return s.inTx(ctx, func(q querier) error {
		if err := exists(ctx, q, "SELECT COUNT(*) FROM people WHERE id = ?", personID); err != nil {
			return fmt.Errorf("person %s: %w", personID, err)
		}
		return s.appendRate(ctx, q, owner, string(personID), entry)
	})
}

// Person returns one person with rate histories.
func (s *Store) Person(ctx context.Context, id generic.EntityID) (staffing.Person, error) {
	people, err := s.loadPeople(ctx, "WHERE id = ?", id)
	if err != nil {
		return staffing.Person{}, err
	}
	if len(people) == 0 {
		return staffing.Person{}, fmt.Errorf("%w: person %s", generic.ErrEntityNotFound, id)
	}
	return people[0], nil
}

// People returns the roster ordered by id.
func (s *Store) People(ctx context.Context) ([]staffing.Person, error) {
	return s.loadPeople(ctx, "")
}

func (s *Store) loadPeople(ctx context.Context, where string, args ...any) ([]staffing.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, employment_type, hours_per_week, billable_percentage,
		       start_date, end_date, overtime_mode, potential
		FROM people `+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var people []staffing.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	histories, err := loadRates(ctx, s.db, ownerPersonCost, ownerPersonSell)
	if err != nil {
		return nil, err
	}
	for i := range people {
		people[i].CostRates = histories[ownerPersonCost][string(people[i].ID)]
		people[i].SellRates = histories[ownerPersonSell][string(people[i].ID)]
	}
	return people, nil
}

func scanPerson(rows *sql.Rows) (staffing.Person, error) {
	var (
		p                  staffing.Person
		hours, billable    string
		startDate, endDate sql.NullString
		potential          int
	)
	err := rows.Scan(&p.ID, &p.Name, &p.Type, &hours, &billable, &startDate, &endDate, &p.OvertimeMode, &potential)
	if err != nil {
		return p, fmt.Errorf("failed to scan person: %w", err)
	}
	if p.HoursPerWeek, err = parseDecimal("hours_per_week", hours); err != nil {
		return p, err
	}
	if p.BillablePercentage, err = parseDecimal("billable_percentage", billable); err != nil {
		return p, err
	}
	if p.StartDate, err = parseNullDate(startDate); err != nil {
		return p, err
	}
	if p.EndDate, err = parseNullDate(endDate); err != nil {
		return p, err
	}
	p.Potential = potential != 0
	return p, nil
}

// =============================================================================
// PROJECTS AND TASKS
// =============================================================================

// SaveProject creates or updates a project with its tasks. Assignments of
// each saved task are replaced; task sell rates are merged like person rates.
func (s *Store) SaveProject(ctx context.Context, p staffing.Project) error {
	if p.ID == "" {
		return fmt.Errorf("%w: project id is required", generic.ErrInvalidInput)
	}
	return s.inTx(ctx, func(q querier) error {
		return s.saveProject(ctx, q, p)
	})
}

func (s *Store) saveProject(ctx context.Context, q querier, p staffing.Project) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (id, name, overtime_inclusive, requires_approval)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			overtime_inclusive = excluded.overtime_inclusive,
			requires_approval = excluded.requires_approval
	`, p.ID, p.Name, boolInt(p.OvertimeInclusive), boolInt(p.RequiresApproval))
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}

	for _, t := range p.Tasks {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO tasks (project_id, id, name, billable, active)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_id, id) DO UPDATE SET
				name = excluded.name,
				billable = excluded.billable,
				active = excluded.active
		`, p.ID, t.ID, t.Name, boolInt(t.Billable), boolInt(t.Active)); err != nil {
			return fmt.Errorf("failed to save task %s/%s: %w", p.ID, t.ID, err)
		}
		if _, err := q.ExecContext(ctx,
			"DELETE FROM assignments WHERE project_id = ? AND task_id = ?", p.ID, t.ID); err != nil {
			return fmt.Errorf("failed to reset assignments of %s/%s: %w", p.ID, t.ID, err)
		}
		for _, a := range t.Assignments {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO assignments (project_id, task_id, person_id, active, from_date, to_date)
				VALUES (?, ?, ?, ?, ?, ?)
			`, p.ID, t.ID, a.PersonID, boolInt(a.Active), nullDate(a.From), nullDate(a.To)); err != nil {
				return fmt.Errorf("failed to assign %s to %s/%s: %w", a.PersonID, p.ID, t.ID, err)
			}
		}
		if err := s.mergeRates(ctx, q, ownerTaskSell, taskOwner(p.ID, t.ID), t.SellRates); err != nil {
			return err
		}
	}
	return nil
}

// AppendTaskRate appends one entry to a task's sell rate history.
func (s *Store) AppendTaskRate(ctx context.Context, projectID, taskID generic.EntityID, entry rates.Entry) error {
	return s.inTx(ctx, func(q querier) error {
		if err := exists(ctx, q, "SELECT COUNT(*) FROM tasks WHERE project_id = ? AND id = ?", projectID, taskID); err != nil {
			return fmt.Errorf("task %s/%s: %w", projectID, taskID, err)
		}
		return s.appendRate(ctx, q, ownerTaskSell, taskOwner(projectID, taskID), entry)
	})
}

// Projects returns all projects with tasks, assignments and task rates.
func (s *Store) Projects(ctx context.Context) ([]staffing.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects, err := queryProjects(ctx, s.db)
	if err != nil {
		return nil, err
	}
	index := make(map[generic.EntityID]int, len(projects))
	for i, p := range projects {
		index[p.ID] = i
	}

	tasks, err := queryTasks(ctx, s.db)
	if err != nil {
		return nil, err
	}
	assignments, err := queryAssignments(ctx, s.db)
	if err != nil {
		return nil, err
	}
	histories, err := loadRates(ctx, s.db, ownerTaskSell)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		owner := taskOwner(t.ProjectID, t.ID)
		t.Assignments = assignments[owner]
		t.SellRates = histories[ownerTaskSell][owner]
		i := index[t.ProjectID]
		projects[i].Tasks = append(projects[i].Tasks, t)
	}
	return projects, nil
}

func queryProjects(ctx context.Context, q querier) ([]staffing.Project, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, overtime_inclusive, requires_approval FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []staffing.Project
	for rows.Next() {
		var (
			p                  staffing.Project
			inclusive, approve int
		)
		if err := rows.Scan(&p.ID, &p.Name, &inclusive, &approve); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.OvertimeInclusive = inclusive != 0
		p.RequiresApproval = approve != 0
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func queryTasks(ctx context.Context, q querier) ([]staffing.Task, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT project_id, id, name, billable, active FROM tasks ORDER BY project_id, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []staffing.Task
	for rows.Next() {
		var (
			t                staffing.Task
			billable, active int
		)
		if err := rows.Scan(&t.ProjectID, &t.ID, &t.Name, &billable, &active); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Billable = billable != 0
		t.Active = active != 0
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func queryAssignments(ctx context.Context, q querier) (map[string][]staffing.Assignment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT project_id, task_id, person_id, active, from_date, to_date
		FROM assignments
		ORDER BY project_id, task_id, person_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]staffing.Assignment)
	for rows.Next() {
		var (
			projectID, taskID generic.EntityID
			a                 staffing.Assignment
			active            int
			from, to          sql.NullString
		)
		if err := rows.Scan(&projectID, &taskID, &a.PersonID, &active, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Active = active != 0
		if a.From, err = parseNullDate(from); err != nil {
			return nil, err
		}
		if a.To, err = parseNullDate(to); err != nil {
			return nil, err
		}
		owner := taskOwner(projectID, taskID)
		out[owner] = append(out[owner], a)
	}
	return out, rows.Err()
}

// =============================================================================
// RATE HISTORIES (append-only)
// =============================================================================

func (s *Store) appendRate(ctx context.Context, q querier, ownerKind, ownerID string, e rates.Entry) error {
	if e.EffectiveDate.IsZero() {
		return fmt.Errorf("%w: rate without effective date", generic.ErrInvalidInput)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: negative rate %s", generic.ErrInvalidInput, e.Amount)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO rate_entries (owner_kind, owner_id, amount, effective_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ownerKind, ownerID, e.Amount.String(), e.EffectiveDate.String(), s.now())
	if err != nil {
		return fmt.Errorf("failed to append rate: %w", err)
	}
	return nil
}

// mergeRates appends the entries of history that are not stored yet, so
// saving the same document twice does not duplicate rates.
func (s *Store) mergeRates(ctx context.Context, q querier, ownerKind, ownerID string, history rates.History) error {
	if len(history) == 0 {
		return nil
	}
	stored, err := loadRatesFor(ctx, q, ownerKind, ownerID)
	if err != nil {
		return err
	}
	for _, e := range history {
		if containsEntry(stored, e) {
			continue
		}
		if err := s.appendRate(ctx, q, ownerKind, ownerID, e); err != nil {
			return err
		}
		stored = append(stored, e)
	}
	return nil
}

func containsEntry(history rates.History, e rates.Entry) bool {
	for _, h := range history {
		if h.Amount.Equal(e.Amount) && h.EffectiveDate.Equal(e.EffectiveDate) {
			return true
		}
	}
	return false
}

func loadRatesFor(ctx context.Context, q querier, ownerKind, ownerID string) (rates.History, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT owner_kind, owner_id, amount, effective_date FROM rate_entries
		WHERE owner_kind = ? AND owner_id = ?
		ORDER BY seq
	`, ownerKind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	histories, err := scanRates(rows)
	if err != nil {
		return nil, err
	}
	return histories[ownerKind][ownerID], nil
}

// loadRates returns every history of the given owner kinds, keyed by kind
// then owner id, each in insertion order.
func loadRates(ctx context.Context, q querier, kinds ...string) (map[string]map[string]rates.History, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(kinds)), ",")
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = k
	}
	rows, err := q.QueryContext(ctx, `
		SELECT owner_kind, owner_id, amount, effective_date FROM rate_entries
		WHERE owner_kind IN (`+placeholders+`)
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()
	return scanRates(rows)
}

func scanRates(rows *sql.Rows) (map[string]map[string]rates.History, error) {
	out := make(map[string]map[string]rates.History)
	for rows.Next() {
		var kind, owner, amount, effective string
		if err := rows.Scan(&kind, &owner, &amount, &effective); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		value, err := parseDecimal("rate amount", amount)
		if err != nil {
			return nil, err
		}
		date, err := generic.ParseDate(effective)
		if err != nil {
			return nil, fmt.Errorf("corrupt rate date %q: %w", effective, err)
		}
		if out[kind] == nil {
			out[kind] = make(map[string]rates.History)
		}
		out[kind][owner] = out[kind][owner].Append(rates.Entry{Amount: value, EffectiveDate: date})
	}
	return out, rows.Err()
}

// exists returns ErrEntityNotFound when the count query yields zero.
func exists(ctx context.Context, q querier, query string, args ...any) error {
	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return generic.ErrEntityNotFound
	}
	return nil
}
