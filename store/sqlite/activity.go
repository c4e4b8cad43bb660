package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/staffing"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

// SaveTimeEntry stores a time entry, assigning an id when it has none.
func (s *Store) SaveTimeEntry(ctx context.Context, te staffing.TimeEntry) (staffing.TimeEntry, error) {
	if te.ID == "" {
		te.ID = uuid.NewString()
	}
	err := s.inTx(ctx, func(q querier) error {
		return saveTimeEntry(ctx, q, te)
	})
	return te, err
}

func saveTimeEntry(ctx context.Context, q querier, te staffing.TimeEntry) error {
	if te.PersonID == "" || te.ProjectID == "" || te.Date.IsZero() {
		return fmt.Errorf("%w: time entry needs person, project and date", generic.ErrInvalidInput)
	}
	if te.Hours.IsNegative() {
		return fmt.Errorf("%w: time entry %s has negative hours", generic.ErrInvalidInput, te.ID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO time_entries (id, person_id, project_id, task_id, entry_date, hours)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			project_id = excluded.project_id,
			task_id = excluded.task_id,
			entry_date = excluded.entry_date,
			hours = excluded.hours
	`, te.ID, te.PersonID, te.ProjectID, nullString(string(te.TaskID)), te.Date.String(), te.Hours.String())
	if err != nil {
		return fmt.Errorf("failed to save time entry %s: %w", te.ID, err)
	}
	return nil
}

// TimeEntries returns entries dated inside period.
func (s *Store) TimeEntries(ctx context.Context, period generic.Period) ([]staffing.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, project_id, task_id, entry_date, hours
		FROM time_entries
		WHERE entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, person_id, id
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []staffing.TimeEntry
	for rows.Next() {
		var (
			te          staffing.TimeEntry
			taskID      sql.NullString
			date, hours string
		)
		if err := rows.Scan(&te.ID, &te.PersonID, &te.ProjectID, &taskID, &date, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		te.TaskID = generic.EntityID(taskID.String)
		if te.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if te.Hours, err = parseDecimal("hours", hours); err != nil {
			return nil, err
		}
		entries = append(entries, te)
	}
	return entries, rows.Err()
}

// =============================================================================
// LEAVE
// =============================================================================

// SaveLeave stores a leave record, replacing its days.
func (s *Store) SaveLeave(ctx context.Context, r leave.Record) (leave.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	err := s.inTx(ctx, func(q querier) error {
		return saveLeave(ctx, q, r)
	})
	return r, err
}

func saveLeave(ctx context.Context, q querier, r leave.Record) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_records (id, person_id, status, reason)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			status = excluded.status,
			reason = excluded.reason
	`, r.ID, r.PersonID, r.Status, nullString(r.Reason))
	if err != nil {
		return fmt.Errorf("failed to save leave %s: %w", r.ID, err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM leave_days WHERE record_id = ?", r.ID); err != nil {
		return fmt.Errorf("failed to reset leave days of %s: %w", r.ID, err)
	}
	for _, d := range r.Days {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO leave_days (record_id, leave_date, hours) VALUES (?, ?, ?)",
			r.ID, d.Date.String(), d.Hours.String()); err != nil {
			return fmt.Errorf("failed to save leave day %s of %s: %w", d.Date, r.ID, err)
		}
	}
	return nil
}

// Leave returns every record with at least one day in period. Only the
// days inside period are returned.
func (s *Store) Leave(ctx context.Context, period generic.Period) ([]leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.person_id, r.status, r.reason, d.leave_date, d.hours
		FROM leave_records r
		JOIN leave_days d ON d.record_id = r.id
		WHERE d.leave_date >= ? AND d.leave_date <= ?
		ORDER BY r.id, d.leave_date
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leave: %w", err)
	}
	defer rows.Close()

	var records []leave.Record
	for rows.Next() {
		var (
			r           leave.Record
			reason      sql.NullString
			date, hours string
		)
		if err := rows.Scan(&r.ID, &r.PersonID, &r.Status, &reason, &date, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		var d leave.Day
		if d.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if d.Hours, err = parseDecimal("leave hours", hours); err != nil {
			return nil, err
		}
		if n := len(records); n > 0 && records[n-1].ID == r.ID {
			records[n-1].Days = append(records[n-1].Days, d)
			continue
		}
		r.Reason = reason.String
		r.Days = []leave.Day{d}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h staffing.Holiday) (staffing.Holiday, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	err := s.inTx(ctx, func(q querier) error {
		return saveHoliday(ctx, q, h)
	})
	return h, err
}

func saveHoliday(ctx context.Context, q querier, h staffing.Holiday) error {
	if h.Date.IsZero() {
		return fmt.Errorf("%w: holiday without date", generic.ErrInvalidInput)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO holidays (id, holiday_date, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET holiday_date = excluded.holiday_date, name = excluded.name
	`, h.ID, h.Date.String(), h.Name)
	if err != nil {
		return fmt.Errorf("failed to save holiday %s: %w", h.Date, err)
	}
	return nil
}

// Holidays returns holidays inside period, weekends included.
func (s *Store) Holidays(ctx context.Context, period generic.Period) ([]staffing.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holiday_date, name FROM holidays
		WHERE holiday_date >= ? AND holiday_date <= ?
		ORDER BY holiday_date
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []staffing.Holiday
	for rows.Next() {
		var (
			h    staffing.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// BONUSES
// =============================================================================

// SaveBonus sets the planned bonus of a person for month.
func (s *Store) SaveBonus(ctx context.Context, personID generic.EntityID, month generic.YearMonth, amount decimal.Decimal) error {
	return s.inTx(ctx, func(q querier) error {
		return saveBonus(ctx, q, personID, month, amount)
	})
}

func saveBonus(ctx context.Context, q querier, personID generic.EntityID, month generic.YearMonth, amount decimal.Decimal) error {
	if personID == "" {
		return fmt.Errorf("%w: bonus without person", generic.ErrInvalidInput)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative bonus for %s", generic.ErrInvalidInput, personID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO bonuses (person_id, month, amount) VALUES (?, ?, ?)
		ON CONFLICT(person_id, month) DO UPDATE SET amount = excluded.amount
	`, personID, month.String(), amount.String())
	if err != nil {
		return fmt.Errorf("failed to save bonus for %s: %w", personID, err)
	}
	return nil
}

func (s *Store) Bonuses(ctx context.Context, month generic.YearMonth) (staffing.Bonuses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT person_id, amount FROM bonuses WHERE month = ?", month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	bonuses := make(staffing.Bonuses)
	for rows.Next() {
		var (
			personID generic.EntityID
			amount   string
		)
		if err := rows.Scan(&personID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan bonus: %w", err)
		}
		if bonuses[personID], err = parseDecimal("bonus", amount); err != nil {
			return nil, err
		}
	}
	return bonuses, rows.Err()
}

// =============================================================================
// APPROVALS
// =============================================================================

// SaveApproval records the review status of a person's time on a project.
func (s *Store) SaveApproval(ctx context.Context, a staffing.Approval) error {
	return s.inTx(ctx, func(q querier) error {
		return saveApproval(ctx, q, a)
	})
}

func saveApproval(ctx context.Context, q querier, a staffing.Approval) error {
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown approval status %q", generic.ErrInvalidInput, a.Status)
	}
	if a.PeriodEnd.Before(a.PeriodStart) {
		return fmt.Errorf("%w: approval period %s > %s", generic.ErrInvalidPeriod, a.PeriodStart, a.PeriodEnd)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO approvals (person_id, project_id, period_start, period_end, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(person_id, project_id, period_start, period_end) DO UPDATE SET status = excluded.status
	`, a.PersonID, a.ProjectID, a.PeriodStart.String(), a.PeriodEnd.String(), a.Status)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

// Approvals returns approvals whose period overlaps period.
func (s *Store) Approvals(ctx context.Context, period generic.Period) ([]staffing.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, project_id, period_start, period_end, status
		FROM approvals
		WHERE period_start <= ? AND period_end >= ?
		ORDER BY person_id, project_id, period_start
	`, period.End.String(), period.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []staffing.Approval
	for rows.Next() {
		var (
			a          staffing.Approval
			start, end string
		)
		if err := rows.Scan(&a.PersonID, &a.ProjectID, &start, &end, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		if a.PeriodStart, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if a.PeriodEnd, err = generic.ParseDate(end); err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}
