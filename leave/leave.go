// Package leave reduces scheduled leave to hours per forecast month.
// Only scheduled leave removes forecast hours; cancelled and declined
// records are kept for history but never counted.
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusDeclined  Status = "declined"
)

func (s Status) Valid() bool {
	return s == StatusScheduled || s == StatusCancelled || s == StatusDeclined
}

// DefaultHoursPerDay is used when a leave day is recorded without hours.
var DefaultHoursPerDay = decimal.NewFromInt(8)

// Day is one day of leave. Half days carry fewer hours.
type Day struct {
	Date  generic.TimePoint `json:"date"`
	Hours decimal.Decimal   `json:"hours"`
}

type Record struct {
	ID       string           `json:"id"`
	PersonID generic.EntityID `json:"personId"`
	Status   Status           `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Days     []Day            `json:"days"`
}

// Validate rejects unknown statuses and negative hours.
func (r Record) Validate() error {
	if r.PersonID == "" {
		return fmt.Errorf("%w: leave record %s has no person", generic.ErrInvalidInput, r.ID)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: leave record %s has unknown status %q", generic.ErrInvalidInput, r.ID, r.Status)
	}
	for _, d := range r.Days {
		if d.Hours.IsNegative() {
			return fmt.Errorf("%w: leave record %s has negative hours on %s", generic.ErrInvalidInput, r.ID, d.Date)
		}
	}
	return nil
}

// FilterWorkdays drops days that fall on a weekend.
func (r *Record) FilterWorkdays() {
	var workdays []Day
	for _, d := range r.Days {
		if d.Date.IsWorkday() {
			workdays = append(workdays, d)
		}
	}
	r.Days = workdays
}

// ByPerson indexes scheduled leave hours in period per person.
func ByPerson(records []Record, period generic.Period) map[generic.EntityID]decimal.Decimal {
	out := make(map[generic.EntityID]decimal.Decimal)
	for _, r := range records {
		if r.Status != StatusScheduled {
			continue
		}
		for _, d := range r.Days {
			if period.Contains(d.Date) {
				out[r.PersonID] = out[r.PersonID].Add(d.Hours)
			}
		}
	}
	return out
}
