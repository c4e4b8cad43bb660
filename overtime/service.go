package overtime

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/staffing"
	"github.com/warp/staffing-engine/submission"
)

// Source supplies the inputs of a pay period.
type Source interface {
	People(ctx context.Context) ([]staffing.Person, error)
	Projects(ctx context.Context) ([]staffing.Project, error)
	TimeEntries(ctx context.Context, period generic.Period) ([]staffing.TimeEntry, error)
	Approvals(ctx context.Context, period generic.Period) ([]staffing.Approval, error)
}

type Options struct {
	// RequireApprovals blocks submission while any required approval is missing.
	RequireApprovals bool
}

type Service struct {
	Source  Source
	Ledger  *submission.Ledger
	Options Options
}

func NewService(source Source, ledger *submission.Ledger, opts Options) *Service {
	return &Service{Source: source, Ledger: ledger, Options: opts}
}

// Report loads the period's inputs and computes overtime.
func (s *Service) Report(ctx context.Context, period generic.Period) (Report, error) {
	if period.IsEmpty() {
		return Report{}, fmt.Errorf("%w: %s", generic.ErrInvalidPeriod, period)
	}
	people, err := s.Source.People(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load people: %w", err)
	}
	projects, err := s.Source.Projects(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load projects: %w", err)
	}
	entries, err := s.Source.TimeEntries(ctx, period)
	if err != nil {
		return Report{}, fmt.Errorf("load time entries: %w", err)
	}
	approvals, err := s.Source.Approvals(ctx, period)
	if err != nil {
		return Report{}, fmt.Errorf("load approvals: %w", err)
	}

	report := Compute(Input{
		Employees:   people,
		TimeEntries: entries,
		Projects:    projects,
		Approvals:   approvals,
		Period:      period,
	})
	for _, e := range report.Entries {
		if e.EmptyBasis {
			log.Warnf("overtime for %s in %s has no project hours to allocate against (%s h)", e.PersonID, period, e.OvertimeHours)
		}
	}
	return report, nil
}

// IsSubmitted reports whether the period was already sent to payroll.
func (s *Service) IsSubmitted(ctx context.Context, period generic.Period) (bool, error) {
	return s.Ledger.IsSubmitted(ctx, submission.KindOvertime, submission.OvertimeKey(period))
}

// Submit sends the period's overtime to payroll once. An empty report is
// rejected with generic.ErrNothingToSubmit, a repeat with
// *generic.DuplicateSubmissionError, and a period overlapping one already
// submitted with generic.ErrAlreadySubmitted.
func (s *Service) Submit(ctx context.Context, period generic.Period, actor string) (submission.Submission, error) {
	report, err := s.Report(ctx, period)
	if err != nil {
		return submission.Submission{}, err
	}
	if report.Summary.TotalOvertimeHours.IsZero() {
		return submission.Submission{}, fmt.Errorf("%w: no overtime in %s", generic.ErrNothingToSubmit, period)
	}
	if pending := report.PendingApprovals(); s.Options.RequireApprovals && len(pending) > 0 {
		return submission.Submission{}, fmt.Errorf("%w: %d line(s) in %s", generic.ErrApprovalsPending, len(pending), period)
	}

	sub := submission.Submission{
		Kind:  submission.KindOvertime,
		Key:   submission.OvertimeKey(period),
		Actor: actor,
		Total: report.Summary.TotalOvertimeHours,
	}
	for _, e := range report.Entries {
		for _, p := range e.Projects {
			sub.Lines = append(sub.Lines, submission.Line{PersonID: e.PersonID, ProjectID: p.ProjectID, Amount: p.OvertimeHours})
		}
		if e.EmptyBasis {
			sub.Lines = append(sub.Lines, submission.Line{PersonID: e.PersonID, Amount: e.OvertimeHours})
		}
	}
	return s.Ledger.Submit(ctx, sub, rejectOverlap(period))
}

// rejectOverlap refuses a period that shares a day with a submitted one, so
// no worked day is paid out twice under different keys.
func rejectOverlap(period generic.Period) submission.Check {
	return func(ctx context.Context, tx submission.Store, _ submission.Submission) error {
		submitted, err := tx.List(ctx, submission.KindOvertime)
		if err != nil {
			return fmt.Errorf("list overtime submissions: %w", err)
		}
		for _, prior := range submitted {
			other, err := generic.ParsePeriodKey(prior.Key)
			if err != nil {
				return fmt.Errorf("submission %s: %w", prior.ID, err)
			}
			if period.Overlaps(other) {
				return fmt.Errorf("%w: %s overlaps submitted period %s", generic.ErrAlreadySubmitted, period, other)
			}
		}
		return nil
	}
}
