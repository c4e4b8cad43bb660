package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/staffing"
	"github.com/warp/staffing-engine/submission"
)

// PlannedBonus returns the bonus planned for personID in month: the
// plannedBonus override when one is stored, the bonus record otherwise.
func (s *Service) PlannedBonus(ctx context.Context, personID generic.EntityID, month generic.YearMonth) (decimal.Decimal, error) {
	person, err := s.person(ctx, personID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.plannedBonus(ctx, person, month)
}

func (s *Service) plannedBonus(ctx context.Context, p staffing.Person, month generic.YearMonth) (decimal.Decimal, error) {
	key := overlay.SubjectOf(p.ID, p.Potential).Key(overlay.FieldPlannedBonus)
	delta, ok, err := s.Overlay.Get(ctx, overlay.ForecastScope(month), key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load bonus override: %w", err)
	}
	if ok {
		return delta.Value.Round(s.Options.withDefaults().Precision), nil
	}
	bonuses, err := s.Source.Bonuses(ctx, month)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load bonuses: %w", err)
	}
	return bonuses.For(p.ID), nil
}

func (s *Service) person(ctx context.Context, id generic.EntityID) (staffing.Person, error) {
	people, err := s.Source.People(ctx)
	if err != nil {
		return staffing.Person{}, fmt.Errorf("load people: %w", err)
	}
	for _, p := range people {
		if p.ID == id {
			return p, nil
		}
	}
	return staffing.Person{}, fmt.Errorf("%w: person %s", generic.ErrEntityNotFound, id)
}

// SubmitBonus sends a person's planned bonus for month to payroll once.
func (s *Service) SubmitBonus(ctx context.Context, personID generic.EntityID, month generic.YearMonth, actor string) (submission.Submission, error) {
	if s.Ledger == nil {
		return submission.Submission{}, fmt.Errorf("%w: bonus submission is not configured", generic.ErrInvalidInput)
	}
	person, err := s.person(ctx, personID)
	if err != nil {
		return submission.Submission{}, err
	}

	amount, err := s.plannedBonus(ctx, person, month)
	if err != nil {
		return submission.Submission{}, err
	}
	if !amount.IsPositive() {
		return submission.Submission{}, fmt.Errorf("%w: no bonus planned for %s in %s", generic.ErrNothingToSubmit, personID, month)
	}

	return s.Ledger.Submit(ctx, submission.Submission{
		Kind:  submission.KindBonus,
		Key:   submission.BonusKey(personID, month),
		Actor: actor,
		Total: amount,
		Lines: []submission.Line{{PersonID: personID, Amount: amount}},
	})
}

// IsBonusSubmitted reports whether the bonus for personID in month was sent.
func (s *Service) IsBonusSubmitted(ctx context.Context, personID generic.EntityID, month generic.YearMonth) (bool, error) {
	if s.Ledger == nil {
		return false, nil
	}
	return s.Ledger.IsSubmitted(ctx, submission.KindBonus, submission.BonusKey(personID, month))
}
