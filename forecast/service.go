package forecast

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/leave"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/staffing"
	"github.com/warp/staffing-engine/submission"
)

// =============================================================================
// SOURCES - what the service needs from persistence
// =============================================================================

// Source supplies already-materialised inputs for a month.
type Source interface {
	People(ctx context.Context) ([]staffing.Person, error)
	Projects(ctx context.Context) ([]staffing.Project, error)
	Leave(ctx context.Context, period generic.Period) ([]leave.Record, error)
	Holidays(ctx context.Context, period generic.Period) ([]staffing.Holiday, error)
	Bonuses(ctx context.Context, month generic.YearMonth) (staffing.Bonuses, error)
}

// SnapshotStore persists saved forecasts.
type SnapshotStore interface {
	// SaveSnapshot fails with generic.ErrDuplicateSnapshot when the name is taken.
	SaveSnapshot(ctx context.Context, s Snapshot) error
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	FindSnapshotByName(ctx context.Context, name string) (Snapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Source    Source
	Overlay   overlay.Store
	Snapshots SnapshotStore
	Clock     generic.Clock
	Options   Options

	// Ledger records bonus submissions. Optional; see SubmitBonus.
	Ledger *submission.Ledger
}

func NewService(source Source, overlays overlay.Store, snapshots SnapshotStore, clock generic.Clock, opts Options) *Service {
	return &Service{
		Source:    source,
		Overlay:   overlays,
		Snapshots: snapshots,
		Clock:     clock,
		Options:   opts,
	}
}

// Forecast loads the month's inputs and computes the forecast.
func (s *Service) Forecast(ctx context.Context, month generic.YearMonth) (Result, error) {
	in, err := s.Input(ctx, month)
	if err != nil {
		return Result{}, err
	}
	return Compute(in), nil
}

// Input assembles the Compute input for month.
func (s *Service) Input(ctx context.Context, month generic.YearMonth) (Input, error) {
	period := month.Period()

	people, err := s.Source.People(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("load people: %w", err)
	}
	projects, err := s.Source.Projects(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("load projects: %w", err)
	}
	records, err := s.Source.Leave(ctx, period)
	if err != nil {
		return Input{}, fmt.Errorf("load leave: %w", err)
	}
	holidays, err := s.Source.Holidays(ctx, period)
	if err != nil {
		return Input{}, fmt.Errorf("load holidays: %w", err)
	}
	bonuses, err := s.Source.Bonuses(ctx, month)
	if err != nil {
		return Input{}, fmt.Errorf("load bonuses: %w", err)
	}
	snap, err := s.Overlay.Snapshot(ctx, overlay.ForecastScope(month))
	if err != nil {
		return Input{}, fmt.Errorf("load overrides: %w", err)
	}

	return Input{
		Roster:        people,
		Projects:      projects,
		Leave:         records,
		HolidayCount:  staffing.CountWorkdayHolidays(holidays, period),
		Bonuses:       bonuses,
		Overlay:       snap,
		Month:         month,
		ReferenceDate: generic.Today(s.Clock),
		Options:       s.Options,
	}, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot computes the month's forecast and stores it under name.
func (s *Service) SaveSnapshot(ctx context.Context, month generic.YearMonth, name string) (Snapshot, error) {
	if name == "" {
		name = month.String()
	}
	result, err := s.Forecast(ctx, month)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		ID:        uuid.NewString(),
		Name:      name,
		Month:     month.String(),
		Result:    result,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Snapshots.SaveSnapshot(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	log.Infof("saved forecast snapshot %q for %s (revenue %s)", name, month, result.Totals.Revenue.StringFixed(2))
	return snap, nil
}

// Comparison is the result of comparing saved forecasts.
type Comparison struct {
	Snapshots []Snapshot `json:"snapshots"`
	Combined  Totals     `json:"combined"`
}

// Compare loads snapshots and combines their totals.
func (s *Service) Compare(ctx context.Context, ids []string) (Comparison, error) {
	if len(ids) == 0 {
		return Comparison{}, fmt.Errorf("%w: no snapshot ids", generic.ErrInvalidInput)
	}
	out := Comparison{Snapshots: make([]Snapshot, 0, len(ids))}
	totals := make([]Totals, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Snapshots.GetSnapshot(ctx, id)
		if err != nil {
			return Comparison{}, fmt.Errorf("snapshot %s: %w", id, err)
		}
		out.Snapshots = append(out.Snapshots, snap)
		totals = append(totals, snap.Result.Totals)
	}
	out.Combined = Combine(totals...)
	return out, nil
}

// Range computes consecutive months from..to and combines their totals.
func (s *Service) Range(ctx context.Context, from, to generic.YearMonth) ([]Result, Totals, error) {
	if to.Before(from) {
		return nil, Totals{}, fmt.Errorf("%w: %s > %s", generic.ErrInvalidPeriod, from, to)
	}
	var (
		results []Result
		totals  []Totals
	)
	for m := from; !to.Before(m); m = m.Next() {
		r, err := s.Forecast(ctx, m)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("forecast %s: %w", m, err)
		}
		results = append(results, r)
		totals = append(totals, r.Totals)
	}
	return results, Combine(totals...), nil
}
