package overlay

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// DERIVED-ON-WRITE RULES
// =============================================================================

// Subject is the entity an override is written for. Staff on the roster
// are KindPerson subjects; planned hires are forecast rows (KindRow).
type Subject struct {
	Kind Kind
	ID   generic.EntityID
}

// SubjectOf returns the subject a roster entry's overrides are keyed under.
func SubjectOf(id generic.EntityID, potential bool) Subject {
	if potential {
		return Subject{Kind: KindRow, ID: id}
	}
	return Subject{Kind: KindPerson, ID: id}
}

func (s Subject) Key(field Field) Key {
	return Key{Kind: s.Kind, EntityID: s.ID, Field: field}
}

// Rule declares that Target is derived from Trigger for subjects of Kind.
// A write to Trigger clears any override on Target in the same batch, so the
// derived default is recomputed from the new trigger value.
type Rule struct {
	Name    string
	Kind    Kind
	Trigger Field
	Target  Field
}

func (r Rule) matches(s Subject, field Field) bool {
	return r.Kind == s.Kind && r.Trigger == field
}

type Rules []Rule

// DefaultRules: forecast hours of planned hires follow their weekly hours.
var DefaultRules = Rules{
	{
		Name:    "potential-forecast-hours",
		Kind:    KindRow,
		Trigger: FieldHoursPerWeek,
		Target:  FieldForecastHours,
	},
}

// Expand returns the write followed by every derived write it triggers.
// Derived writes are expanded transitively; a field is cleared at most once.
func (rs Rules) Expand(subject Subject, w Write) []Write {
	out := []Write{w}
	visited := map[Field]bool{w.Key.Field: true}
	queue := []Field{w.Key.Field}
	for len(queue) > 0 {
		field := queue[0]
		queue = queue[1:]
		for _, r := range rs {
			if !r.matches(subject, field) || visited[r.Target] {
				continue
			}
			visited[r.Target] = true
			out = append(out, ClearWrite(subject.Key(r.Target)))
			queue = append(queue, r.Target)
		}
	}
	return out
}

// =============================================================================
// EDITOR - user-facing Set / Reset
// =============================================================================

// Editor applies user edits through the rule table.
type Editor struct {
	Store Store
	Rules Rules
}

func NewEditor(store Store) *Editor {
	return &Editor{Store: store, Rules: DefaultRules}
}

// Set overrides field for subject and applies derived clears atomically.
func (e *Editor) Set(ctx context.Context, scope string, subject Subject, field Field, value decimal.Decimal) error {
	return e.apply(ctx, scope, subject, SetWrite(subject.Key(field), value))
}

// Reset clears the override so the computed default shows again.
func (e *Editor) Reset(ctx context.Context, scope string, subject Subject, field Field) error {
	return e.apply(ctx, scope, subject, ClearWrite(subject.Key(field)))
}

func (e *Editor) apply(ctx context.Context, scope string, subject Subject, w Write) error {
	if err := w.Validate(); err != nil {
		return err
	}
	writes := e.Rules.Expand(subject, w)
	if err := e.Store.Apply(ctx, scope, writes); err != nil {
		return fmt.Errorf("apply %s to %s: %w", w.Key, scope, err)
	}
	if len(writes) > 1 {
		log.Debugf("overlay %s %s in %s cleared %d derived field(s)", w.Op, w.Key, scope, len(writes)-1)
	}
	return nil
}
