/*
Package overlay stores user overrides on top of computed forecast defaults.

PURPOSE:
  A forecast row is computed from the roster, rates and calendars. Users may
  override any of a handful of fields for a given person or row; the override
  wins until it is explicitly cleared, after which the computed default is
  shown again. Only overrides are stored, never defaults.

KEY CONCEPTS:
  - Key: (kind, entity, field). Kinds namespace the key space so a person and
    a row with the same id never share overrides.
  - Delta: a stored override with its write time
  - Scope: a partition of the key space, one per forecast month
  - Snapshot: an immutable read view of one scope
  - Rules / Editor: derived-on-write rules applied in the same atomic batch

SET VS CLEAR:
  Set stores the value unconditionally, even when it equals the current
  default. Clear removes the override. Writing the default value is NOT a
  reset: a stored literal keeps masking the default if the default changes.

SEE ALSO:
  - memory.go: in-memory Store
  - store/sqlite: persistent Store
  - forecast/: resolves every field as overlay ?? default
*/
package overlay

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// KEYS
// =============================================================================

type Kind string

const (
	KindPerson Kind = "person"
	KindRow    Kind = "row"
)

func (k Kind) Valid() bool {
	return k == KindPerson || k == KindRow
}

type Field string

const (
	FieldHoursPerWeek       Field = "hoursPerWeek"
	FieldBillablePercentage Field = "billablePercentage"
	FieldSellRate           Field = "sellRate"
	FieldCostRate           Field = "costRate"
	FieldPlannedBonus       Field = "plannedBonus"
	FieldForecastHours      Field = "forecastHours"
)

// Fields lists every overridable field.
var Fields = []Field{
	FieldHoursPerWeek,
	FieldBillablePercentage,
	FieldSellRate,
	FieldCostRate,
	FieldPlannedBonus,
	FieldForecastHours,
}

func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Key identifies one override inside a scope.
type Key struct {
	Kind     Kind
	EntityID generic.EntityID
	Field    Field
}

func PersonKey(id generic.EntityID, field Field) Key {
	return Key{Kind: KindPerson, EntityID: id, Field: field}
}

func RowKey(id generic.EntityID, field Field) Key {
	return Key{Kind: KindRow, EntityID: id, Field: field}
}

// String renders "<kind>:<id>_<field>".
func (k Key) String() string {
	return string(k.Kind) + ":" + string(k.EntityID) + "_" + string(k.Field)
}

func (k Key) Validate() error {
	if !k.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", generic.ErrInvalidField, k.Kind)
	}
	if k.EntityID == "" {
		return fmt.Errorf("%w: empty entity id", generic.ErrInvalidField)
	}
	if !k.Field.Valid() {
		return fmt.Errorf("%w: unknown field %q", generic.ErrInvalidField, k.Field)
	}
	return nil
}

// ParseKey is the inverse of Key.String. Entity ids may contain underscores;
// field names never do, so the last underscore separates them.
func ParseKey(s string) (Key, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("%w: malformed key %q", generic.ErrInvalidField, s)
	}
	i := strings.LastIndex(rest, "_")
	if i < 0 {
		return Key{}, fmt.Errorf("%w: malformed key %q", generic.ErrInvalidField, s)
	}
	k := Key{Kind: Kind(kind), EntityID: generic.EntityID(rest[:i]), Field: Field(rest[i+1:])}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// =============================================================================
// DELTAS, WRITES, SNAPSHOTS
// =============================================================================

// Delta is a stored override.
type Delta struct {
	Key       Key
	Value     decimal.Decimal
	UpdatedAt time.Time
}

type Op string

const (
	OpSet   Op = "set"
	OpClear Op = "clear"
)

// Write is one operation of an atomic Apply batch.
type Write struct {
	Op    Op
	Key   Key
	Value decimal.Decimal
}

func SetWrite(key Key, value decimal.Decimal) Write {
	return Write{Op: OpSet, Key: key, Value: value}
}

func ClearWrite(key Key) Write {
	return Write{Op: OpClear, Key: key}
}

func (w Write) Validate() error {
	if w.Op != OpSet && w.Op != OpClear {
		return fmt.Errorf("%w: unknown op %q", generic.ErrInvalidInput, w.Op)
	}
	return w.Key.Validate()
}

// Snapshot is a read-only view of one scope's overrides. A nil Snapshot has
// no overrides. Keys of entities that no longer exist are simply never read.
type Snapshot map[Key]decimal.Decimal

func (s Snapshot) Lookup(key Key) (decimal.Decimal, bool) {
	v, ok := s[key]
	return v, ok
}

// ForecastScope is the scope holding overrides of one forecast month.
func ForecastScope(month generic.YearMonth) string {
	return "forecast:" + month.String()
}
