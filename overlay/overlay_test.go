package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
)

const scope = "forecast:2025-03"

func newTestMemory() *Memory {
	return NewMemoryWithClock(&generic.MockClock{FixedNow: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)})
}

func TestKey_StringAndParse(t *testing.T) {
	k := PersonKey("alice_smith", FieldHoursPerWeek)
	assert.Equal(t, "person:alice_smith_hoursPerWeek", k.String())

	parsed, err := ParseKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseKey("person:alice_salary")
	assert.ErrorIs(t, err, generic.ErrInvalidField)
	_, err = ParseKey("team:alice_sellRate")
	assert.ErrorIs(t, err, generic.ErrInvalidField)
	_, err = ParseKey("alice_sellRate")
	assert.ErrorIs(t, err, generic.ErrInvalidField)
}

func TestMemory_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	k := PersonKey("alice", FieldSellRate)

	_, ok, err := m.Get(ctx, scope, k)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, scope, k, decimal.NewFromInt(120)))
	d, ok, err := m.Get(ctx, scope, k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Value.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 2025, d.UpdatedAt.Year())

	// last write wins
	require.NoError(t, m.Set(ctx, scope, k, decimal.NewFromInt(130)))
	d, _, _ = m.Get(ctx, scope, k)
	assert.True(t, d.Value.Equal(decimal.NewFromInt(130)))
}

func TestMemory_ClearRestoresDefault(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	k := PersonKey("alice", FieldCostRate)

	require.NoError(t, m.Set(ctx, scope, k, decimal.NewFromInt(80)))
	require.NoError(t, m.Clear(ctx, scope, k))

	snap, err := m.Snapshot(ctx, scope)
	require.NoError(t, err)
	assert.NotContains(t, snap, k)

	// clearing an absent key is fine
	assert.NoError(t, m.Clear(ctx, scope, k))
}

func TestMemory_SetStoresValueEqualToDefault(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	k := PersonKey("alice", FieldBillablePercentage)

	require.NoError(t, m.Set(ctx, scope, k, decimal.NewFromInt(100)))
	snap, err := m.Snapshot(ctx, scope)
	require.NoError(t, err)
	assert.Contains(t, snap, k, "a literal equal to the default is still an override")
}

func TestMemory_KindsAndScopesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	require.NoError(t, m.Set(ctx, scope, PersonKey("42", FieldSellRate), decimal.NewFromInt(100)))
	require.NoError(t, m.Set(ctx, scope, RowKey("42", FieldSellRate), decimal.NewFromInt(200)))
	require.NoError(t, m.Set(ctx, "forecast:2025-04", PersonKey("42", FieldSellRate), decimal.NewFromInt(300)))

	snap, err := m.Snapshot(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	v, _ := snap.Lookup(PersonKey("42", FieldSellRate))
	assert.True(t, v.Equal(decimal.NewFromInt(100)))
	v, _ = snap.Lookup(RowKey("42", FieldSellRate))
	assert.True(t, v.Equal(decimal.NewFromInt(200)))
}

func TestMemory_ApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	good := PersonKey("alice", FieldSellRate)

	err := m.Apply(ctx, scope, []Write{
		SetWrite(good, decimal.NewFromInt(100)),
		SetWrite(Key{Kind: KindPerson, EntityID: "alice", Field: "salary"}, decimal.NewFromInt(1)),
	})
	require.ErrorIs(t, err, generic.ErrInvalidField)

	_, ok, _ := m.Get(ctx, scope, good)
	assert.False(t, ok, "first write must be rolled back")
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	k := PersonKey("alice", FieldPlannedBonus)
	require.NoError(t, m.Set(ctx, scope, k, decimal.NewFromInt(10)))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx *MemoryTx) error {
		require.NoError(t, tx.Clear(scope, k))
		require.NoError(t, tx.Set(scope, PersonKey("bob", FieldPlannedBonus), decimal.NewFromInt(20)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, _ := m.Snapshot(ctx, scope)
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, k)
}

// =============================================================================
// RULES / EDITOR
// =============================================================================

func TestEditor_HoursPerWeekClearsForecastHoursForPotentialStaff(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	editor := NewEditor(m)
	potential := SubjectOf("hire-1", true)

	require.NoError(t, editor.Set(ctx, scope, potential, FieldForecastHours, decimal.NewFromInt(99)))
	require.NoError(t, editor.Set(ctx, scope, potential, FieldHoursPerWeek, decimal.NewFromInt(32)))

	snap, err := m.Snapshot(ctx, scope)
	require.NoError(t, err)
	assert.Contains(t, snap, potential.Key(FieldHoursPerWeek))
	assert.NotContains(t, snap, potential.Key(FieldForecastHours), "derived override must be dropped")
}

func TestEditor_HoursPerWeekKeepsForecastHoursForStaff(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	editor := NewEditor(m)
	staff := SubjectOf("alice", false)

	require.NoError(t, editor.Set(ctx, scope, staff, FieldForecastHours, decimal.NewFromInt(99)))
	require.NoError(t, editor.Set(ctx, scope, staff, FieldHoursPerWeek, decimal.NewFromInt(32)))

	snap, _ := m.Snapshot(ctx, scope)
	assert.Contains(t, snap, staff.Key(FieldForecastHours))
}

func TestEditor_ResetClearsOverride(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	editor := NewEditor(m)
	staff := Subject{Kind: KindPerson, ID: "alice"}

	require.NoError(t, editor.Set(ctx, scope, staff, FieldSellRate, decimal.NewFromInt(150)))
	require.NoError(t, editor.Reset(ctx, scope, staff, FieldSellRate))

	snap, _ := m.Snapshot(ctx, scope)
	assert.Empty(t, snap)
}

func TestEditor_RejectsUnknownField(t *testing.T) {
	editor := NewEditor(newTestMemory())
	err := editor.Set(context.Background(), scope, Subject{Kind: KindPerson, ID: "a"}, "salary", decimal.NewFromInt(1))
	assert.True(t, generic.IsClientError(err))
}

func TestRules_ExpandIsTransitiveAndTerminates(t *testing.T) {
	rules := Rules{
		{Kind: KindRow, Trigger: FieldHoursPerWeek, Target: FieldForecastHours},
		{Kind: KindRow, Trigger: FieldForecastHours, Target: FieldHoursPerWeek},
		{Kind: KindRow, Trigger: FieldForecastHours, Target: FieldPlannedBonus},
	}
	subject := Subject{Kind: KindRow, ID: "r1"}

	writes := rules.Expand(subject, SetWrite(subject.Key(FieldHoursPerWeek), decimal.NewFromInt(20)))
	require.Len(t, writes, 3)
	assert.Equal(t, OpSet, writes[0].Op)
	assert.Equal(t, ClearWrite(subject.Key(FieldForecastHours)), writes[1])
	assert.Equal(t, ClearWrite(subject.Key(FieldPlannedBonus)), writes[2])
}
