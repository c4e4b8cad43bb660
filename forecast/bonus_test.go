package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/staffing"
	"github.com/warp/staffing-engine/submission"
)

type recordingSink struct {
	delivered []submission.Submission
	fail      error
}

func (s *recordingSink) Deliver(_ context.Context, sub submission.Submission) error {
	if s.fail != nil {
		return s.fail
	}
	s.delivered = append(s.delivered, sub)
	return nil
}

func newBonusService(t *testing.T) (*Service, *recordingSink) {
	t.Helper()
	svc, _ := newTestService()
	svc.Source.(*stubSource).bonuses = map[string]staffing.Bonuses{
		november.String(): {"alice": dec("750")},
	}
	sink := &recordingSink{}
	svc.Ledger = submission.NewLedger(submission.NewMemory(), sink, svc.Clock)
	return svc, sink
}

func TestSubmitBonus_OnceOnly(t *testing.T) {
	ctx := context.Background()
	svc, sink := newBonusService(t)

	sub, err := svc.SubmitBonus(ctx, "alice", november, "finance")
	require.NoError(t, err)
	assert.Equal(t, submission.KindBonus, sub.Kind)
	assert.Equal(t, "alice@2025-11", sub.Key)
	assertDec(t, "750", sub.Total)
	require.Len(t, sink.delivered, 1)

	_, err = svc.SubmitBonus(ctx, "alice", november, "finance")
	assert.ErrorIs(t, err, generic.ErrAlreadySubmitted)
	assert.Len(t, sink.delivered, 1)

	done, err := svc.IsBonusSubmitted(ctx, "alice", november)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSubmitBonus_UsesOverride(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBonusService(t)

	key := overlay.PersonKey("alice", overlay.FieldPlannedBonus)
	require.NoError(t, svc.Overlay.Set(ctx, overlay.ForecastScope(november), key, dec("1000.005")))

	sub, err := svc.SubmitBonus(ctx, "alice", november, "finance")
	require.NoError(t, err)
	assertDec(t, "1000.01", sub.Total)
}

func TestSubmitBonus_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, sink := newBonusService(t)

	_, err := svc.SubmitBonus(ctx, "nobody", november, "finance")
	assert.True(t, generic.IsNotFound(err))

	_, err = svc.SubmitBonus(ctx, "alice", november.Next(), "finance")
	assert.ErrorIs(t, err, generic.ErrNothingToSubmit)

	sink.fail = errors.New("payroll unavailable")
	_, err = svc.SubmitBonus(ctx, "alice", november, "finance")
	require.Error(t, err)
	done, err := svc.IsBonusSubmitted(ctx, "alice", november)
	require.NoError(t, err)
	assert.False(t, done, "failed delivery leaves no record")
}
