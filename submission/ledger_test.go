package submission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
)

var march = generic.YearMonth{Year: 2025, Month: time.March}

func newTestLedger(sink Sink) (*Ledger, *Memory) {
	store := NewMemory()
	clock := &generic.MockClock{FixedNow: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	return NewLedger(store, sink, clock), store
}

func overtimeSubmission() Submission {
	return Submission{
		Kind:  KindOvertime,
		Key:   OvertimeKey(march.Period()),
		Actor: "payroll-admin",
		Total: decimal.NewFromInt(20),
		Lines: []Line{{PersonID: "alice", ProjectID: "acme", Amount: decimal.NewFromInt(20)}},
	}
}

func TestLedger_SubmitRecordsAndDelivers(t *testing.T) {
	ctx := context.Background()
	var delivered []Submission
	ledger, store := newTestLedger(SinkFunc(func(_ context.Context, s Submission) error {
		delivered = append(delivered, s)
		return nil
	}))

	sub, err := ledger.Submit(ctx, overtimeSubmission())
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, 2025, sub.SubmittedAt.Year())
	require.Len(t, delivered, 1)

	stored, ok, err := store.Get(ctx, KindOvertime, sub.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sub.ID, stored.ID)

	submitted, err := ledger.IsSubmitted(ctx, KindOvertime, sub.Key)
	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestLedger_DuplicateRejectedBeforeSideEffect(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ledger, _ := newTestLedger(SinkFunc(func(context.Context, Submission) error {
		calls++
		return nil
	}))

	_, err := ledger.Submit(ctx, overtimeSubmission())
	require.NoError(t, err)

	_, err = ledger.Submit(ctx, overtimeSubmission())
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrAlreadySubmitted)
	var dup *generic.DuplicateSubmissionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "overtime", dup.Kind)
	assert.Equal(t, 1, calls, "sink must not run for a duplicate")
}

func TestLedger_SinkFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	fail := true
	ledger, store := newTestLedger(SinkFunc(func(context.Context, Submission) error {
		if fail {
			return errors.New("payroll unavailable")
		}
		return nil
	}))

	_, err := ledger.Submit(ctx, overtimeSubmission())
	require.Error(t, err)

	exists, err := store.Exists(ctx, KindOvertime, OvertimeKey(march.Period()))
	require.NoError(t, err)
	assert.False(t, exists, "failed delivery must not leave a record")

	fail = false
	_, err = ledger.Submit(ctx, overtimeSubmission())
	assert.NoError(t, err, "retry after failure succeeds")
}

func TestLedger_KindsAreSeparateKeySpaces(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(LogSink{})

	_, err := ledger.Submit(ctx, Submission{Kind: KindBonus, Key: BonusKey("alice", march), Total: decimal.NewFromInt(500)})
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, Submission{Kind: KindBonus, Key: BonusKey("bob", march), Total: decimal.NewFromInt(300)})
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, Submission{Kind: KindOvertime, Key: BonusKey("alice", march)})
	require.NoError(t, err)

	bonuses, err := store.List(ctx, KindBonus)
	require.NoError(t, err)
	assert.Len(t, bonuses, 2)
}

func TestLedger_ConcurrentSubmittersOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	var delivered int32
	ledger, _ := newTestLedger(SinkFunc(func(context.Context, Submission) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}))

	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Submit(ctx, overtimeSubmission()); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(1), delivered)
}

func TestLedger_CheckFailureAbortsBeforeRecord(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ledger, store := newTestLedger(SinkFunc(func(context.Context, Submission) error {
		calls++
		return nil
	}))
	refused := errors.New("refused")
	var seen []Submission

	_, err := ledger.Submit(ctx, overtimeSubmission(), func(ctx context.Context, tx Store, sub Submission) error {
		listed, err := tx.List(ctx, KindOvertime)
		require.NoError(t, err)
		seen = listed
		return refused
	})
	assert.ErrorIs(t, err, refused)
	assert.Empty(t, seen)
	assert.Equal(t, 0, calls)

	exists, err := store.Exists(ctx, KindOvertime, OvertimeKey(march.Period()))
	require.NoError(t, err)
	assert.False(t, exists)
}
