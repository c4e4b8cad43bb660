package submission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// LEDGER - check, record, deliver
// =============================================================================

type Ledger struct {
	Store TxStore
	Sink  Sink
	Clock generic.Clock
}

func NewLedger(store TxStore, sink Sink, clock generic.Clock) *Ledger {
	return &Ledger{Store: store, Sink: sink, Clock: clock}
}

// IsSubmitted reports whether (kind, key) was already submitted.
func (l *Ledger) IsSubmitted(ctx context.Context, kind Kind, key string) (bool, error) {
	return l.Store.Exists(ctx, kind, key)
}

// Check runs inside the submission transaction after the duplicate-key
// check. A non-nil error aborts the submission before anything is recorded.
type Check func(ctx context.Context, tx Store, sub Submission) error

// Submit records sub and delivers it to the sink in one transaction. A
// duplicate key returns *generic.DuplicateSubmissionError and the sink is
// never called. A sink failure rolls the record back.
func (l *Ledger) Submit(ctx context.Context, sub Submission, checks ...Check) (Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = l.Clock.Now().UTC()
	}

	err := l.Store.WithTx(ctx, func(tx Store) error {
		exists, err := tx.Exists(ctx, sub.Kind, sub.Key)
		if err != nil {
			return fmt.Errorf("check submission: %w", err)
		}
		if exists {
			return &generic.DuplicateSubmissionError{Kind: string(sub.Kind), Key: sub.Key}
		}
		for _, check := range checks {
			if err := check(ctx, tx, sub); err != nil {
				return err
			}
		}
		if err := tx.Record(ctx, sub); err != nil {
			return fmt.Errorf("record submission: %w", err)
		}
		if l.Sink == nil {
			return nil
		}
		if err := l.Sink.Deliver(ctx, sub); err != nil {
			return fmt.Errorf("deliver %s %s: %w", sub.Kind, sub.Key, err)
		}
		return nil
	})
	if err != nil {
		return Submission{}, err
	}

	log.Infof("submitted %s %s by %s (total %s, %d lines)", sub.Kind, sub.Key, sub.Actor, sub.Total.StringFixed(2), len(sub.Lines))
	return sub, nil
}

// =============================================================================
// SINKS
// =============================================================================

// LogSink stands in for the payroll system by logging each submission.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, s Submission) error {
	entry := log.WithFields(log.Fields{
		"kind":  s.Kind,
		"key":   s.Key,
		"actor": s.Actor,
		"total": s.Total.StringFixed(2),
	})
	for _, line := range s.Lines {
		entry.WithFields(log.Fields{
			"person":  line.PersonID,
			"project": line.ProjectID,
			"amount":  line.Amount.StringFixed(2),
		}).Info("payroll line")
	}
	entry.Info("payroll submission delivered")
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Submission) error

func (f SinkFunc) Deliver(ctx context.Context, s Submission) error { return f(ctx, s) }
