/*
Package submission records payroll submissions exactly once.

PURPOSE:
  Overtime for a pay period and a person's monthly bonus are handed to an
  external payroll system. Each hand-off is recorded under an idempotency
  key; a second submission with the same key is rejected before anything
  reaches payroll.

KEY CONCEPTS:
  - Submission: what was sent, under which (kind, key), by whom, when
  - Store: persistence with an Exists check and transactional Record
  - Sink: the external payroll system
  - Ledger: check, record and deliver in one transaction

IDEMPOTENCY:
  The ledger checks Exists inside the transaction and the store enforces a
  unique (kind, key) constraint, so concurrent submitters cannot both
  succeed. If the sink fails, the record is rolled back and the
  submission can be retried.

SEE ALSO:
  - overtime/service.go: overtime submission
  - forecast/bonus.go: bonus submission
  - store/sqlite: persistent Store
*/
package submission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
)

type Kind string

const (
	KindOvertime Kind = "overtime"
	KindBonus    Kind = "bonus"
)

// Line is one payable amount inside a submission.
type Line struct {
	PersonID  generic.EntityID `json:"personId"`
	ProjectID generic.EntityID `json:"projectId,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
}

type Submission struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Key         string          `json:"key"`
	Actor       string          `json:"actor"`
	Total       decimal.Decimal `json:"total"`
	Lines       []Line          `json:"lines"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// OvertimeKey is the idempotency key of a pay period.
func OvertimeKey(period generic.Period) string {
	return period.Key()
}

// BonusKey is the idempotency key of a person's bonus for a month.
func BonusKey(personID generic.EntityID, month generic.YearMonth) string {
	return string(personID) + "@" + month.String()
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	Exists(ctx context.Context, kind Kind, key string) (bool, error)

	// Record fails with generic.ErrAlreadySubmitted when (kind, key) exists.
	Record(ctx context.Context, s Submission) error

	Get(ctx context.Context, kind Kind, key string) (Submission, bool, error)
	List(ctx context.Context, kind Kind) ([]Submission, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Sink delivers a recorded submission to the payroll system.
type Sink interface {
	Deliver(ctx context.Context, s Submission) error
}
