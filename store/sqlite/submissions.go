package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/submission"
)

// =============================================================================
// SUBMISSION STORE (submission.TxStore interface)
// =============================================================================

// SubmissionStore persists payroll submissions. The unique (kind, key)
// constraint backs the ledger's Exists check.
type SubmissionStore struct {
	s *Store
}

// Submissions returns the submission.TxStore view of the database.
func (s *Store) Submissions() *SubmissionStore {
	return &SubmissionStore{s: s}
}

func (ss *SubmissionStore) Exists(ctx context.Context, kind submission.Kind, key string) (bool, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	return submissionExists(ctx, ss.s.db, kind, key)
}

func (ss *SubmissionStore) Record(ctx context.Context, sub submission.Submission) error {
	return ss.s.inTx(ctx, func(q querier) error {
		return recordSubmission(ctx, q, sub)
	})
}

func (ss *SubmissionStore) Get(ctx context.Context, kind submission.Kind, key string) (submission.Submission, bool, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	return getSubmission(ctx, ss.s.db, kind, key)
}

func (ss *SubmissionStore) List(ctx context.Context, kind submission.Kind) ([]submission.Submission, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	return listSubmissions(ctx, ss.s.db, kind)
}

// WithTx executes fn within a database transaction.
func (ss *SubmissionStore) WithTx(ctx context.Context, fn func(submission.Store) error) error {
	return ss.s.inTx(ctx, func(q querier) error {
		return fn(&submissionTx{q: q})
	})
}

// submissionTx is the Store handed to WithTx callbacks. Every call goes
// through the open transaction.
type submissionTx struct {
	q querier
}

func (tx *submissionTx) Exists(ctx context.Context, kind submission.Kind, key string) (bool, error) {
	return submissionExists(ctx, tx.q, kind, key)
}

func (tx *submissionTx) Record(ctx context.Context, sub submission.Submission) error {
	return recordSubmission(ctx, tx.q, sub)
}

func (tx *submissionTx) Get(ctx context.Context, kind submission.Kind, key string) (submission.Submission, bool, error) {
	return getSubmission(ctx, tx.q, kind, key)
}

func (tx *submissionTx) List(ctx context.Context, kind submission.Kind) ([]submission.Submission, error) {
	return listSubmissions(ctx, tx.q, kind)
}

func submissionExists(ctx context.Context, q querier, kind submission.Kind, key string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM submissions WHERE kind = ? AND submission_key = ?",
		kind, key,
	).Scan(&count)
	return count > 0, err
}

func recordSubmission(ctx context.Context, q querier, sub submission.Submission) error {
	linesJSON, err := json.Marshal(sub.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode submission lines: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO submissions (id, kind, submission_key, actor, total, lines_json, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Kind, sub.Key, sub.Actor, sub.Total.String(), string(linesJSON),
		sub.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadySubmitted
		}
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

const submissionColumns = "id, kind, submission_key, actor, total, lines_json, submitted_at"

func getSubmission(ctx context.Context, q querier, kind submission.Kind, key string) (submission.Submission, bool, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE kind = ? AND submission_key = ?", kind, key)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, false, nil
	}
	if err != nil {
		return submission.Submission{}, false, err
	}
	return sub, true, nil
}

func listSubmissions(ctx context.Context, q querier, kind submission.Kind) ([]submission.Submission, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE kind = ? ORDER BY submitted_at, submission_key", kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row scanner) (submission.Submission, error) {
	var (
		sub                       submission.Submission
		total, lines, submittedAt string
	)
	if err := row.Scan(&sub.ID, &sub.Kind, &sub.Key, &sub.Actor, &total, &lines, &submittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sub, err
		}
		return sub, fmt.Errorf("failed to scan submission: %w", err)
	}
	var err error
	if sub.Total, err = parseDecimal("submission total", total); err != nil {
		return sub, err
	}
	if err := json.Unmarshal([]byte(lines), &sub.Lines); err != nil {
		return sub, fmt.Errorf("corrupt submission %s lines: %w", sub.ID, err)
	}
	if sub.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
		return sub, fmt.Errorf("corrupt submission %s submitted_at: %w", sub.ID, err)
	}
	return sub, nil
}

var _ submission.TxStore = (*SubmissionStore)(nil)
