/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Services wrap these errors with additional context; the API maps them
  to HTTP status codes through the classifiers at the bottom of this file.

ERROR CATEGORIES:
  1. Submission errors - a pay period or bonus submitted twice
  2. Validation errors - malformed periods, unknown overlay fields
  3. Store errors - missing entities

Pure calculations never return errors: a missing rate resolves to zero and
an empty allocation basis yields an empty breakdown.
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadySubmitted is returned when a submission key was already recorded.
	ErrAlreadySubmitted = errors.New("already submitted")

	// ErrNothingToSubmit is returned when a pay period has no overtime.
	ErrNothingToSubmit = errors.New("nothing to submit")

	// ErrApprovalsPending is returned when submission requires approvals that are not yet approved.
	ErrApprovalsPending = errors.New("required approvals are pending")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidField is returned for an overlay field or entity kind the engine does not know.
	ErrInvalidField = errors.New("invalid overlay field")

	// ErrInvalidInput is returned for documents that fail validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrSnapshotNotFound is returned when a saved forecast doesn't exist.
	ErrSnapshotNotFound = errors.New("forecast snapshot not found")

	// ErrDuplicateSnapshot is returned when a snapshot name is already taken.
	ErrDuplicateSnapshot = errors.New("forecast snapshot name already used")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateSubmissionError names the submission that already exists.
type DuplicateSubmissionError struct {
	Kind string
	Key  string
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("%s %s already submitted", e.Kind, e.Key)
}

func (e *DuplicateSubmissionError) Unwrap() error {
	return ErrAlreadySubmitted
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNothingToSubmit)
}

// IsConflict returns true if the request conflicts with recorded state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrApprovalsPending) ||
		errors.Is(err, ErrDuplicateSnapshot)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrSnapshotNotFound)
}
