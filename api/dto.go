/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not domain
  types already. Forecast results, overtime reports and submissions are
  returned as-is; roster and activity bodies reuse the factory's JSON
  schema so an import file and an API call look the same.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO / *Response: Response types returned to clients

VALIDATION:
  Validation is done in handlers and the factory, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/roster.go: PersonJSON, ProjectJSON and friends
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/factory"
	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/submission"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AppendRateRequest appends an entry to a rate history. Kind selects the
// person history ("cost" or "sell"); it is ignored for task rates.
type AppendRateRequest struct {
	Kind string `json:"kind,omitempty"`
	factory.RateJSON
}

// OverrideRequest sets one forecast override. A null or missing value
// removes the override instead.
type OverrideRequest struct {
	Value *decimal.Decimal `json:"value"`
}

// SaveSnapshotRequest names a saved forecast. Empty means the month.
type SaveSnapshotRequest struct {
	Name string `json:"name,omitempty"`
}

// SubmitOvertimeRequest sends a pay period's overtime to payroll.
type SubmitOvertimeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Actor string `json:"actor"`
}

// SubmitBonusRequest sends a planned bonus to payroll.
type SubmitBonusRequest struct {
	Actor string `json:"actor"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RangeResponse is a multi-month forecast with combined totals.
type RangeResponse struct {
	Months   []forecast.Result `json:"months"`
	Combined forecast.Totals   `json:"combined"`
}

// SubmissionStatusDTO reports whether a period or bonus was submitted.
type SubmissionStatusDTO struct {
	Key        string                 `json:"key"`
	Submitted  bool                   `json:"submitted"`
	Submission *submission.Submission `json:"submission,omitempty"`
}

// OverrideDTO echoes an override write.
type OverrideDTO struct {
	Month generic.YearMonth `json:"month"`
	Key   string            `json:"key"`
	Value *decimal.Decimal  `json:"value,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
