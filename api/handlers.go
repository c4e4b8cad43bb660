/*
handlers.go - HTTP API handlers for the staffing engine

PURPOSE:
  Exposes the forecast, overtime and roster operations via REST API.
  Handles HTTP request/response and JSON serialization, and delegates to
  the services.

ENDPOINTS:
  Roster:
    GET    /api/people                         List people
    POST   /api/people                         Create or update a person
    GET    /api/people/{id}                    Get one person
    POST   /api/people/{id}/rates              Append a cost or sell rate
    GET    /api/projects                       List projects with tasks
    POST   /api/projects                       Create or update a project
    POST   /api/projects/{id}/tasks/{taskId}/rates  Append a task sell rate

  Activity:
    POST   /api/time-entries                   Record logged hours
    POST   /api/leave                          Record leave
    GET    /api/holidays?month=YYYY-MM         List holidays
    POST   /api/holidays                       Add a holiday
    POST   /api/bonuses                        Plan a bonus
    POST   /api/approvals                      Record a timesheet approval

  Forecasts:
    GET    /api/forecasts/{month}              Compute one month
    GET    /api/forecasts/range?from=&to=      Compute consecutive months
    PUT    /api/forecasts/{month}/overrides/{kind}/{id}/{field}  Override a field (null resets)
    DELETE /api/forecasts/{month}/overrides/{kind}/{id}/{field}  Reset to default
    POST   /api/forecasts/{month}/snapshots    Save the month's forecast
    GET    /api/forecasts/snapshots            List saved forecasts
    GET    /api/forecasts/compare?id=&id=      Combine saved forecasts

  Payroll:
    GET    /api/overtime?start=&end=           Overtime report
    GET    /api/overtime/submission?start=&end=  Submission status
    POST   /api/overtime/submit                Submit overtime once
    POST   /api/bonuses/{personId}/{month}/submit  Submit a bonus once

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, nothing to submit
  - 404: Resource not found
  - 409: Conflict (already submitted, approvals pending, duplicate name)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/factory"
	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/overlay"
	"github.com/warp/staffing-engine/overtime"
	"github.com/warp/staffing-engine/store/sqlite"
	"github.com/warp/staffing-engine/submission"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Factory   *factory.RosterFactory
	Forecasts *forecast.Service
	Overtime  *overtime.Service
	Editor    *overlay.Editor
}

// NewHandler creates a handler over the store and services.
func NewHandler(store *sqlite.Store, forecasts *forecast.Service, overtimeSvc *overtime.Service) *Handler {
	return &Handler{
		Store:     store,
		Factory:   factory.NewRosterFactory(),
		Forecasts: forecasts,
		Overtime:  overtimeSvc,
		Editor:    overlay.NewEditor(forecasts.Overlay),
	}
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.Store.People(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := h.Store.Person(r.Context(), generic.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to get person", err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req factory.PersonJSON
	if !decodeBody(w, r, &req) {
		return
	}
	person, err := h.Factory.BuildPerson(req)
	if err != nil {
		writeServiceError(w, "Invalid person", err)
		return
	}
	if err := h.Store.SavePerson(r.Context(), *person); err != nil {
		writeServiceError(w, "Failed to save person", err)
		return
	}
	saved, err := h.Store.Person(r.Context(), person.ID)
	if err != nil {
		writeServiceError(w, "Failed to reload person", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// AppendPersonRate appends to the cost history, or the sell history when
// kind is "sell".
func (h *Handler) AppendPersonRate(w http.ResponseWriter, r *http.Request) {
	var req AppendRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Kind != "" && req.Kind != "cost" && req.Kind != "sell" {
		writeError(w, http.StatusBadRequest, "Invalid rate kind (use cost or sell)", nil)
		return
	}
	entry, err := factory.ParseRate(req.RateJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	id := generic.EntityID(chi.URLParam(r, "id"))
	if err := h.Store.AppendPersonRate(r.Context(), id, req.Kind == "sell", entry); err != nil {
		writeServiceError(w, "Failed to append rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.Projects(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req factory.ProjectJSON
	if !decodeBody(w, r, &req) {
		return
	}
	project, err := h.Factory.BuildProject(req)
	if err != nil {
		writeServiceError(w, "Invalid project", err)
		return
	}
	if err := h.Store.SaveProject(r.Context(), *project); err != nil {
		writeServiceError(w, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) AppendTaskRate(w http.ResponseWriter, r *http.Request) {
	var req AppendRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := factory.ParseRate(req.RateJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	projectID := generic.EntityID(chi.URLParam(r, "id"))
	taskID := generic.EntityID(chi.URLParam(r, "taskId"))
	if err := h.Store.AppendTaskRate(r.Context(), projectID, taskID, entry); err != nil {
		writeServiceError(w, "Failed to append rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req factory.TimeEntryJSON
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.Factory.BuildTimeEntry(req)
	if err != nil {
		writeServiceError(w, "Invalid time entry", err)
		return
	}
	saved, err := h.Store.SaveTimeEntry(r.Context(), *entry)
	if err != nil {
		writeServiceError(w, "Failed to save time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req factory.LeaveJSON
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := h.Factory.BuildLeave(req)
	if err != nil {
		writeServiceError(w, "Invalid leave", err)
		return
	}
	saved, err := h.Store.SaveLeave(r.Context(), *record)
	if err != nil {
		writeServiceError(w, "Failed to save leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListHolidays lists holidays of ?month=YYYY-MM, the current month by default.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	month := generic.Today(h.Forecasts.Clock).YearMonth()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := generic.ParseYearMonth(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		month = parsed
	}
	holidays, err := h.Store.Holidays(r.Context(), month.Period())
	if err != nil {
		writeServiceError(w, "Failed to list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req factory.HolidayJSON
	if !decodeBody(w, r, &req) {
		return
	}
	holiday, err := h.Factory.BuildHoliday(req)
	if err != nil {
		writeServiceError(w, "Invalid holiday", err)
		return
	}
	saved, err := h.Store.SaveHoliday(r.Context(), *holiday)
	if err != nil {
		writeServiceError(w, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) CreateBonus(w http.ResponseWriter, r *http.Request) {
	var req factory.BonusJSON
	if !decodeBody(w, r, &req) {
		return
	}
	bonus, err := h.Factory.BuildBonus(req)
	if err != nil {
		writeServiceError(w, "Invalid bonus", err)
		return
	}
	if err := h.Store.SaveBonus(r.Context(), bonus.PersonID, bonus.Month, bonus.Amount); err != nil {
		writeServiceError(w, "Failed to save bonus", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) CreateApproval(w http.ResponseWriter, r *http.Request) {
	var req factory.ApprovalJSON
	if !decodeBody(w, r, &req) {
		return
	}
	approval, err := h.Factory.BuildApproval(req)
	if err != nil {
		writeServiceError(w, "Invalid approval", err)
		return
	}
	if err := h.Store.SaveApproval(r.Context(), *approval); err != nil {
		writeServiceError(w, "Failed to save approval", err)
		return
	}
	writeJSON(w, http.StatusCreated, approval)
}

// =============================================================================
// FORECAST HANDLERS
// =============================================================================

func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	result, err := h.Forecasts.Forecast(r.Context(), month)
	if err != nil {
		writeServiceError(w, "Failed to compute forecast", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetForecastRange(w http.ResponseWriter, r *http.Request) {
	from, err := generic.ParseYearMonth(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from month", err)
		return
	}
	to, err := generic.ParseYearMonth(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to month", err)
		return
	}
	results, combined, err := h.Forecasts.Range(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, "Failed to compute forecast range", err)
		return
	}
	writeJSON(w, http.StatusOK, RangeResponse{Months: results, Combined: combined})
}

// SetOverride stores a forecast override. Dependent overrides are cleared
// in the same write. A null value resets the field like ClearOverride.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	var req OverrideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	subject, field, ok := h.overrideTarget(w, r)
	if !ok {
		return
	}
	scope := overlay.ForecastScope(month)
	var err error
	if req.Value == nil {
		err = h.Editor.Reset(r.Context(), scope, subject, field)
	} else {
		err = h.Editor.Set(r.Context(), scope, subject, field, *req.Value)
	}
	if err != nil {
		writeServiceError(w, "Failed to set override", err)
		return
	}
	writeJSON(w, http.StatusOK, OverrideDTO{Month: month, Key: subject.Key(field).String(), Value: req.Value})
}

// ClearOverride resets a field to its computed default.
func (h *Handler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	subject, field, ok := h.overrideTarget(w, r)
	if !ok {
		return
	}
	if err := h.Editor.Reset(r.Context(), overlay.ForecastScope(month), subject, field); err != nil {
		writeServiceError(w, "Failed to clear override", err)
		return
	}
	writeJSON(w, http.StatusOK, OverrideDTO{Month: month, Key: subject.Key(field).String()})
}

// overrideTarget resolves the {kind}/{id}/{field} path. Staff are
// overridden as "person", planned hires as "row"; the other kind is
// rejected because the forecast would never read it. Overrides on unknown
// ids are accepted and never read.
func (h *Handler) overrideTarget(w http.ResponseWriter, r *http.Request) (overlay.Subject, overlay.Field, bool) {
	subject := overlay.Subject{
		Kind: overlay.Kind(chi.URLParam(r, "kind")),
		ID:   generic.EntityID(chi.URLParam(r, "id")),
	}
	field := overlay.Field(chi.URLParam(r, "field"))
	if err := subject.Key(field).Validate(); err != nil {
		writeServiceError(w, "Invalid override key", err)
		return subject, field, false
	}
	person, err := h.Store.Person(r.Context(), subject.ID)
	switch {
	case err == nil:
		if want := overlay.SubjectOf(person.ID, person.Potential); want.Kind != subject.Kind {
			kindErr := fmt.Errorf("%w: %s is overridden as %q", generic.ErrInvalidField, person.ID, want.Kind)
			writeServiceError(w, "Invalid override kind", kindErr)
			return subject, field, false
		}
	case !generic.IsNotFound(err):
		writeServiceError(w, "Failed to load person", err)
		return subject, field, false
	}
	return subject, field, true
}

func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	var req SaveSnapshotRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	snap, err := h.Forecasts.SaveSnapshot(r.Context(), month, req.Name)
	if err != nil {
		writeServiceError(w, "Failed to save snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Forecasts.Snapshots.ListSnapshots(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []forecast.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *Handler) CompareSnapshots(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.Forecasts.Compare(r.Context(), r.URL.Query()["id"])
	if err != nil {
		writeServiceError(w, "Failed to compare snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	period, ok := periodQuery(w, r)
	if !ok {
		return
	}
	report, err := h.Overtime.Report(r.Context(), period)
	if err != nil {
		writeServiceError(w, "Failed to compute overtime", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetOvertimeSubmission(w http.ResponseWriter, r *http.Request) {
	period, ok := periodQuery(w, r)
	if !ok {
		return
	}
	key := submission.OvertimeKey(period)
	sub, found, err := h.Overtime.Ledger.Store.Get(r.Context(), submission.KindOvertime, key)
	if err != nil {
		writeServiceError(w, "Failed to load submission", err)
		return
	}
	status := SubmissionStatusDTO{Key: key, Submitted: found}
	if found {
		status.Submission = &sub
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) SubmitOvertime(w http.ResponseWriter, r *http.Request) {
	var req SubmitOvertimeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := parsePeriod(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	sub, err := h.Overtime.Submit(r.Context(), period, req.Actor)
	if err != nil {
		writeServiceError(w, "Failed to submit overtime", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) SubmitBonus(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	var req SubmitBonusRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	personID := generic.EntityID(chi.URLParam(r, "personId"))
	sub, err := h.Forecasts.SubmitBonus(r.Context(), personID, month, req.Actor)
	if err != nil {
		writeServiceError(w, "Failed to submit bonus", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError picks the status from the error's class.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case generic.IsClientError(err):
		status, code = http.StatusBadRequest, "invalid"
	case generic.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case generic.IsConflict(err):
		status, code = http.StatusConflict, "conflict"
	default:
		log.WithError(err).Error(message)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func monthParam(w http.ResponseWriter, r *http.Request) (generic.YearMonth, bool) {
	month, err := generic.ParseYearMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return generic.YearMonth{}, false
	}
	return month, true
}

func periodQuery(w http.ResponseWriter, r *http.Request) (generic.Period, bool) {
	period, err := parsePeriod(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return generic.Period{}, false
	}
	return period, true
}

func parsePeriod(start, end string) (generic.Period, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.Period{}, fmt.Errorf("start: %w", err)
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.Period{}, fmt.Errorf("end: %w", err)
	}
	return generic.NewPeriod(s, e)
}
