package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// jobView renders a record for API consumers. result_ref and error_detail
// are present exactly when the corresponding terminal state was reached.
func jobView(job *domain.Job) map[string]any {
	view := map[string]any{
		"operation_id": job.ID,
		"prompt":       job.Summary,
		"kind":         job.Kind,
		"status":       job.Status,
		"created_at":   job.CreatedAt,
		"updated_at":   job.UpdatedAt,
	}
	if job.ResultRef != "" {
		view["result_ref"] = job.ResultRef
	}
	if job.ErrorDetail != "" {
		view["error_detail"] = job.ErrorDetail
	}
	return view
}

// OperationStatus returns the current record for one operation id.
func (a *App) OperationStatus(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "operation_id")
	if operationID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "operation_id required")
		return
	}
	job, err := a.Status.GetStatus(r.Context(), operationID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, jobView(job))
}

// History returns all records, most recent first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	records, err := a.Status.ListHistory(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(records))
	for i := range records {
		views = append(views, jobView(&records[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"history": views})
}

// UsageReport aggregates records for the requested window.
func (a *App) UsageReport(w http.ResponseWriter, r *http.Request) {
	rng, ok := domain.ParseReportRange(r.URL.Query().Get("range"))
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "range must be one of 7d, 4w, all")
		return
	}
	report, err := a.Status.UsageReport(r.Context(), rng)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, report)
}
