package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// Runner executes one task to completion.
type Runner interface {
	Query(ctx context.Context, task model.Task) (escalation.Outcome, error)
}

// ReportLister returns the raw observer reports stored for a task.
type ReportLister interface {
	Reports(ctx context.Context, taskID string) ([]model.Report, error)
}

type errorBody struct {
	TaskID string `json:"task_id,omitempty"`
	Error  string `json:"error"`
}

// NewHandler serves POST /api/tasks, which runs a task and answers with its
// outcome, and GET /api/tasks/{id}/reports. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(run Runner, reports ReportLister, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks"), "/")
		switch {
		case path == "" && r.Method == http.MethodPost:
			submit(w, r, run)
		case strings.HasSuffix(path, "/reports") && r.Method == http.MethodGet:
			list(w, r, reports, strings.TrimSuffix(path, "/reports"))
		case path == "" || strings.HasSuffix(path, "/reports"):
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		default:
			http.NotFound(w, r)
		}
	})
}

func submit(w http.ResponseWriter, r *http.Request, run Runner) {
	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid task: " + err.Error()})
		return
	}
	if task.Target == nil && task.Coordinates == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{TaskID: task.ID, Error: escalation.ErrNoTarget.Error()})
		return
	}
	out, err := run.Query(r.Context(), task)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{TaskID: out.TaskID, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, escalation.ErrNoTarget), errors.Is(err, grid.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, escalation.ErrTaskInProgress):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, escalation.ErrJudgment), errors.Is(err, escalation.ErrSynthesis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func list(w http.ResponseWriter, r *http.Request, reports ReportLister, id string) {
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	recs, err := reports.Reports(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{TaskID: id, Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []model.Report{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
