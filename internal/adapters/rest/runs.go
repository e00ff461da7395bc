package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

const errCodeInvalidConfiguration = "INVALID_CONFIGURATION"

// createRunRequest defines what the client sends us. Omitted knobs take the
// server defaults.
type createRunRequest struct {
	RefDes          string   `json:"refdes"`
	Date            string   `json:"date"`
	Encoding        string   `json:"encoding"`
	JitterTolerance *int     `json:"jitter_tolerance"`
	GapTolerance    *float64 `json:"gap_tolerance"`
	Concurrency     *int     `json:"concurrency"`
}

type runEntryResponse struct {
	Position     int       `json:"position"`
	URL          string    `json:"url"`
	NominalStart time.Time `json:"nominal_start"`
	Status       string    `json:"status"`
	Start        time.Time `json:"start,omitzero"`
	End          time.Time `json:"end,omitzero"`
	SampleCount  int       `json:"sample_count,omitempty"`
	TraceCount   int       `json:"trace_count,omitempty"`
	Path         string    `json:"repair_path,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	Artifact     string    `json:"artifact,omitempty"`
}

type runResponse struct {
	ID              string             `json:"id"`
	RefDes          string             `json:"refdes"`
	Date            string             `json:"date"`
	Encoding        string             `json:"encoding"`
	JitterTolerance int                `json:"jitter_tolerance"`
	GapTolerance    float64            `json:"gap_tolerance"`
	Concurrency     int                `json:"concurrency"`
	Status          string             `json:"status"`
	Attempts        int                `json:"attempts"`
	Error           string             `json:"error,omitempty"`
	Repaired        int                `json:"repaired"`
	Discarded       int                `json:"discarded"`
	Failed          int                `json:"failed"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at,omitzero"`
	Entries         []runEntryResponse `json:"entries,omitempty"`
}

func toRunResponse(run domain.RunRecord, withEntries bool) runResponse {
	repaired, discarded, failed := run.Counts()
	resp := runResponse{
		ID:              run.ID,
		RefDes:          run.RefDes,
		Date:            run.Day.Format(time.DateOnly),
		Encoding:        string(run.Encoding),
		JitterTolerance: run.Params.JitterTolerance,
		GapTolerance:    run.Params.GapTolerance,
		Concurrency:     run.Concurrency,
		Status:          string(run.Status),
		Attempts:        run.Attempts,
		Error:           run.Error,
		Repaired:        repaired,
		Discarded:       discarded,
		Failed:          failed,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
	if withEntries {
		for _, e := range run.Entries {
			resp.Entries = append(resp.Entries, runEntryResponse{
				Position:     e.Position,
				URL:          e.URL,
				NominalStart: e.NominalStart,
				Status:       string(e.Status),
				Start:        e.Start,
				End:          e.End,
				SampleCount:  e.SampleCount,
				TraceCount:   e.TraceCount,
				Path:         string(e.Path),
				Reason:       e.Reason,
				Error:        e.Error,
				Artifact:     e.Artifact,
			})
		}
	}
	return resp
}

// CreateRun handles POST /runs. The day is reconstructed before the response
// is written; a day that fails still answers 201 with a failed run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	refdes, day, ok := parseDayQuery(w, req.RefDes, req.Date)
	if !ok {
		return
	}

	params := h.deps.Defaults
	if req.Encoding != "" {
		enc, err := domain.ParseEncoding(req.Encoding)
		if err != nil {
			writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidConfiguration)
			return
		}
		params.Encoding = enc
	}
	if req.JitterTolerance != nil {
		params.Repair.JitterTolerance = *req.JitterTolerance
	}
	if req.GapTolerance != nil {
		params.Repair.GapTolerance = *req.GapTolerance
	}
	if req.Concurrency != nil {
		params.Concurrency = *req.Concurrency
	}
	if err := params.Validate(); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidConfiguration)
		return
	}

	report, err := h.deps.Runner.RunDay(r.Context(), refdes, day, params)
	if err != nil && report.Run.ID == "" {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Location", "/runs/"+report.Run.ID)
	writeJSON(w, http.StatusCreated, toRunResponse(report.Run, true))
}

// GetRun handles GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := h.deps.Runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run, true))
}

// ListRuns handles GET /runs?refdes=...&limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.deps.Runs.ListRuns(r.Context(), r.URL.Query().Get("refdes"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run, false))
	}
	writeJSON(w, http.StatusOK, resp)
}
