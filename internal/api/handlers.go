package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/validate"
)

// Handler exposes validation operations over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler backed by the given service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type validateRequest struct {
	Files   []string `json:"files,omitempty"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

type validateResponse struct {
	RunID  int64                     `json:"run_id"`
	Files  int                       `json:"files"`
	Result validate.ValidationResult `json:"result"`
}

// Validate handles POST /validate. An empty body runs with the configured
// default patterns.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
			return
		}
	}

	info, runID, err := h.svc.Validate(r.Context(), validate.Request{
		Files:   req.Files,
		Include: req.Include,
		Exclude: req.Exclude,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		RunID:  runID,
		Files:  len(info.Files),
		Result: info.Result,
	})
}

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// RunIssues handles GET /runs/{id}/issues.
func (h *Handler) RunIssues(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid run id"))
		return
	}
	issues, err := h.svc.RunIssues(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, issues)
}
