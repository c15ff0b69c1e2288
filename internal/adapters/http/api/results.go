// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/rai/internal/domain/model"
)

// ResultDependencies defines the interface for result queries.
type ResultDependencies interface {
	Results(ctx context.Context, playID string) ([]model.Result, error)
	AgentResults(ctx context.Context, agentID string) ([]model.Result, error)
	Omissions(ctx context.Context) []model.Omission
}

// ResultsHandler handles result queries.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// resultsResponse is the read shape for GET /results.
type resultsResponse struct {
	Results  []model.Result `json:"results,omitempty"`
	Omitted  bool           `json:"omitted,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Warnings int            `json:"warnings"`
}

// HandleGetResults handles GET /results?event={play_id} and
// GET /results?agent={agent_id} requests. An omitted play answers 200 with
// the omission reason rather than 404, so callers can tell "rejected" from
// "never seen".
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	playID := r.URL.Query().Get("event")
	agentID := r.URL.Query().Get("agent")
	switch {
	case playID != "" && agentID == "":
		h.servePlay(w, r, playID)
	case agentID != "" && playID == "":
		h.serveAgent(w, r, agentID)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

func (h *ResultsHandler) servePlay(w http.ResponseWriter, r *http.Request, playID string) {
	results, err := h.deps.Results(r.Context(), playID)
	if err != nil {
		if isNotFound(err) {
			for _, om := range h.deps.Omissions(r.Context()) {
				if om.PlayID == playID {
					writeJSON(w, http.StatusOK, resultsResponse{Omitted: true, Reason: om.Reason})
					return
				}
			}
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap("api.get_results", err))
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: results, Warnings: countWarnings(results)})
}

func (h *ResultsHandler) serveAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	results, err := h.deps.AgentResults(r.Context(), agentID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap("api.get_results", err))
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: results, Warnings: countWarnings(results)})
}

func countWarnings(results []model.Result) int {
	total := 0
	for i := range results {
		total += len(results[i].Warnings)
	}
	return total
}
