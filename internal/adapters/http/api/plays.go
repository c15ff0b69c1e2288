// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/rai/internal/app"
	"github.com/okian/rai/internal/domain/model"
)

// PlayDependencies defines the interface for play submission.
type PlayDependencies interface {
	Submit(ctx context.Context, play model.Play) error
}

// PlaysHandler handles play submissions.
type PlaysHandler struct {
	deps PlayDependencies
}

// NewPlaysHandler creates a plays handler.
func NewPlaysHandler(deps PlayDependencies) *PlaysHandler {
	return &PlaysHandler{deps: deps}
}

// playRequest mirrors the JSON schema for POST /plays.
type playRequest struct {
	PlayID   string  `json:"play_id"`
	Interval float64 `json:"interval"`
	TargetX  float64 `json:"target_x"`
	TargetY  float64 `json:"target_y"`
	Agents   []struct {
		AgentID    string `json:"agent_id"`
		Assignment string `json:"assignment"`
		Team       string `json:"team"`
		OpponentID string `json:"opponent_id"`
		Samples    []struct {
			Frame int     `json:"frame"`
			X     float64 `json:"x"`
			Y     float64 `json:"y"`
		} `json:"samples"`
	} `json:"agents"`
}

func (p playRequest) validate() error {
	switch {
	case strings.TrimSpace(p.PlayID) == "":
		return errors.New("missing play_id")
	case p.Interval <= 0:
		return errors.New("interval must be positive")
	case len(p.Agents) == 0:
		return errors.New("missing agents")
	}
	for _, a := range p.Agents {
		if strings.TrimSpace(a.AgentID) == "" {
			return errors.New("agent with missing agent_id")
		}
	}
	return nil
}

// toModel converts the request to the domain play.
func (p playRequest) toModel() model.Play {
	play := model.Play{
		PlayID: p.PlayID,
		Context: model.PlayContext{
			TargetX: p.TargetX,
			TargetY: p.TargetY,
			Agents:  make(map[string]model.AgentContext, len(p.Agents)),
		},
		Trajectories: make([]model.Trajectory, 0, len(p.Agents)),
	}
	for _, a := range p.Agents {
		play.Context.Agents[a.AgentID] = model.AgentContext{
			Assignment: a.Assignment,
			Team:       a.Team,
			OpponentID: a.OpponentID,
		}
		samples := make([]model.Sample, len(a.Samples))
		for i, s := range a.Samples {
			samples[i] = model.Sample{Frame: s.Frame, X: s.X, Y: s.Y}
		}
		play.Trajectories = append(play.Trajectories, model.Trajectory{
			AgentID:  a.AgentID,
			Samples:  samples,
			Interval: p.Interval,
		})
	}
	return play
}

// HandlePostPlay handles POST /plays requests.
func (h *PlaysHandler) HandlePostPlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_play"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch err := h.deps.Submit(r.Context(), req.toModel()); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
	case errors.Is(err, app.ErrDuplicatePlay):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, app.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	}
}
