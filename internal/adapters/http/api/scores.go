// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// ScoresDependencies defines the interface for the score write-through.
type ScoresDependencies interface {
	UpdateScore(ctx context.Context, userID, newTotal int64)
}

// ScoresHandler handles direct score update requests.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandlePostScore handles POST /scores requests. The update is fire and
// forget: acceptance acknowledges the enqueue attempt, not the cache write.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	h.deps.UpdateScore(r.Context(), req.UserID, req.NewTotal)
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
