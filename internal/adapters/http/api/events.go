// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
)

// EventDependencies defines the interface for point event ingestion.
type EventDependencies interface {
	SubmitPointEvent(ctx context.Context, ev model.PointEvent) error
}

// EventsHandler handles point event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests. A replayed event id is
// acknowledged as a duplicate; a full queue yields 429 and the id stays
// retryable.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ev := model.PointEvent{
		EventID:  req.EventID,
		UserID:   req.UserID,
		Activity: req.Activity,
		Amount:   req.Amount,
	}
	if req.TS != "" {
		ev.TS, _ = time.Parse(time.RFC3339, req.TS)
	}

	err := h.deps.SubmitPointEvent(r.Context(), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, service.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
