// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations expose ranking data.
	GetTopRankings(ctx context.Context, requestingUserID *int64) (types.Rankings, error)
	GetFilteredRankings(ctx context.Context, f model.Filter, requestingUserID *int64) (types.Rankings, error)
	CompareRival(ctx context.Context, userID int64) (types.RivalComparison, error)

	// Write operations feed the asynchronous update path.
	UpdateScore(ctx context.Context, userID, newTotal int64)
	SubmitPointEvent(ctx context.Context, ev model.PointEvent) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	rivalHandler    *RivalHandler
	scoresHandler   *ScoresHandler
	eventsHandler   *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		rankingsHandler: NewRankingsHandler(deps),
		rivalHandler:    NewRivalHandler(deps),
		scoresHandler:   NewScoresHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/rankings/filtered", MetricsMiddleware(s.rankingsHandler.HandleGetFilteredRankings, "rankings_filtered"))
	mux.HandleFunc("/rival", MetricsMiddleware(s.rivalHandler.HandleGetRival, "rival"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
}

// eventRequest mirrors the wire schema for POST /events.
type eventRequest struct {
	EventID  string  `json:"event_id"`
	UserID   int64   `json:"user_id"`
	Activity string  `json:"activity"`
	Amount   float64 `json:"amount"`
	TS       string  `json:"ts"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case e.UserID <= 0:
		return errors.New("missing user_id")
	case strings.TrimSpace(e.Activity) == "":
		return errors.New("missing activity")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// scoreRequest mirrors the wire schema for POST /scores.
type scoreRequest struct {
	UserID   int64 `json:"user_id"`
	NewTotal int64 `json:"new_total"`
}

func (s scoreRequest) validate() error {
	switch {
	case s.UserID <= 0:
		return errors.New("missing user_id")
	case s.NewTotal < 0:
		return errors.New("new_total must not be negative")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// optionalUserID parses the user_id query parameter; absence is not an
// error, a malformed value is.
func optionalUserID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid user_id")
	}
	return &id, nil
}

func requiredUserID(r *http.Request) (int64, error) {
	id, err := optionalUserID(r)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, errors.New("missing user_id")
	}
	return *id, nil
}
