// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// RankingsDependencies defines the interface for ranking read operations.
type RankingsDependencies interface {
	GetTopRankings(ctx context.Context, requestingUserID *int64) (types.Rankings, error)
	GetFilteredRankings(ctx context.Context, f model.Filter, requestingUserID *int64) (types.Rankings, error)
}

// RankingsHandler handles ranking read requests.
type RankingsHandler struct {
	deps RankingsDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /rankings?user_id= requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	uid, err := optionalUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.deps.GetTopRankings(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetFilteredRankings handles
// GET /rankings/filtered?gender=&age_bucket=&user_id= requests.
func (h *RankingsHandler) HandleGetFilteredRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	uid, err := optionalUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.deps.GetFilteredRankings(r.Context(), f, uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// parseFilter reads the demographic constraints; both dimensions are
// optional but an age bucket must be a non-negative multiple of ten.
func parseFilter(r *http.Request) (model.Filter, error) {
	f := model.Filter{Gender: r.URL.Query().Get("gender")}

	raw := r.URL.Query().Get("age_bucket")
	if raw == "" {
		return f, nil
	}
	bucket, err := strconv.Atoi(raw)
	if err != nil || bucket < 0 || bucket%10 != 0 {
		return model.Filter{}, errors.New("invalid age_bucket; must be a multiple of 10")
	}
	f.AgeBucket = bucket
	return f, nil
}
