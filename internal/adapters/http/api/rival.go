// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/types"
)

// RivalDependencies defines the interface for the rival comparison.
type RivalDependencies interface {
	CompareRival(ctx context.Context, userID int64) (types.RivalComparison, error)
}

// RivalHandler handles rival comparison requests.
type RivalHandler struct {
	deps RivalDependencies
}

// NewRivalHandler creates a new rival handler.
func NewRivalHandler(deps RivalDependencies) *RivalHandler {
	return &RivalHandler{deps: deps}
}

// HandleGetRival handles GET /rival?user_id= requests.
func (h *RivalHandler) HandleGetRival(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	uid, err := requiredUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.deps.CompareRival(r.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
