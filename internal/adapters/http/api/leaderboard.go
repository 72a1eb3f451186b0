package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/eduquest/internal/domain/catalog"
	"github.com/okian/eduquest/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	GetLeaderboard(ctx context.Context, limit int) ([]types.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests. A missing
// limit uses the default; the service caps large values.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	entries, err := h.deps.GetLeaderboard(r.Context(), n)
	if err != nil {
		fail(r.Context(), nil, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ActivityDependencies exposes the activity catalog.
type ActivityDependencies interface {
	Activities() []catalog.Activity
}

// ActivitiesHandler handles catalog requests.
type ActivitiesHandler struct {
	deps ActivityDependencies
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps ActivityDependencies) *ActivitiesHandler {
	return &ActivitiesHandler{deps: deps}
}

// HandleList handles GET /activities requests.
func (h *ActivitiesHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Activities())
}
