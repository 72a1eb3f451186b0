package api

import (
	"context"
	"net/http"

	"github.com/okian/eduquest/internal/domain/achievement"
	"github.com/okian/eduquest/internal/domain/insight"
	"github.com/okian/eduquest/internal/domain/types"
	"github.com/okian/eduquest/pkg/logger"
)

// UserDependencies defines the user operations the handlers need.
type UserDependencies interface {
	RegisterUser(ctx context.Context, id, name string) (types.Profile, error)
	GetUser(ctx context.Context, id string) (types.Profile, error)
	SpendCredits(ctx context.Context, userID string, amount int) (types.Profile, error)
	GetInsights(ctx context.Context, userID string) (insight.Snapshot, error)
	GetAchievements(ctx context.Context, userID string) ([]achievement.Achievement, error)
}

type registerRequest struct {
	ID   string `json:"id" validate:"omitempty,max=128"`
	Name string `json:"name" validate:"required,max=200"`
}

type spendRequest struct {
	Amount int `json:"amount" validate:"gt=0"`
}

// UsersHandler handles user requests.
type UsersHandler struct {
	deps   UserDependencies
	logger logger.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies, log logger.Logger) *UsersHandler {
	return &UsersHandler{deps: deps, logger: log}
}

// HandleRegister handles POST /users requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_user"
	var req registerRequest
	if err := decode(r, &req); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := resolveUser(r.Context(), op, req.ID)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	p, err := h.deps.RegisterUser(r.Context(), id, req.Name)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /users/{id} requests.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	id, err := resolveUser(r.Context(), op, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	p, err := h.deps.GetUser(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSpend handles POST /users/{id}/spend requests.
func (h *UsersHandler) HandleSpend(w http.ResponseWriter, r *http.Request) {
	const op = "api.spend_credits"
	id, err := resolveUser(r.Context(), op, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	var req spendRequest
	if err := decode(r, &req); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.SpendCredits(r.Context(), id, req.Amount)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleInsights handles GET /users/{id}/insights requests.
func (h *UsersHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	id, err := resolveUser(r.Context(), op, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	snap, err := h.deps.GetInsights(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleAchievements handles GET /users/{id}/achievements requests.
func (h *UsersHandler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_achievements"
	id, err := resolveUser(r.Context(), op, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	list, err := h.deps.GetAchievements(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}
