package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/types"
	"github.com/okian/eduquest/pkg/logger"
)

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	RecordEvent(ctx context.Context, userID string, kind model.Kind, payload model.Payload, opts ...model.EventOption) (types.Result, error)
	Submit(ctx context.Context, userID string, kind model.Kind, payload model.Payload, opts ...model.EventOption) (eventID string, duplicate bool, err error)
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID              string        `json:"event_id" validate:"omitempty,max=128"`
	UserID               string        `json:"user_id" validate:"omitempty,max=128"`
	Kind                 string        `json:"kind" validate:"required"`
	Payload              model.Payload `json:"payload"`
	EmotionalVariability *float64      `json:"emotional_variability" validate:"omitempty,gte=0,lte=10"`
	TS                   string        `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (e eventRequest) options() []model.EventOption {
	opts := []model.EventOption{model.WithEventID(strings.TrimSpace(e.EventID))}
	if ts, err := time.Parse(time.RFC3339, e.TS); err == nil {
		opts = append(opts, model.WithTimestamp(ts))
	}
	if e.EmotionalVariability != nil {
		opts = append(opts, model.WithEmotionalVariability(*e.EmotionalVariability))
	}
	return opts
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps   EventDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: log}
}

func (h *EventsHandler) parse(r *http.Request, op string) (eventRequest, string, error) {
	var req eventRequest
	if err := decode(r, &req); err != nil {
		return req, "", WrapKind(op, ErrBadRequest, err)
	}
	userID, err := resolveUser(r.Context(), op, strings.TrimSpace(req.UserID))
	if err != nil {
		return req, "", err
	}
	if userID == "" {
		return req, "", WrapKind(op, ErrBadRequest, errMissingUser)
	}
	return req, userID, nil
}

// HandlePostEvent handles POST /events requests. The event is applied
// before the response is written.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	req, userID, err := h.parse(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	res, err := h.deps.RecordEvent(r.Context(), userID, model.Kind(req.Kind), req.Payload, req.options()...)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePostEventAsync handles POST /events/async requests. Accepted events
// are applied by the worker pool.
func (h *EventsHandler) HandlePostEventAsync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event_async"
	req, userID, err := h.parse(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	id, duplicate, err := h.deps.Submit(r.Context(), userID, model.Kind(req.Kind), req.Payload, req.options()...)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: id, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: id})
}
