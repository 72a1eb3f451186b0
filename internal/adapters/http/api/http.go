// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/eduquest/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UserDependencies
	EventDependencies
	LeaderboardDependencies
	ActivityDependencies
	QuestionDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth               *Authenticator
	logger             logger.Logger
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	usersHandler       *UsersHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	activitiesHandler  *ActivitiesHandler
	questionsHandler   *QuestionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.usersHandler = NewUsersHandler(deps, s.logger)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps)
	s.activitiesHandler = NewActivitiesHandler(deps)
	s.questionsHandler = NewQuestionsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	auth := s.auth.Middleware

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /activities", MetricsMiddleware(s.activitiesHandler.HandleList, "activities"))
	mux.HandleFunc("GET /questions", MetricsMiddleware(s.questionsHandler.HandleList, "questions"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	mux.HandleFunc("POST /users", MetricsMiddleware(auth(s.usersHandler.HandleRegister), "users"))
	mux.HandleFunc("GET /users/{id}", MetricsMiddleware(auth(s.usersHandler.HandleGet), "user"))
	mux.HandleFunc("POST /users/{id}/spend", MetricsMiddleware(auth(s.usersHandler.HandleSpend), "spend"))
	mux.HandleFunc("GET /users/{id}/insights", MetricsMiddleware(auth(s.usersHandler.HandleInsights), "insights"))
	mux.HandleFunc("GET /users/{id}/achievements", MetricsMiddleware(auth(s.usersHandler.HandleAchievements), "achievements"))
	mux.HandleFunc("GET /users/{id}/questions", MetricsMiddleware(auth(s.questionsHandler.HandleSuggested), "suggested_questions"))

	mux.HandleFunc("POST /events", MetricsMiddleware(auth(s.eventsHandler.HandlePostEvent), "events"))
	mux.HandleFunc("POST /events/async", MetricsMiddleware(auth(s.eventsHandler.HandlePostEventAsync), "events_async"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
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

// fail classifies err and writes it. Server errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}
