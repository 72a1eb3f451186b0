package api

import (
	"context"
	"net/http"

	"github.com/okian/eduquest/internal/domain/question"
	"github.com/okian/eduquest/pkg/logger"
)

// QuestionDependencies exposes the question bank.
type QuestionDependencies interface {
	Questions(level string) ([]question.Question, error)
	SuggestQuestions(ctx context.Context, userID, level string) ([]question.Question, error)
}

// QuestionsHandler handles question bank requests.
type QuestionsHandler struct {
	deps   QuestionDependencies
	logger logger.Logger
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(deps QuestionDependencies, log logger.Logger) *QuestionsHandler {
	return &QuestionsHandler{deps: deps, logger: log}
}

// HandleList handles GET /questions?level= requests.
func (h *QuestionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_questions"
	qs, err := h.deps.Questions(r.URL.Query().Get("level"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

// HandleSuggested handles GET /users/{id}/questions?level= requests.
func (h *QuestionsHandler) HandleSuggested(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest_questions"
	id, err := resolveUser(r.Context(), op, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	qs, err := h.deps.SuggestQuestions(r.Context(), id, r.URL.Query().Get("level"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, qs)
}
