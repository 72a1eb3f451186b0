// Package question holds the question bank learners answer.
package question

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/eduquest/internal/domain/model"
)

// Education levels questions are written for.
const (
	LevelUniversity = "university"
	LevelHighSchool = "highschool"

	// DefaultLevel is used when the caller does not name one.
	DefaultLevel = LevelUniversity
	// MaxSuggestions caps Suggested.
	MaxSuggestions = 5
)

// Question categories besides the ones the insight engine inspects.
const (
	CategoryAcademic = "academic"
	CategoryCareer   = "career"
)

// Categories recognised inside free-form question ids, most specific first.
//
//nolint:gochecknoglobals // fixed vocabulary
var idCategories = []string{
	model.CategoryEmotional,
	model.CategoryVocational,
	model.CategoryReinforcement,
	CategoryAcademic,
	CategoryCareer,
}

// Question is one prompt of the bank.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Level    string `json:"level"`
	Points   int    `json:"points"`
}

// Bank is a read-only set of questions keyed by id.
type Bank struct {
	byID map[string]Question
}

// New builds a bank. Later entries replace earlier ones with the same id.
func New(questions ...Question) *Bank {
	b := &Bank{byID: make(map[string]Question, len(questions))}
	for _, q := range questions {
		q.Level = strings.ToLower(strings.TrimSpace(q.Level))
		b.byID[q.ID] = q
	}
	return b
}

// Get returns the question with id.
func (b *Bank) Get(id string) (Question, error) {
	q, ok := b.byID[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return q, nil
}

// Category resolves the category of questionID. Ids outside the bank fall
// back to a category named inside the id, e.g. "emotional-3". It returns ""
// when neither applies.
func (b *Bank) Category(questionID string) string {
	if q, ok := b.byID[questionID]; ok {
		return q.Category
	}
	lower := strings.ToLower(questionID)
	for _, c := range idCategories {
		if strings.Contains(lower, c) {
			return c
		}
	}
	return ""
}

// List returns the questions for level in id order. An empty level lists
// the whole bank.
func (b *Bank) List(level string) ([]Question, error) {
	level, err := b.level(level)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(b.byID))
	for _, q := range b.byID {
		if level == "" || q.Level == level {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

// Suggested returns up to MaxSuggestions questions for level that are not in
// answered. An empty level means DefaultLevel.
func (b *Bank) Suggested(level string, answered map[string]bool) ([]Question, error) {
	if strings.TrimSpace(level) == "" {
		level = DefaultLevel
	}
	all, err := b.List(level)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, MaxSuggestions)
	for _, q := range all {
		if answered[q.ID] {
			continue
		}
		out = append(out, q)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out, nil
}

func (b *Bank) level(level string) (string, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return "", nil
	}
	for _, q := range b.byID {
		if q.Level == level {
			return level, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownLevel, level)
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Answered collects the ids of the questions answered in events.
func Answered(events []model.Event) map[string]bool {
	out := make(map[string]bool)
	for _, e := range events {
		if e.Kind == model.KindQuestionAnswered && e.Payload.QuestionID != "" {
			out[e.Payload.QuestionID] = true
		}
	}
	return out
}

// Defaults returns the built-in question bank.
func Defaults() []Question {
	return []Question{
		{ID: "1", Text: "¿Cuál es tu área de estudio principal?", Category: CategoryAcademic, Level: LevelUniversity, Points: 10},
		{ID: "2", Text: "¿Qué carrera te interesa más?", Category: CategoryCareer, Level: LevelUniversity, Points: 15},
		{ID: "3", Text: "¿Cómo te sientes con tu rendimiento académico?", Category: model.CategoryEmotional, Level: LevelUniversity, Points: 5},
		{ID: "4", Text: "¿En qué materias necesitas más ayuda?", Category: model.CategoryReinforcement, Level: LevelUniversity, Points: 10},
		{ID: "5", Text: "¿Qué te motiva a estudiar?", Category: model.CategoryVocational, Level: LevelUniversity, Points: 12},
		{ID: "6", Text: "¿Cuál es tu materia favorita?", Category: CategoryAcademic, Level: LevelHighSchool, Points: 8},
		{ID: "7", Text: "¿Qué carrera te gustaría estudiar?", Category: CategoryCareer, Level: LevelHighSchool, Points: 12},
		{ID: "8", Text: "¿Cómo manejas el estrés de los exámenes?", Category: model.CategoryEmotional, Level: LevelHighSchool, Points: 6},
		{ID: "9", Text: "¿En qué materias tienes más dificultades?", Category: model.CategoryReinforcement, Level: LevelHighSchool, Points: 8},
		{ID: "10", Text: "¿Qué te inspira a seguir estudiando?", Category: model.CategoryVocational, Level: LevelHighSchool, Points: 10},
	}
}
