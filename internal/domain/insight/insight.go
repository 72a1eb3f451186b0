// Package insight derives behavioural signals from a user's question answers.
//
// Every function here is pure: the same events always produce the same
// result, and an empty history means "no signal" rather than an error.
package insight

import (
	"strings"

	"github.com/okian/eduquest/internal/domain/model"
)

// ExhaustionThreshold is the mean emotional variability below which a user is
// considered exhausted.
const ExhaustionThreshold = 3.0

//nolint:gochecknoglobals // fixed vocabularies
var (
	careerKeywords     = []string{"carrera", "career", "profesión", "profesion"}
	difficultyKeywords = []string{"dificultad", "difficulty"}

	vocationalAreas    = []string{"Tecnología", "Ciencias", "Humanidades", "Artes"}
	reinforcementAreas = []string{"Matemáticas", "Ciencias", "Lenguaje", "Historia"}
)

// Snapshot is a derived view over a user's events. It is never stored.
type Snapshot struct {
	VocationalInterests  []string `json:"vocational_interests"`
	ReinforcementAreas   []string `json:"reinforcement_areas"`
	IsExhausted          bool     `json:"is_exhausted"`
	EmotionalVariability float64  `json:"emotional_variability"`
}

// Derive computes all four signals over events.
func Derive(events []model.Event) Snapshot {
	mean, ok := emotionalMean(events)
	return Snapshot{
		VocationalInterests:  DetectVocationalInterests(events),
		ReinforcementAreas:   DetectReinforcementAreas(events),
		IsExhausted:          ok && mean < ExhaustionThreshold,
		EmotionalVariability: mean,
	}
}

// DetectVocationalInterests returns the canonical interest areas when any
// answer is vocational or mentions a career.
func DetectVocationalInterests(events []model.Event) []string {
	return detect(events, model.CategoryVocational, careerKeywords, vocationalAreas)
}

// DetectReinforcementAreas returns the canonical subjects to reinforce when
// any answer is a reinforcement question or mentions difficulty.
func DetectReinforcementAreas(events []model.Event) []string {
	return detect(events, model.CategoryReinforcement, difficultyKeywords, reinforcementAreas)
}

// CalculateEmotionalVariability is the mean variability of emotional answers,
// or 0 when there are none.
func CalculateEmotionalVariability(events []model.Event) float64 {
	mean, _ := emotionalMean(events)
	return mean
}

// DetectExhaustion reports whether the emotional mean is below
// ExhaustionThreshold. Without emotional answers it is false.
func DetectExhaustion(events []model.Event) bool {
	mean, ok := emotionalMean(events)
	return ok && mean < ExhaustionThreshold
}

func detect(events []model.Event, category string, keywords, areas []string) []string {
	for _, e := range events {
		if e.Kind != model.KindQuestionAnswered {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(e.Payload.Category), category) || containsAny(e.Payload.Answer, keywords) {
			out := make([]string, len(areas))
			copy(out, areas)
			return out
		}
	}
	return []string{}
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// emotionalMean averages the variability of emotional answers carrying a
// reading. ok is false when none qualify.
func emotionalMean(events []model.Event) (mean float64, ok bool) {
	var sum float64
	var n int
	for _, e := range events {
		if !e.IsEmotional() || e.EmotionalVariability == nil {
			continue
		}
		sum += *e.EmotionalVariability
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
