package simulator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/eduquest/internal/domain/model"
)

// Mix of generated kinds out of 100.
const (
	shareQuestion = 55
	shareActivity = 25
	shareChat     = 17
	// the remainder is an unknown kind the server must ignore

	replayEvery = 10 // every n-th event is submitted twice
)

//nolint:gochecknoglobals // fixed vocabularies
var (
	categories = []string{model.CategoryVocational, model.CategoryReinforcement, model.CategoryEmotional, "general"}
	answers    = []string{"me interesa una carrera en ingeniería", "tengo dificultad con fracciones", "me siento bien", "no sé", "hoy aprendí algo"}
)

// Plan is a generated workload: users, their events and the events that are
// deliberately sent twice.
type Plan struct {
	Users   []string
	Events  []Event
	Replays []Event
}

// generate builds a reproducible plan for cfg. Activity completions only use
// active catalog entries.
func generate(cfg *Config, activities []Activity) Plan {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // not used for security

	active := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if a.IsActive {
			active = append(active, a)
		}
	}

	plan := Plan{Users: make([]string, cfg.Users)}
	for i := range plan.Users {
		plan.Users[i] = "sim-" + uuid.NewString()
	}

	now := time.Now().UTC()
	for _, userID := range plan.Users {
		for j := 0; j < cfg.EventsPerUser; j++ {
			e := Event{
				EventID: uuid.NewString(),
				UserID:  userID,
				TS:      now.Add(time.Duration(j) * time.Second).Format(time.RFC3339),
			}
			switch roll := rng.Intn(100); {
			case roll < shareQuestion:
				e.Kind = model.KindQuestionAnswered
				e.Payload = model.Payload{
					QuestionID: fmt.Sprintf("q-%d", rng.Intn(1000)),
					Category:   categories[rng.Intn(len(categories))],
					Answer:     answers[rng.Intn(len(answers))],
				}
				if e.Payload.Category == model.CategoryEmotional {
					v := float64(rng.Intn(101)) / 10
					e.EmotionalVariability = &v
				}
			case roll < shareQuestion+shareActivity && len(active) > 0:
				e.Kind = model.KindActivityCompleted
				e.Payload = model.Payload{ActivityID: active[rng.Intn(len(active))].ID}
			case roll < shareQuestion+shareActivity+shareChat:
				e.Kind = model.KindChatMessageSent
				e.Payload = model.Payload{Text: answers[rng.Intn(len(answers))]}
			default:
				e.Kind = model.Kind("badge_viewed")
			}
			plan.Events = append(plan.Events, e)
			if len(plan.Events)%replayEvery == 0 {
				plan.Replays = append(plan.Replays, e)
			}
		}
	}
	return plan
}
