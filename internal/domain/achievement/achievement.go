// Package achievement derives unlocked achievements from a user's event log.
//
// Like insights, achievements are never stored: the same events always
// unlock the same achievements at the same instants.
package achievement

import (
	"sort"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
)

// Achievement ids.
const (
	FirstMessage     = "first_message"
	DedicatedStudent = "dedicated_student"
	ChatExpert       = "chat_expert"
)

// Goals of the built-in achievements.
const (
	StreakDays  = 7
	ExpertChats = 100
	firstChats  = 1
	hoursPerDay = 24
)

// Achievement is the state of one achievement for a user.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Points      int        `json:"points"`
	Goal        int        `json:"goal"`
	Progress    int        `json:"progress"`
	Unlocked    bool       `json:"is_unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Evaluate returns every achievement with its progress over events.
func Evaluate(events []model.Event) []Achievement {
	chats := chatTimes(events)

	first := Achievement{
		ID:          FirstMessage,
		Title:       "Primer Mensaje",
		Description: "Envía tu primer mensaje al chatbot",
		Icon:        "chatbubble",
		Points:      25,
		Goal:        firstChats,
	}
	expert := Achievement{
		ID:          ChatExpert,
		Title:       "Experto en Chat",
		Description: "Envía 100 mensajes",
		Icon:        "chatbubbles",
		Points:      200,
		Goal:        ExpertChats,
	}
	dedicated := Achievement{
		ID:          DedicatedStudent,
		Title:       "Estudiante Dedicado",
		Description: "Usa el chatbot por 7 días consecutivos",
		Icon:        "calendar",
		Points:      100,
		Goal:        StreakDays,
	}

	count(&first, chats)
	count(&expert, chats)
	streak(&dedicated, chats)
	return []Achievement{first, dedicated, expert}
}

// Unlocked returns the ids of the unlocked achievements.
func Unlocked(list []Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Unlocked {
			out = append(out, a.ID)
		}
	}
	return out
}

// chatTimes returns the timestamps of chat messages in time order.
func chatTimes(events []model.Event) []time.Time {
	out := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.Kind == model.KindChatMessageSent {
			out = append(out, e.TS.UTC())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func count(a *Achievement, chats []time.Time) {
	a.Progress = min(len(chats), a.Goal)
	if len(chats) >= a.Goal {
		unlock(a, chats[a.Goal-1])
	}
}

// streak unlocks a once chats span Goal consecutive UTC days.
func streak(a *Achievement, chats []time.Time) {
	var last time.Time
	run, best := 0, 0
	for _, ts := range chats {
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		switch {
		case run > 0 && day.Equal(last):
			continue
		case run > 0 && day.Sub(last) == hoursPerDay*time.Hour:
			run++
		default:
			run = 1
		}
		last = day
		best = max(best, run)
		if run == a.Goal && !a.Unlocked {
			unlock(a, ts)
		}
	}
	a.Progress = min(best, a.Goal)
}

func unlock(a *Achievement, at time.Time) {
	a.Unlocked = true
	a.UnlockedAt = &at
}
