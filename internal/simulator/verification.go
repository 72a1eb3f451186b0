package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/okian/eduquest/internal/domain/gamification"
	"github.com/okian/eduquest/internal/domain/insight"
	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/scoring"
)

const floatTolerance = 1e-9

// Expectation is what the server must report for one user once every event
// of the plan is applied.
type Expectation struct {
	Counters model.Counters
	Insights insight.Snapshot
}

// expect replays the plan locally with the same scoring rules the server
// uses. initial holds each user's counters right after registration.
func expect(plan Plan, activities []Activity, initial map[string]model.Counters, bonus int) map[string]Expectation {
	engine := scoring.New()
	points := make(map[int]int, len(activities))
	for _, a := range activities {
		points[a.ID] = a.Points
	}

	counters := make(map[string]model.Counters, len(initial))
	for id, c := range initial {
		counters[id] = c
	}
	history := make(map[string][]model.Event, len(initial))

	for _, e := range plan.Events {
		d, err := engine.Delta(e.Kind, points[e.Payload.ActivityID])
		if errors.Is(err, scoring.ErrUnknownEventKind) {
			continue
		}
		counters[e.UserID], _ = gamification.Apply(counters[e.UserID], d, bonus)
		history[e.UserID] = append(history[e.UserID], model.Event{
			ID:                   e.EventID,
			UserID:               e.UserID,
			Kind:                 e.Kind,
			Payload:              e.Payload,
			EmotionalVariability: e.EmotionalVariability,
		})
	}

	out := make(map[string]Expectation, len(counters))
	for id, c := range counters {
		out[id] = Expectation{Counters: c, Insights: insight.Derive(history[id])}
	}
	return out
}

// verifyUser compares a user's server state with the expectation.
func verifyUser(ctx context.Context, c *client, id string, want Expectation) error {
	var got User
	if _, err := c.do(ctx, http.MethodGet, "/users/"+id, id, nil, &got); err != nil {
		return err
	}
	if got.Counters != want.Counters {
		return fmt.Errorf("user %s: counters %+v, want %+v", id, got.Counters, want.Counters)
	}
	if got.Level != scoring.Level(got.Experience) {
		return fmt.Errorf("user %s: level %d does not match experience %d", id, got.Level, got.Experience)
	}
	return nil
}

// verifyInsights compares the server snapshot with the local derivation.
func verifyInsights(ctx context.Context, c *client, id string, want insight.Snapshot) error {
	var got Insights
	if _, err := c.do(ctx, http.MethodGet, "/users/"+id+"/insights", id, nil, &got); err != nil {
		return err
	}
	if len(got.VocationalInterests) != len(want.VocationalInterests) {
		return fmt.Errorf("user %s: vocational interests %v, want %v", id, got.VocationalInterests, want.VocationalInterests)
	}
	if len(got.ReinforcementAreas) != len(want.ReinforcementAreas) {
		return fmt.Errorf("user %s: reinforcement areas %v, want %v", id, got.ReinforcementAreas, want.ReinforcementAreas)
	}
	if math.Abs(got.EmotionalVariability-want.EmotionalVariability) > floatTolerance {
		return fmt.Errorf("user %s: emotional variability %.4f, want %.4f", id, got.EmotionalVariability, want.EmotionalVariability)
	}
	// Summation order may differ on the server; only a mean at the threshold
	// can legitimately flip.
	if got.IsExhausted != want.IsExhausted && math.Abs(want.EmotionalVariability-insight.ExhaustionThreshold) > floatTolerance {
		return fmt.Errorf("user %s: exhausted %v, want %v", id, got.IsExhausted, want.IsExhausted)
	}
	return nil
}

// verifyLeaderboard checks ordering and rank numbering, and that simulated
// users appear with their expected points.
func verifyLeaderboard(entries []Entry, want map[string]Expectation, limit int) error {
	if len(entries) > limit {
		return fmt.Errorf("leaderboard returned %d entries, limit %d", len(entries), limit)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && e.Points > entries[i-1].Points {
			return fmt.Errorf("leaderboard not sorted: entry %d has more points than entry %d", i, i-1)
		}
		if exp, ok := want[e.UserID]; ok && exp.Counters.Points != e.Points {
			return fmt.Errorf("leaderboard entry %s has %d points, want %d", e.UserID, e.Points, exp.Counters.Points)
		}
	}
	best := 0
	for _, exp := range want {
		best = max(best, exp.Counters.Points)
	}
	if len(entries) > 0 && entries[0].Points < best {
		return fmt.Errorf("leaderboard top has %d points, a simulated user has %d", entries[0].Points, best)
	}
	return nil
}
