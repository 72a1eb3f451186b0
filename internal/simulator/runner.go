// Package simulator drives the HTTP API with synthetic learners and checks
// that the reported counters, insights and leaderboard match a local replay
// of the same workload.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/logger"
)

// ErrVerification is returned when the server state disagrees with the
// local replay.
var ErrVerification = errors.New("verification failed")

// Run executes a complete simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("simulator")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("eventsPerUser", cfg.EventsPerUser),
		logger.Int("workers", cfg.Workers),
		logger.Bool("async", cfg.Async))

	if _, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var activities []Activity
	if _, err := c.do(ctx, http.MethodGet, "/activities", "", nil, &activities); err != nil {
		return stats, fmt.Errorf("failed to fetch activities: %w", err)
	}

	plan := generate(cfg, activities)
	stats.EventsGenerated = len(plan.Events)

	initial := make(map[string]model.Counters, len(plan.Users))
	for _, id := range plan.Users {
		var u User
		body := map[string]string{"id": id, "name": "Simulated " + id[len(id)-6:]}
		if _, err := c.do(ctx, http.MethodPost, "/users", id, body, &u); err != nil {
			return stats, fmt.Errorf("failed to register %s: %w", id, err)
		}
		initial[id] = u.Counters
		stats.UsersRegistered++
	}

	submitEvents(ctx, cfg, c, plan.Events, stats)
	submitEvents(ctx, cfg, c, plan.Replays, stats)

	want := expect(plan, activities, initial, cfg.LevelUpBonus)

	verify := func() error {
		for _, id := range plan.Users {
			if err := verifyUser(ctx, c, id, want[id]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := waitFor(ctx, cfg.DrainTimeout, verify); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	stats.UsersVerified = len(plan.Users)

	for _, id := range plan.Users {
		if err := verifyInsights(ctx, c, id, want[id].Insights); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrVerification, err)
		}
		stats.InsightsVerified++
	}

	var entries []Entry
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard?limit=%d", cfg.TopN), "", nil, &entries); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyLeaderboard(entries, want, cfg.TopN); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)
	return stats, nil
}

// waitFor retries fn until it succeeds or timeout elapses. A zero timeout
// tries once.
func waitFor(ctx context.Context, timeout time.Duration, fn func() error) error {
	deadline := time.Now().Add(timeout)
	for {
		err := fn()
		if err == nil || !time.Now().Before(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(drainPollInterval):
		}
	}
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		acceptRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsIgnored", stats.EventsIgnored),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("usersVerified", stats.UsersVerified),
		logger.Int("insightsVerified", stats.InsightsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
