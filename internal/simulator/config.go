package simulator

import (
	"time"

	"github.com/okian/eduquest/internal/domain/insight"
	"github.com/okian/eduquest/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Users         int           // Number of synthetic users to register
	EventsPerUser int           // Events generated per user
	TopN          int           // Leaderboard entries to fetch
	Workers       int           // Concurrent HTTP workers
	Timeout       time.Duration // HTTP request timeout
	Async         bool          // Submit through /events/async instead of /events
	DrainTimeout  time.Duration // How long to wait for the async queue to drain
	JWTSecret     string        // Signs per-user bearer tokens when set
	LevelUpBonus  int           // Bonus the server grants per level, used for expectations
	Seed          int64         // Seed for event generation
	Verbose       bool          // Enable verbose logging
}

// Event is one generated event together with the body sent to the API.
type Event struct {
	EventID              string        `json:"event_id"`
	UserID               string        `json:"user_id"`
	Kind                 model.Kind    `json:"kind"`
	Payload              model.Payload `json:"payload"`
	EmotionalVariability *float64      `json:"emotional_variability,omitempty"`
	TS                   string        `json:"ts"`
}

// User mirrors the counters returned by GET /users/{id}.
type User struct {
	ID string `json:"id"`
	model.Counters
	CanChat bool `json:"can_chat"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
}

// Activity mirrors GET /activities.
type Activity struct {
	ID       int  `json:"id"`
	Points   int  `json:"points"`
	IsActive bool `json:"is_active"`
}

// Insights mirrors GET /users/{id}/insights.
type Insights = insight.Snapshot

// Stats holds run statistics.
type Stats struct {
	UsersRegistered  int
	EventsGenerated  int
	EventsSubmitted  int
	EventsAccepted   int
	EventsDuplicate  int
	EventsIgnored    int
	EventsFailed     int
	UsersVerified    int
	InsightsVerified int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
