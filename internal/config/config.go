// Package config defines service configuration and its defaults.
package config

import (
	"context"
	"runtime"
)

// Activity describes one catalog entry configured in YAML.
type Activity struct {
	ID          int    `koanf:"id" validate:"gt=0"`
	Title       string `koanf:"title" validate:"required"`
	Description string `koanf:"description"`
	Points      int    `koanf:"points" validate:"gte=0"`
	Type        string `koanf:"type" validate:"required"`
	// Active defaults to true when omitted.
	Active *bool `koanf:"is_active"`
}

// IsActive reports whether the activity accepts completions.
func (a Activity) IsActive() bool {
	return a.Active == nil || *a.Active
}

// Question describes one question bank entry configured in YAML.
type Question struct {
	ID       string `koanf:"id" validate:"required"`
	Text     string `koanf:"text" validate:"required"`
	Category string `koanf:"category" validate:"required"`
	Level    string `koanf:"level" validate:"required"`
	Points   int    `koanf:"points" validate:"gte=0"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// EventQueueSize bounds the async event queue.
	EventQueueSize int `koanf:"queue_size" validate:"gt=0"`
	// WorkerCount sets the number of async event workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`
	// DedupeSize bounds the in-memory event id cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit" validate:"gt=0"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gtefield=DefaultLeaderboardLimit"`

	// InitialCredits is granted to every newly registered user.
	InitialCredits int `koanf:"initial_credits" validate:"gte=0"`
	// LevelUpBonus is the credit bonus per level gained.
	LevelUpBonus int `koanf:"level_up_bonus" validate:"gte=0"`
	// ChatCreditThreshold is the balance needed for can_chat.
	ChatCreditThreshold int `koanf:"chat_credit_threshold" validate:"gte=0"`
	// InsightWindowHours limits insight derivation to recent events; 0 uses the full history.
	InsightWindowHours int `koanf:"insight_window_hours" validate:"gte=0"`

	// StoreDriver selects the persistence backend: memory or postgres.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory postgres"`
	DatabaseURL string `koanf:"database_url" validate:"required_if=StoreDriver postgres"`

	// RedisAddr enables the Redis leaderboard index when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`
	RedisKey      string `koanf:"redis_key"`

	// IndexRebuildSchedule is a cron spec for rebuilding the leaderboard index.
	// Empty disables the job.
	IndexRebuildSchedule string `koanf:"index_rebuild_schedule"`

	// JWTSecret enables bearer-token verification when set.
	JWTSecret string `koanf:"jwt_secret"`

	// Activities replaces the built-in activity catalog when non-empty.
	Activities []Activity `koanf:"activities" validate:"dive"`

	// Questions replaces the built-in question bank when non-empty.
	Questions []Question `koanf:"questions" validate:"dive"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		EventQueueSize:          10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		DedupeSize:              100_000,
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     100,
		InitialCredits:          100,
		LevelUpBonus:            10,
		ChatCreditThreshold:     50,
		StoreDriver:             "memory",
		RedisKey:                "eduquest:leaderboard",
		IndexRebuildSchedule:    "@every 5m",
	}
}

// Validate checks field constraints.
func (c *Config) Validate(_ context.Context) error {
	if err := validate.Struct(c); err != nil {
		return wrapInvalid(err)
	}
	return nil
}
