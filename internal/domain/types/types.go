// Package types contains view types shared by the domain and transport layers.
package types

import "github.com/okian/eduquest/internal/domain/model"

// Entry is one ranked row of the leaderboard.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
}

// Profile is a user together with derived flags.
type Profile struct {
	model.User
	CanChat bool `json:"can_chat"`
}

// Result describes the outcome of recording one event.
type Result struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	model.Counters
	LevelsGained int  `json:"levels_gained"`
	Duplicate    bool `json:"duplicate"`
	Ignored      bool `json:"ignored"`
}
