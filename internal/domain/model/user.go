package model

import "time"

// Counters is the gamification state of a user.
type Counters struct {
	Credits    int `json:"credits"`
	Level      int `json:"level"`
	Experience int `json:"experience"`
	Points     int `json:"points"`
}

// Delta is a signed change to counters produced by scoring.
type Delta struct {
	Credits    int `json:"credits"`
	Experience int `json:"experience"`
	Points     int `json:"points"`
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// User is a registered participant.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Counters
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser returns a level 1 user holding initialCredits.
func NewUser(id, name string, initialCredits int, now time.Time) User {
	if initialCredits < 0 {
		initialCredits = 0
	}
	now = now.UTC()
	return User{
		ID:        id,
		Name:      name,
		Counters:  Counters{Credits: initialCredits, Level: 1},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
