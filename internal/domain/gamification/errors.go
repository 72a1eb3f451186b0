package gamification

import "errors"

// Sentinel errors for counter mutations.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("invalid amount")
)
