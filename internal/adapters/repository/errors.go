package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrDuplicateEvent = errors.New("duplicate event")
)
