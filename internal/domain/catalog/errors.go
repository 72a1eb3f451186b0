package catalog

import "errors"

// Sentinel errors for catalog lookups.
var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrActivityInactive = errors.New("activity inactive")
)
