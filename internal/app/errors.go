package service

import "errors"

// ErrNotStarted is returned by async operations before Start.
var ErrNotStarted = errors.New("service not started")
