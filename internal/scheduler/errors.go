package scheduler

import "errors"

// ErrInvalidSchedule is returned for cron specs that cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid schedule")
