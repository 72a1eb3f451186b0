package index

import "errors"

// ErrInvalidLimit is returned for non-positive candidate limits.
var ErrInvalidLimit = errors.New("invalid leaderboard limit")
