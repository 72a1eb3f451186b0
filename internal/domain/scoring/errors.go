package scoring

import "errors"

// ErrUnknownEventKind marks an event kind without a reward rule.
var ErrUnknownEventKind = errors.New("unknown event kind")
