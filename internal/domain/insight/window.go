package insight

import (
	"time"

	"github.com/okian/eduquest/internal/domain/model"
)

// Window returns the events at or after since. A zero since keeps everything.
func Window(events []model.Event, since time.Time) []model.Event {
	if since.IsZero() {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.TS.Before(since) {
			out = append(out, e)
		}
	}
	return out
}
