package scheduler

import (
	"context"
	"time"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithJobTimeout bounds each job run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithContext sets the parent context of every job run.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}
