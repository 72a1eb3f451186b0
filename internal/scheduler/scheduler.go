// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/eduquest/pkg/logger"
	"github.com/okian/eduquest/pkg/metrics"
)

const defaultJobTimeout = time.Minute

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron       *cron.Cron
	log        logger.Logger
	jobTimeout time.Duration
	baseCtx    context.Context
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		log:        logger.Named("scheduler"),
		jobTimeout: defaultJobTimeout,
		baseCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Add registers job under name with a cron spec such as "@every 5m" or
// "*/5 * * * *".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			metrics.RecordErrorByComponent("scheduler", name)
			s.log.Error(ctx, "scheduled job failed", logger.String("job", name), logger.Error(err))
			return
		}
		s.log.Debug(ctx, "scheduled job finished",
			logger.String("job", name),
			logger.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrInvalidSchedule, name, spec, err)
	}
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// cronLogger forwards cron's internal logging to the service logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(context.Background(), msg, append(fields(keysAndValues), logger.Error(err))...)
}

func fields(kv []any) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
