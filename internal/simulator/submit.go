package simulator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/eduquest/pkg/logger"
)

// submitEvents sends events through a pool of cfg.Workers goroutines.
func submitEvents(ctx context.Context, cfg *Config, c *client, events []Event, stats *Stats) {
	log := logger.Named("simulator")
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", cfg.Workers), logger.Bool("async", cfg.Async))

	var accepted, duplicate, ignored, failed int64
	jobs := make(chan Event, cfg.Workers*workerChannelMultiplier)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				switch c.submit(ctx, cfg.Async, e) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeIgnored:
					atomic.AddInt64(&ignored, 1)
				case outcomeFailed:
					n := atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "event submission failed", logger.String("event_id", e.EventID), logger.Int64("failed", n))
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case jobs <- e:
			}
		}
	}()
	wg.Wait()

	stats.EventsSubmitted += len(events)
	stats.EventsAccepted += int(accepted)
	stats.EventsDuplicate += int(duplicate)
	stats.EventsIgnored += int(ignored)
	stats.EventsFailed += int(failed)
}
