// Package worker drains the async event queue through a handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/logger"
	"github.com/okian/eduquest/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Handler processes one queued event.
type Handler interface {
	Handle(ctx context.Context, e model.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e model.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, e model.Event) error { return f(ctx, e) }

// Source is where workers receive events from.
type Source interface {
	Dequeue() <-chan model.Event
	Close() error
}

// Worker pulls events from a source until it is closed and drained.
type Worker struct {
	source  Source
	handler Handler
	name    string
	logger  logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(source Source, handler Handler, opts ...Option) *Worker {
	w := &Worker{
		source:  source,
		handler: handler,
		name:    "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes events until the source is closed or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	events := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, e)
		}
	}
}

func (w *Worker) process(ctx context.Context, e model.Event) { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handle_error")
		w.logger.Error(ctx, "event processing failed",
			logger.String("event_id", e.ID),
			logger.String("user_id", e.UserID),
			logger.Error(err))
	}
}

// Pool manages multiple workers over one source.
type Pool struct {
	workers []*Worker
	source  Source
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewPool creates workerCount workers. A non-positive count uses NumCPU.
func NewPool(workerCount int, source Source, handler Handler) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		source:  source,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(source, handler, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker. Workers stop when the source is drained or
// ctx is done.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the source and waits for the workers to drain it. When ctx
// expires first the remaining events are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.source.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		metrics.UpdateWorkerCount(0)
		return nil
	case <-timeout.Done():
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", timeout.Err())
	}
}
