package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/eduquest/internal/adapters/mq/queue"
	"github.com/okian/eduquest/internal/adapters/mq/worker"
	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type recorder struct {
	mu   sync.Mutex
	seen map[string]int
	fail string
}

func (r *recorder) Handle(_ context.Context, e model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == r.fail {
		return errors.New("boom")
	}
	r.seen[e.ID]++
	return nil
}

func TestPool(t *testing.T) {
	Convey("Given a pool of 4 workers over a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		rec := &recorder{seen: map[string]int{}, fail: "e7"}
		pool := worker.NewPool(4, q, rec)
		So(pool.Size(), ShouldEqual, 4)

		for i := 0; i < 200; i++ {
			So(q.Enqueue(ctx, model.Event{ID: fmt.Sprintf("e%d", i), UserID: "u1"}), ShouldBeNil)
		}
		pool.Start(ctx)

		Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			Convey("Then every queued event was handled exactly once", func() {
				So(err, ShouldBeNil)
				So(rec.seen, ShouldHaveLength, 199)
				for _, n := range rec.seen {
					So(n, ShouldEqual, 1)
				}
			})
		})
	})

	Convey("Given a worker whose context is cancelled", t, func() {
		q := queue.NewInMemoryQueue()
		ctx, cancel := context.WithCancel(context.Background())
		w := worker.NewWorker(q, worker.HandlerFunc(func(context.Context, model.Event) error { return nil }),
			worker.WithName("solo"))

		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
		}
		So(isClosed(done), ShouldBeTrue)
	})
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
